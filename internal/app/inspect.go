package app

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kobzarvs/qdraft/internal/encoding"
	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/unicodeutil"
)

const previewWidth = 40

func (a *App) inspectCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "inspect <input>",
		Short: "Summarize and validate a raw document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer invariant.Recover(&err)

			doc, err := a.readDocument(cmd.Context(), args[0], "")
			if err != nil {
				return err
			}
			cs, err := encoding.ConvertFromRaw(doc.raw, a.decodeOptions()...)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if plain {
				_, err = fmt.Fprintln(out, cs.PlainText("\n"))
				return err
			}
			if err := writeSummary(out, cs); err != nil {
				return err
			}
			if err := validate(cs); err != nil {
				fmt.Fprintf(out, "\ninvalid:\n")
				for _, e := range multierr.Errors(err) {
					fmt.Fprintf(out, "  %v\n", e)
				}
				return fmt.Errorf("%s: document is invalid", args[0])
			}
			_, err = fmt.Fprintln(out, "\nvalid")
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print only the plain text, one block per line")
	return cmd
}

func validate(cs *model.ContentState) error {
	err := cs.ValidateEntities()
	if first := cs.FirstBlock(); first != nil && first.HasTreeLinks() {
		err = multierr.Append(err, model.ValidateTree(cs.BlockMap()))
	}
	return err
}

func writeSummary(out io.Writer, cs *model.ContentState) error {
	raw := encoding.ConvertToRaw(cs)
	fmt.Fprintf(out, "blocks: %d  entities: %d  tree: %t\n\n",
		cs.BlockMap().Len(), cs.EntityMap().Len(), raw.IsTree())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTYPE\tDEPTH\tLEN\tSTYLES\tTEXT")
	for _, b := range cs.BlocksAsArray() {
		fmt.Fprintf(tw, "%s%s\t%s\t%d\t%d\t%s\t%q\n",
			strings.Repeat("  ", treeLevel(cs, b)), b.Key(), b.Type(), b.Depth(), b.Length(),
			strings.Join(blockStyles(b), ","), preview(b.Text()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(raw.EntityMap) == 0 {
		return nil
	}
	uses := map[string]int{}
	var count func(blocks []encoding.RawBlock)
	count = func(blocks []encoding.RawBlock) {
		for _, rb := range blocks {
			for _, r := range rb.EntityRanges {
				uses[string(r.Key)]++
			}
			count(rb.Children)
		}
	}
	count(raw.Blocks)

	keys := make([]string, 0, len(raw.EntityMap))
	for k := range raw.EntityMap {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y string) int {
		if len(x) != len(y) {
			return len(x) - len(y)
		}
		return strings.Compare(x, y)
	})

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tTYPE\tMUTABILITY\tRANGES")
	for _, k := range keys {
		e := raw.EntityMap[k]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", k, e.Type, e.Mutability, uses[k])
	}
	return tw.Flush()
}

func treeLevel(cs *model.ContentState, b *model.ContentBlock) int {
	level := 0
	for p := b.Parent(); p != "" && level < cs.BlockMap().Len(); level++ {
		parent := cs.BlockForKey(p)
		if parent == nil {
			break
		}
		p = parent.Parent()
	}
	return level
}

func blockStyles(b *model.ContentBlock) []string {
	var styles []string
	for i := range b.Length() {
		for _, s := range b.InlineStyleAt(i).Items() {
			if !slices.Contains(styles, s) {
				styles = append(styles, s)
			}
		}
	}
	slices.Sort(styles)
	return styles
}

func preview(text string) string {
	if unicodeutil.Strlen(text) <= previewWidth {
		return text
	}
	return unicodeutil.Substr(text, 0, previewWidth-1) + "…"
}

package app

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kobzarvs/qdraft/internal/encoding"
	"github.com/kobzarvs/qdraft/internal/highlight"
	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/session"
	"github.com/kobzarvs/qdraft/internal/view"
)

func (a *App) viewCommand() *cobra.Command {
	var readOnly bool
	cmd := &cobra.Command{
		Use:   "view <input>",
		Short: "Open a document in the terminal view",
		Long: `View renders a document in the terminal and edits it in place. The input is
a file path or store:<name>. Saving writes back to the same place in the
same format. The last selection of every document is remembered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer invariant.Recover(&err)
			ctx := cmd.Context()

			doc, err := a.readDocument(ctx, args[0], "")
			if err != nil {
				return err
			}
			cs, err := a.contentState(doc.raw)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if cs.BlockMap().Len() == 0 {
				cs = model.CreateFromText("")
			}

			sessions, err := session.NewDefaultManager()
			if err != nil {
				return err
			}
			defer func() {
				if serr := sessions.Stop(); serr != nil {
					logger.Warn("failed to save session", "error", serr)
				}
			}()
			sessions.SetActiveDocument(doc.id)

			engine := highlight.New(a.langs)
			defer engine.Close()

			name := doc.name
			if name == "" {
				name = filepath.Base(doc.path)
			}
			opts := []view.Option{
				view.WithName(name),
				view.WithHighlighter(engine),
				view.WithSelection(sessions.RestoreSelection(doc.id, cs)),
				view.WithSelectionFunc(func(sel model.SelectionState) {
					sessions.RememberSelection(doc.id, sel)
				}),
				view.WithSaveFunc(func(cs *model.ContentState) error {
					return a.writeDocument(ctx, doc, encoding.ConvertToRaw(cs))
				}),
			}
			if readOnly || doc.path == "-" {
				opts = append(opts, view.ReadOnly())
			}
			v := view.New(a.cfg, cs, opts...)

			screen, err := a.newScreen()
			if err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init terminal: %w", err)
			}
			defer screen.Fini()

			logger.Info("viewing document", "id", doc.id, "blocks", cs.BlockMap().Len())
			if err := v.Run(ctx, screen); err != nil {
				return err
			}
			if v.Dirty() {
				logger.Warn("closed with unsaved changes", "id", doc.id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Open the document without editing")
	return cmd
}

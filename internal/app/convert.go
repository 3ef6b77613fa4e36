package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kobzarvs/qdraft/internal/encoding"
	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/logger"
)

func (a *App) convertCommand() *cobra.Command {
	var from, to, output string
	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Normalize a raw document and re-encode it",
		Long: `Convert reads a raw document (a file path, "-" for stdin, or store:<name>),
builds the content state from it and writes the canonical raw form back out.
Entity keys are renumbered and styles are re-derived from the characters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer invariant.Recover(&err)

			inFormat, err := optionalFormat(from)
			if err != nil {
				return err
			}
			doc, err := a.readDocument(cmd.Context(), args[0], inFormat)
			if err != nil {
				return err
			}
			cs, err := a.contentState(doc.raw)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			outFormat, err := optionalFormat(to)
			if err != nil {
				return err
			}
			if outFormat == "" {
				outFormat = encoding.FormatFromPath(output, doc.format)
			}
			data, err := encoding.Marshal(encoding.ConvertToRaw(cs), outFormat)
			if err != nil {
				return err
			}

			logger.Info("converted document", "input", args[0], "output", output, "format", outFormat)
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Input format (json or yaml); guessed from the file name by default")
	cmd.Flags().StringVar(&to, "to", "", "Output format (json or yaml); defaults to the output file's or the input's format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (stdout when empty)")
	return cmd
}

func optionalFormat(s string) (encoding.Format, error) {
	if s == "" {
		return "", nil
	}
	return encoding.ParseFormat(s)
}

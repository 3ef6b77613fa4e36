package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kobzarvs/qdraft/internal/encoding"
	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/store"
)

func (a *App) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage documents in the configured store",
		Long:  `Store saves named documents in the backend selected by [store] in config.toml: a directory of JSON files or a Redis server.`,
	}
	cmd.AddCommand(a.storePutCommand(), a.storeGetCommand(), a.storeListCommand(), a.storeRemoveCommand())
	return cmd
}

// withStore opens the configured store for the duration of fn.
func (a *App) withStore(fn func(store.Store) error) (err error) {
	s, err := a.openStore(a.cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { err = multierr.Append(err, s.Close()) }()
	return fn(s)
}

func (a *App) storePutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "put <name> <input>",
		Short: "Validate a document and save it under name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer invariant.Recover(&err)
			name, input := args[0], args[1]

			doc, err := a.readDocument(cmd.Context(), input, "")
			if err != nil {
				return err
			}
			cs, err := a.contentState(doc.raw)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			return a.withStore(func(s store.Store) error {
				if err := s.Save(cmd.Context(), name, encoding.ConvertToRaw(cs)); err != nil {
					return err
				}
				logger.Info("stored document", "name", name, "input", input)
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", name)
				return nil
			})
		},
	}
}

func (a *App) storeGetCommand() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := a.defaultFormat()
			if to != "" {
				f, err := encoding.ParseFormat(to)
				if err != nil {
					return err
				}
				format = f
			}
			return a.withStore(func(s store.Store) error {
				raw, err := s.Load(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				data, err := encoding.Marshal(raw, format)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Output format (json or yaml)")
	return cmd
}

func (a *App) storeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s store.Store) error {
				names, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}

func (a *App) storeRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>...",
		Aliases: []string{"remove"},
		Short:   "Delete stored documents",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s store.Store) error {
				var errs error
				for _, name := range args {
					if err := s.Delete(cmd.Context(), name); err != nil {
						errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
						continue
					}
					logger.Info("removed document", "name", name)
				}
				return errs
			})
		},
	}
}

// Package app wires the qdraft command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kobzarvs/qdraft/internal/config"
	"github.com/kobzarvs/qdraft/internal/encoding"
	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/store"
)

const storePrefix = "store:"

// App is the top-level runtime for qdraft.
type App struct {
	cfg   config.Config
	langs config.Languages
	in    io.Reader

	newScreen func() (tcell.Screen, error)
	openStore func(config.Config) (store.Store, error)

	debug      bool
	logFile    string
	treeBlocks bool
	blockType  string
}

type Option func(*App)

// WithScreen replaces the terminal, for tests.
func WithScreen(fn func() (tcell.Screen, error)) Option {
	return func(a *App) { a.newScreen = fn }
}

func WithStdin(r io.Reader) Option { return func(a *App) { a.in = r } }

func New(opts ...Option) *App {
	a := &App{
		in:        os.Stdin,
		newScreen: terminalScreen,
		openStore: store.Open,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Command builds the root command.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "qdraft",
		Short:         "Inspect, convert and edit rich-text documents",
		Long:          `qdraft works with raw rich-text documents: blocks of text with inline styles and entity ranges, stored as JSON or YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}
	flags := root.PersistentFlags()
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&a.logFile, "log-file", "", "Write logs to this file")
	flags.BoolVar(&a.treeBlocks, "tree", false, "Keep nested raw blocks as a block tree")
	flags.StringVar(&a.blockType, "default-block-type", "", "Block type for raw blocks without one")

	root.AddCommand(a.convertCommand(), a.inspectCommand(), a.viewCommand(), a.storeCommand(), a.serveCommand())
	return root
}

func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	langs, err := config.LoadLanguages()
	if err != nil {
		return fmt.Errorf("load languages: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Log.Debug = a.debug
	}
	if flags.Changed("log-file") {
		cfg.Log.File = a.logFile
	}
	if flags.Changed("tree") {
		cfg.Document.TreeBlocks = a.treeBlocks
	}
	if flags.Changed("default-block-type") {
		cfg.Document.DefaultBlockType = a.blockType
	}
	a.cfg, a.langs = cfg, langs

	if err := logger.Init(cfg.Log.Debug, cfg.Log.File); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.Debug("command started", "cmd", cmd.CommandPath(), "args", cmd.Flags().Args())
	return nil
}

func (a *App) defaultFormat() encoding.Format {
	f, err := encoding.ParseFormat(a.cfg.Document.Format)
	if err != nil {
		return encoding.FormatJSON
	}
	return f
}

func (a *App) decodeOptions() []encoding.Option {
	return []encoding.Option{
		encoding.WithTreeBlocks(a.cfg.Document.TreeBlocks),
		encoding.WithDefaultBlockType(a.cfg.Document.DefaultBlockType),
	}
}

// terminalScreen refuses to start the view when stdin is redirected, since
// tcell would read keys from the wrong place.
func terminalScreen() (tcell.Screen, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("standard input is not a terminal")
	}
	return tcell.NewScreen()
}

// document is a raw document together with where it came from.
type document struct {
	id     string
	path   string
	name   string
	format encoding.Format
	raw    *encoding.RawContentState
}

func isStoreRef(arg string) bool { return strings.HasPrefix(arg, storePrefix) }

// readDocument loads arg: a file path, "-" for stdin, or store:<name>.
func (a *App) readDocument(ctx context.Context, arg string, format encoding.Format) (*document, error) {
	if isStoreRef(arg) {
		name := strings.TrimPrefix(arg, storePrefix)
		s, err := a.openStore(a.cfg)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		raw, err := s.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %q: %w", name, err)
		}
		return &document{id: arg, name: name, format: encoding.FormatJSON, raw: raw}, nil
	}

	var data []byte
	var err error
	if arg == "-" {
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = encoding.FormatFromPath(arg, a.defaultFormat())
	}
	raw, err := encoding.Unmarshal(data, format)
	if err != nil {
		return nil, err
	}
	doc := &document{id: arg, path: arg, format: format, raw: raw}
	if arg != "-" {
		if abs, err := absPath(arg); err == nil {
			doc.id = abs
		}
	}
	return doc, nil
}

// writeDocument stores raw back where doc came from.
func (a *App) writeDocument(ctx context.Context, doc *document, raw *encoding.RawContentState) error {
	if doc.name != "" {
		s, err := a.openStore(a.cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.Save(ctx, doc.name, raw)
	}
	if doc.path == "" || doc.path == "-" {
		return fmt.Errorf("document has no save target")
	}
	data, err := encoding.Marshal(raw, doc.format)
	if err != nil {
		return err
	}
	return writeFileAtomic(doc.path, data)
}

// contentState converts and validates a raw document.
func (a *App) contentState(raw *encoding.RawContentState) (*model.ContentState, error) {
	cs, err := encoding.ConvertFromRaw(raw, a.decodeOptions()...)
	if err != nil {
		return nil, err
	}
	if err := cs.ValidateEntities(); err != nil {
		return nil, err
	}
	return cs, nil
}

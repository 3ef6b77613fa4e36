// Package view renders a content state to a terminal and edits it through
// the transaction package.
package view

import (
	"context"
	"regexp"
	"sort"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qdraft/internal/config"
	"github.com/kobzarvs/qdraft/internal/decorator"
	"github.com/kobzarvs/qdraft/internal/highlight"
	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/model"
)

// Hashtags are decorated even when no entity marks them.
var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

type SaveFunc func(cs *model.ContentState) error

type View struct {
	cs     *model.ContentState
	sel    model.SelectionState
	name   string
	keymap map[string]string
	pal    palette

	decorator   *decorator.Composite
	highlighter *highlight.Engine
	spans       map[string][]highlight.Span
	stale       bool

	onSave   SaveFunc
	onSelect func(model.SelectionState)
	readOnly bool

	// styleOverride is the style typed text takes after a toggle with a
	// collapsed selection; nil means "use the style at the caret".
	styleOverride *model.StyleSet

	scroll     int
	viewHeight int
	dirty      bool
	status     string
}

type Option func(*View)

func WithName(name string) Option { return func(v *View) { v.name = name } }

func WithHighlighter(e *highlight.Engine) Option {
	return func(v *View) { v.highlighter = e }
}

func WithDecorator(c *decorator.Composite) Option {
	return func(v *View) { v.decorator = c }
}

func WithSaveFunc(fn SaveFunc) Option { return func(v *View) { v.onSave = fn } }

// WithSelectionFunc is called after every selection change.
func WithSelectionFunc(fn func(model.SelectionState)) Option {
	return func(v *View) { v.onSelect = fn }
}

func WithSelection(sel model.SelectionState) Option {
	return func(v *View) { v.sel = sel }
}

func ReadOnly() Option { return func(v *View) { v.readOnly = true } }

func New(cfg config.Config, cs *model.ContentState, opts ...Option) *View {
	keymap := make(map[string]string, len(cfg.Keymap))
	for k, a := range cfg.Keymap {
		keymap[k] = a
	}
	v := &View{
		cs:     cs,
		sel:    model.CollapsedAt(cs.FirstBlock().Key(), 0),
		keymap: keymap,
		pal:    newPalette(cfg.Theme),
		stale:  true,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.decorator == nil {
		v.decorator = DefaultDecorator(cfg.Theme)
	}
	v.sel = v.clampSelection(v.sel)
	v.sel.HasFocus = true
	return v
}

// DefaultDecorator decorates every entity type the theme has a colour for,
// then hashtags.
func DefaultDecorator(t config.Theme) *decorator.Composite {
	types := make([]string, 0, len(t.Entities))
	for name := range t.Entities {
		types = append(types, name)
	}
	sort.Strings(types)
	decs := make([]decorator.Decorator, 0, len(types)+1)
	for _, name := range types {
		decs = append(decs, decorator.Decorator{Name: name, Strategy: decorator.EntityStrategy(name)})
	}
	decs = append(decs, decorator.Decorator{Name: "hashtag", Strategy: decorator.RegexpStrategy(hashtagPattern)})
	return decorator.NewComposite(decs...)
}

func (v *View) Content() *model.ContentState    { return v.cs }
func (v *View) Selection() model.SelectionState { return v.sel }
func (v *View) Dirty() bool                     { return v.dirty }
func (v *View) Status() string                  { return v.status }

func (v *View) setStatus(msg string) {
	v.status = msg
}

func (v *View) refreshHighlights() {
	if !v.stale {
		return
	}
	v.stale = false
	if v.highlighter == nil {
		return
	}
	spans, err := v.highlighter.Highlight(context.Background(), v.cs)
	if err != nil {
		logger.Named("view").Warnw("highlight failed", "error", err)
		return
	}
	v.spans = spans
}

// Run draws the view and handles events until quit or ctx is done.
func (v *View) Run(ctx context.Context, s tcell.Screen) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	for {
		v.Render(s)
		switch ev := s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventKey:
			if v.HandleKey(ev) {
				return nil
			}
		case *tcell.EventInterrupt:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

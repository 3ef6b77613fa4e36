// Package highlight computes syntax spans for code blocks. Adjacent
// code-block blocks that share data.language are parsed as one source so a
// construct may span several blocks.
package highlight

import (
	"context"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/yaml"

	"github.com/kobzarvs/qdraft/internal/config"
	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/ranges"
	"github.com/kobzarvs/qdraft/internal/unicodeutil"
)

const CodeBlockType = "code-block"

// Span colours [Start, End) of a block, in code units.
type Span struct {
	Start int
	End   int
	Kind  string
}

type grammar struct {
	lang  *sitter.Language
	query string
}

var grammars = map[string]grammar{
	"go":   {golang.GetLanguage(), goHighlightQuery},
	"yaml": {yaml.GetLanguage(), yamlHighlightQuery},
	"toml": {toml.GetLanguage(), tomlHighlightQuery},
	"bash": {bash.GetLanguage(), bashHighlightQuery},
}

const maxCached = 64

type Engine struct {
	langs   config.Languages
	mu      sync.Mutex
	parsers map[string]*sitter.Parser
	queries map[string]*sitter.Query
	cache   map[string][][]Span
}

func New(langs config.Languages) *Engine {
	return &Engine{
		langs:   langs,
		parsers: make(map[string]*sitter.Parser),
		queries: make(map[string]*sitter.Query),
		cache:   make(map[string][][]Span),
	}
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, p := range e.parsers {
		p.Close()
		delete(e.parsers, name)
	}
	for name, q := range e.queries {
		q.Close()
		delete(e.queries, name)
	}
	clear(e.cache)
}

// group is a run of adjacent code blocks with the same language.
type group struct {
	language string
	blocks   []*model.ContentBlock
}

func (g group) source() string {
	texts := make([]string, len(g.blocks))
	for i, b := range g.blocks {
		texts[i] = b.Text()
	}
	return strings.Join(texts, "\n")
}

func blockLanguage(b *model.ContentBlock) string {
	if b.Type() != CodeBlockType {
		return ""
	}
	v, _ := b.DataValue("language")
	s, _ := v.(string)
	return s
}

func groups(cs *model.ContentState) []group {
	var out []group
	var cur *group
	for _, b := range cs.BlocksAsArray() {
		lang := blockLanguage(b)
		if lang == "" {
			cur = nil
			continue
		}
		if cur != nil && cur.language == lang {
			cur.blocks = append(cur.blocks, b)
			continue
		}
		out = append(out, group{language: lang, blocks: []*model.ContentBlock{b}})
		cur = &out[len(out)-1]
	}
	return out
}

// Highlight returns spans keyed by block key. Blocks whose language has no
// grammar are absent from the result.
func (e *Engine) Highlight(ctx context.Context, cs *model.ContentState) (map[string][]Span, error) {
	out := make(map[string][]Span)
	for _, g := range groups(cs) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lang := e.langs.Match(g.language)
		if lang == nil {
			continue
		}
		spans, err := e.highlightGroup(ctx, lang.Grammar, g)
		if err != nil {
			return nil, err
		}
		for i, b := range g.blocks {
			if len(spans[i]) > 0 {
				out[b.Key()] = spans[i]
			}
		}
	}
	return out, nil
}

func (e *Engine) highlightGroup(ctx context.Context, name string, g group) ([][]Span, error) {
	src := g.source()
	cacheKey := name + "\x00" + src

	e.mu.Lock()
	defer e.mu.Unlock()
	if spans, ok := e.cache[cacheKey]; ok {
		return spans, nil
	}

	res := newResolver(g.blocks)
	if name == "json" {
		jsonHighlights(res, g.blocks)
	} else {
		parser, query := e.load(name)
		if parser == nil || query == nil {
			return nil, nil
		}
		tree, err := parser.ParseCtx(ctx, nil, []byte(src))
		if err != nil {
			return nil, err
		}
		defer tree.Close()
		queryHighlights(res, query, tree, []byte(src))
	}

	spans := res.spans()
	if len(e.cache) >= maxCached {
		clear(e.cache)
	}
	e.cache[cacheKey] = spans
	return spans, nil
}

func (e *Engine) load(name string) (*sitter.Parser, *sitter.Query) {
	if p, ok := e.parsers[name]; ok {
		return p, e.queries[name]
	}
	gr, ok := grammars[name]
	if !ok {
		return nil, nil
	}
	p := sitter.NewParser()
	p.SetLanguage(gr.lang)
	e.parsers[name] = p

	q, err := sitter.NewQuery([]byte(gr.query), gr.lang)
	if err != nil {
		logger.Named("highlight").Warnw("highlight query rejected", "grammar", name, "error", err)
		return p, nil
	}
	e.queries[name] = q
	return p, q
}

func queryHighlights(res *resolver, query *sitter.Query, tree *sitter.Tree, source []byte) {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, tree.RootNode())
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		match = cursor.FilterPredicates(match, source)
		if match == nil {
			continue
		}
		for _, capture := range match.Captures {
			kind := query.CaptureNameForId(capture.Index)
			res.claim(int(capture.Node.StartByte()), int(capture.Node.EndByte()), kind, int(match.PatternIndex))
		}
	}
}

// resolver keeps one kind per code unit. A narrower capture beats a wider
// one; on equal width the earlier pattern wins.
type resolver struct {
	blocks []*model.ContentBlock
	starts []int // byte offset of each block in the joined source
	kinds  [][]claim
}

type claim struct {
	kind    string
	width   int
	pattern int
}

func newResolver(blocks []*model.ContentBlock) *resolver {
	r := &resolver{blocks: blocks}
	pos := 0
	for _, b := range blocks {
		r.starts = append(r.starts, pos)
		r.kinds = append(r.kinds, make([]claim, b.Length()))
		pos += len(b.Text()) + 1
	}
	return r
}

// claim records kind over source bytes [from, to).
func (r *resolver) claim(from, to int, kind string, pattern int) {
	width := to - from
	for i, b := range r.blocks {
		text := b.Text()
		lo, hi := from-r.starts[i], to-r.starts[i]
		if hi <= 0 || lo >= len(text) {
			continue
		}
		start := unicodeutil.ByteToUnit(text, max(lo, 0))
		end := unicodeutil.ByteToUnit(text, min(hi, len(text)))
		cells := r.kinds[i]
		for u := start; u < end; u++ {
			c := cells[u]
			if c.kind == "" || width < c.width || (width == c.width && pattern < c.pattern) {
				cells[u] = claim{kind: kind, width: width, pattern: pattern}
			}
		}
	}
}

func (r *resolver) spans() [][]Span {
	out := make([][]Span, len(r.blocks))
	for i, cells := range r.kinds {
		ranges.Find(cells,
			func(a, b claim) bool { return a.kind == b.kind },
			func(c claim) bool { return c.kind != "" },
			func(start, end int) {
				out[i] = append(out[i], Span{Start: start, End: end, Kind: cells[start].kind})
			})
	}
	return out
}

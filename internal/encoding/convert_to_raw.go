package encoding

import (
	"strconv"

	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/model"
)

// ConvertToRaw serializes cs. Entity keys are renumbered "0", "1", ... in
// the order they are first referenced; unreferenced entities are not
// exported. Blocks with tree links are nested under their parent.
func ConvertToRaw(cs *model.ContentState) *RawContentState {
	indices := map[string]string{}
	raw := &RawContentState{EntityMap: map[string]RawEntity{}}

	blocks := cs.BlocksAsArray()
	converted := make(map[string]*RawBlock, len(blocks))
	tree := false
	for _, b := range blocks {
		for _, key := range entityKeys(b.CharacterList()) {
			if _, ok := indices[key]; ok {
				continue
			}
			idx := strconv.Itoa(len(indices))
			indices[key] = idx
			raw.EntityMap[idx] = rawEntity(cs.Entity(key))
		}
		converted[b.Key()] = rawBlock(b, indices)
		tree = tree || b.HasTreeLinks()
	}

	if !tree {
		raw.Blocks = make([]RawBlock, 0, len(blocks))
		for _, b := range blocks {
			raw.Blocks = append(raw.Blocks, *converted[b.Key()])
		}
	} else {
		raw.Blocks = nestBlocks(blocks, converted)
	}

	logger.Named("encoding").Debugw("converted to raw",
		"blocks", len(blocks), "entities", len(raw.EntityMap), "tree", tree)
	return raw
}

func rawEntity(e *model.Entity) RawEntity {
	data := e.Data()
	if data == nil {
		data = map[string]any{}
	}
	return RawEntity{Type: e.Type(), Mutability: string(e.Mutability()), Data: data}
}

func rawBlock(b *model.ContentBlock, indices map[string]string) *RawBlock {
	entityRanges := EncodeEntityRanges(b)
	for i := range entityRanges {
		entityRanges[i].Key = RawKey(indices[string(entityRanges[i].Key)])
	}
	data := b.Data()
	if data == nil {
		data = map[string]any{}
	}
	styles := EncodeInlineStyleRanges(b)
	if styles == nil {
		styles = []RawInlineStyleRange{}
	}
	if entityRanges == nil {
		entityRanges = []RawEntityRange{}
	}
	return &RawBlock{
		Key:               b.Key(),
		Text:              b.Text(),
		Type:              b.Type(),
		Depth:             b.Depth(),
		InlineStyleRanges: styles,
		EntityRanges:      entityRanges,
		Data:              data,
	}
}

// nestBlocks places each block under its parent, children in document
// order. Blocks whose parent is unknown stay at the top level.
func nestBlocks(blocks []*model.ContentBlock, converted map[string]*RawBlock) []RawBlock {
	children := map[string][]string{}
	var roots []string
	for _, b := range blocks {
		p := b.Parent()
		if _, ok := converted[p]; p != "" && ok {
			children[p] = append(children[p], b.Key())
			continue
		}
		roots = append(roots, b.Key())
	}
	var build func(key string) RawBlock
	build = func(key string) RawBlock {
		rb := *converted[key]
		for _, ck := range children[key] {
			rb.Children = append(rb.Children, build(ck))
		}
		return rb
	}
	out := make([]RawBlock, 0, len(roots))
	for _, k := range roots {
		out = append(out, build(k))
	}
	return out
}

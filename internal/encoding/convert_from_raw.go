package encoding

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/model"
)

var (
	// ErrDuplicateBlockKey is returned when two raw blocks share a key.
	ErrDuplicateBlockKey = errors.New("duplicate block key")
	// ErrInvalidRange is returned for a style or entity range with a
	// negative offset or length.
	ErrInvalidRange = errors.New("invalid range")
)

type options struct {
	treeBlocks       bool
	defaultBlockType string
}

// Option configures ConvertFromRaw.
type Option func(*options)

// WithTreeBlocks keeps nested raw blocks as linked block nodes. Without it
// nested documents are flattened depth first.
func WithTreeBlocks(on bool) Option {
	return func(o *options) { o.treeBlocks = on }
}

// WithDefaultBlockType sets the type given to raw blocks that have none.
func WithDefaultBlockType(t string) Option {
	return func(o *options) {
		if t != "" {
			o.defaultBlockType = t
		}
	}
}

// ConvertFromRaw builds a content state from raw. Raw entity indices are
// remapped to freshly minted keys, and ranges naming indices missing from
// the raw entity map are dropped. Raw input is untrusted, so malformed
// documents produce errors rather than contract violations.
func ConvertFromRaw(raw *RawContentState, opts ...Option) (*model.ContentState, error) {
	o := options{defaultBlockType: model.DefaultBlockType}
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkRanges(raw.Blocks); err != nil {
		return nil, err
	}
	entityMap, keyMap, err := decodeEntityMap(raw.EntityMap)
	if err != nil {
		return nil, err
	}

	var blocks []*model.ContentBlock
	switch {
	case o.treeBlocks && raw.IsTree():
		blocks = decodeTree(raw.Blocks, "", keyMap, o)
	default:
		for _, rb := range flattenRawBlocks(raw.Blocks) {
			blocks = append(blocks, model.NewContentBlock(decodeBlock(rb, keyMap, o)))
		}
	}

	seen := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		if seen[b.Key()] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBlockKey, b.Key())
		}
		seen[b.Key()] = true
	}
	if o.treeBlocks && raw.IsTree() {
		if err := model.ValidateTree(model.CreateFromArray(blocks)); err != nil {
			return nil, fmt.Errorf("invalid block tree: %w", err)
		}
	}

	logger.Named("encoding").Debugw("converted from raw",
		"blocks", len(blocks), "entities", entityMap.Len(), "tree", o.treeBlocks && raw.IsTree())
	return model.CreateFromBlockArray(blocks, entityMap), nil
}

// decodeEntityMap creates one entity per raw entry. Numeric raw keys are
// processed in numeric order, then the rest lexically, so minted keys are
// deterministic.
func decodeEntityMap(raw map[string]RawEntity) (*model.EntityMap, map[string]string, error) {
	rawKeys := make([]string, 0, len(raw))
	for k := range raw {
		rawKeys = append(rawKeys, k)
	}
	slices.SortFunc(rawKeys, compareRawKeys)

	em := model.NewEntityMap()
	keyMap := make(map[string]string, len(raw))
	for _, rk := range rawKeys {
		re := raw[rk]
		mut := model.Mutable
		if re.Mutability != "" {
			m, err := model.ParseMutability(re.Mutability)
			if err != nil {
				return nil, nil, fmt.Errorf("entity %q: %w", rk, err)
			}
			mut = m
		}
		var key string
		em, key = em.Create(re.Type, mut, re.Data)
		keyMap[rk] = key
	}
	return em, keyMap, nil
}

// checkRanges rejects negative offsets and lengths, nested blocks included.
func checkRanges(rbs []RawBlock) error {
	for _, rb := range rbs {
		for _, r := range rb.InlineStyleRanges {
			if r.Offset < 0 || r.Length < 0 {
				return fmt.Errorf("%w: block %q style %s at %d+%d", ErrInvalidRange, rb.Key, r.Style, r.Offset, r.Length)
			}
		}
		for _, r := range rb.EntityRanges {
			if r.Offset < 0 || r.Length < 0 {
				return fmt.Errorf("%w: block %q entity %s at %d+%d", ErrInvalidRange, rb.Key, r.Key, r.Offset, r.Length)
			}
		}
		if err := checkRanges(rb.Children); err != nil {
			return err
		}
	}
	return nil
}

func compareRawKeys(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na - nb
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

func decodeBlock(rb RawBlock, keyMap map[string]string, o options) model.BlockConfig {
	var ranges []RawEntityRange
	for _, r := range rb.EntityRanges {
		key, ok := keyMap[string(r.Key)]
		if !ok {
			continue
		}
		r.Key = RawKey(key)
		ranges = append(ranges, r)
	}
	styles := DecodeInlineStyleRanges(rb.Text, rb.InlineStyleRanges)
	entities := DecodeEntityRanges(rb.Text, ranges)

	blockType := rb.Type
	if blockType == "" {
		blockType = o.defaultBlockType
	}
	return model.BlockConfig{
		Key:        rb.Key,
		Type:       blockType,
		Text:       rb.Text,
		Characters: model.BuildCharacterList(styles, entities),
		Depth:      rb.Depth,
		Data:       rb.Data,
	}
}

// decodeTree turns nested raw blocks into linked nodes in pre-order.
func decodeTree(rbs []RawBlock, parent string, keyMap map[string]string, o options) []*model.ContentBlock {
	cfgs := make([]model.BlockConfig, len(rbs))
	for i, rb := range rbs {
		cfgs[i] = decodeBlock(rb, keyMap, o)
		if cfgs[i].Key == "" {
			cfgs[i].Key = model.GenKey()
		}
		cfgs[i].Parent = parent
	}
	var out []*model.ContentBlock
	for i, rb := range rbs {
		cfg := cfgs[i]
		if i > 0 {
			cfg.PrevSibling = cfgs[i-1].Key
		}
		if i+1 < len(cfgs) {
			cfg.NextSibling = cfgs[i+1].Key
		}
		children := decodeTree(rb.Children, cfg.Key, keyMap, o)
		for _, c := range children {
			if c.Parent() == cfg.Key {
				cfg.Children = append(cfg.Children, c.Key())
			}
		}
		out = append(out, model.NewContentBlock(cfg))
		out = append(out, children...)
	}
	return out
}

var listBlockTypes = map[string]bool{
	"unordered-list-item": true,
	"ordered-list-item":   true,
}

// flattenRawBlocks lists nested raw blocks depth first. List containers
// push their depth onto their children, and text-less containers are
// dropped.
func flattenRawBlocks(rbs []RawBlock) []RawBlock {
	var out []RawBlock
	var walk func(rbs []RawBlock, minDepth int)
	walk = func(rbs []RawBlock, minDepth int) {
		for _, rb := range rbs {
			rb.Depth = max(rb.Depth, minDepth)
			children := rb.Children
			rb.Children = nil
			if len(children) == 0 || rb.Text != "" {
				out = append(out, rb)
			}
			childDepth := 0
			if listBlockTypes[rb.Type] {
				childDepth = rb.Depth + 1
			}
			walk(children, childDepth)
		}
	}
	walk(rbs, 0)
	return out
}

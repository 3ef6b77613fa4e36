package encoding

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kobzarvs/qdraft/internal/model"
)

func linkState(t *testing.T) *model.ContentState {
	t.Helper()
	em := model.NewEntityMap()
	for _, k := range []string{"2", "3", "4", "5"} {
		em = em.Put(k, model.NewEntity("LINK", model.Mutable, map[string]any{"url": "www." + k + ".com"}))
	}
	set := model.NewEntitySet
	empty := model.EntitySet{}
	a := withEntities("a", "link2 link2 link3", concatSets(repeatSet(set("2"), 5), []model.EntitySet{empty},
		repeatSet(set("2"), 5), []model.EntitySet{empty}, repeatSet(set("3"), 5))...)
	b := withEntities("b", "link4 link2 link5", concatSets(repeatSet(set("4"), 5), []model.EntitySet{empty},
		repeatSet(set("2"), 5), []model.EntitySet{empty}, repeatSet(set("5"), 5))...)
	return model.CreateFromBlockArray([]*model.ContentBlock{a, b}, em)
}

func TestConvertToRawRenumbersEntities(t *testing.T) {
	raw := ConvertToRaw(linkState(t))
	if len(raw.EntityMap) != 4 {
		t.Fatalf("entityMap = %v", raw.EntityMap)
	}
	wantURL := map[string]string{"0": "www.2.com", "1": "www.3.com", "2": "www.4.com", "3": "www.5.com"}
	for idx, url := range wantURL {
		if got := raw.EntityMap[idx].Data["url"]; got != url {
			t.Fatalf("entityMap[%s].url = %v, want %s", idx, got, url)
		}
	}
	want := []RawEntityRange{{0, 5, "2"}, {6, 5, "0"}, {12, 5, "3"}}
	if !reflect.DeepEqual(raw.Blocks[1].EntityRanges, want) {
		t.Fatalf("block b ranges = %+v, want %+v", raw.Blocks[1].EntityRanges, want)
	}
	if raw.Blocks[0].InlineStyleRanges == nil || raw.Blocks[0].Data == nil {
		t.Fatalf("range arrays and data must not be nil")
	}
}

func TestConvertToRawSkipsUnreferencedEntities(t *testing.T) {
	cs, _ := model.CreateFromText("plain").CreateEntity("LINK", model.Mutable, nil)
	raw := ConvertToRaw(cs)
	if len(raw.EntityMap) != 0 {
		t.Fatalf("unreferenced entity exported: %v", raw.EntityMap)
	}
}

func TestConvertRoundTrip(t *testing.T) {
	cs := linkState(t)
	raw := ConvertToRaw(cs)
	back, err := ConvertFromRaw(raw)
	if err != nil {
		t.Fatalf("ConvertFromRaw: %v", err)
	}
	again := ConvertToRaw(back)
	if !reflect.DeepEqual(raw, again) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", raw, again)
	}
	if back.EntityMap().Len() != 4 {
		t.Fatalf("entities = %d, want 4", back.EntityMap().Len())
	}
}

func TestConvertFromRawDefaultsAndUnknownKeys(t *testing.T) {
	raw := &RawContentState{
		Blocks: []RawBlock{{
			Text:         "hello",
			EntityRanges: []RawEntityRange{{0, 2, "7"}, {2, 3, "missing"}},
		}},
		EntityMap: map[string]RawEntity{"7": {Type: "MENTION", Mutability: "SEGMENTED"}},
	}
	cs, err := ConvertFromRaw(raw)
	if err != nil {
		t.Fatalf("ConvertFromRaw: %v", err)
	}
	b := cs.FirstBlock()
	if b.Key() == "" || b.Type() != model.DefaultBlockType || b.Depth() != 0 {
		t.Fatalf("defaults not applied: key=%q type=%q", b.Key(), b.Type())
	}
	key := b.EntityAt(0).Items()[0]
	if key != "1" {
		t.Fatalf("raw index not remapped to a fresh key: %q", key)
	}
	if cs.Entity(key).Mutability() != model.Segmented {
		t.Fatalf("mutability = %s", cs.Entity(key).Mutability())
	}
	if !b.EntityAt(3).IsEmpty() {
		t.Fatalf("range with unknown key should be dropped")
	}
}

func TestConvertFromRawDefaultBlockType(t *testing.T) {
	raw := &RawContentState{Blocks: []RawBlock{{Text: "x"}}}
	cs, err := ConvertFromRaw(raw, WithDefaultBlockType("paragraph"))
	if err != nil {
		t.Fatalf("ConvertFromRaw: %v", err)
	}
	if cs.FirstBlock().Type() != "paragraph" {
		t.Fatalf("type = %q", cs.FirstBlock().Type())
	}
}

func TestConvertFromRawErrors(t *testing.T) {
	_, err := ConvertFromRaw(&RawContentState{EntityMap: map[string]RawEntity{"0": {Type: "LINK", Mutability: "sticky"}}})
	if !errors.Is(err, model.ErrInvalidMutability) {
		t.Fatalf("expected ErrInvalidMutability, got %v", err)
	}
	_, err = ConvertFromRaw(&RawContentState{Blocks: []RawBlock{{Key: "a"}, {Key: "a"}}})
	if !errors.Is(err, ErrDuplicateBlockKey) {
		t.Fatalf("expected ErrDuplicateBlockKey, got %v", err)
	}

	raw, err := Unmarshal([]byte(`{"blocks":[{"key":"a","text":"abc","entityRanges":[{"offset":-1,"length":1,"key":0}]}],
		"entityMap":{"0":{"type":"LINK","mutability":"MUTABLE"}}}`), FormatJSON)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, err := ConvertFromRaw(raw); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("negative entity offset: got %v", err)
	}
	nested := &RawContentState{Blocks: []RawBlock{{Key: "p", Children: []RawBlock{
		{Key: "c", Text: "abc", InlineStyleRanges: []RawInlineStyleRange{{Offset: 0, Length: -2, Style: "BOLD"}}},
	}}}}
	if _, err := ConvertFromRaw(nested, WithTreeBlocks(true)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("negative style length in child: got %v", err)
	}
}

func treeRaw() *RawContentState {
	return &RawContentState{
		Blocks: []RawBlock{
			{Key: "A", Type: "table", Children: []RawBlock{
				{Key: "B", Children: []RawBlock{
					{Key: "C", Text: "left block"},
					{Key: "D", Text: "right block"},
				}},
				{Key: "E", Text: "This is a tree based document!", Type: "header-one"},
			}},
			{Key: "F", Text: "after"},
		},
	}
}

func TestConvertFromRawTreeBlocks(t *testing.T) {
	cs, err := ConvertFromRaw(treeRaw(), WithTreeBlocks(true))
	if err != nil {
		t.Fatalf("ConvertFromRaw: %v", err)
	}
	if got := cs.BlockMap().Keys(); !reflect.DeepEqual(got, []string{"A", "B", "C", "D", "E", "F"}) {
		t.Fatalf("order = %v", got)
	}
	b := cs.BlockForKey("B")
	if b.Parent() != "A" || b.NextSibling() != "E" || !reflect.DeepEqual(b.Children(), []string{"C", "D"}) {
		t.Fatalf("B links: parent=%q next=%q children=%v", b.Parent(), b.NextSibling(), b.Children())
	}
	if cs.BlockForKey("A").NextSibling() != "F" || cs.BlockForKey("F").PrevSibling() != "A" {
		t.Fatalf("root siblings not linked")
	}

	raw := ConvertToRaw(cs)
	if len(raw.Blocks) != 2 || len(raw.Blocks[0].Children) != 2 || len(raw.Blocks[0].Children[0].Children) != 2 {
		t.Fatalf("tree not nested on export: %+v", raw.Blocks)
	}
	if raw.Blocks[0].Children[1].Key != "E" {
		t.Fatalf("children order = %+v", raw.Blocks[0].Children)
	}
}

func TestConvertFromRawTreeRejectsContainerText(t *testing.T) {
	raw := treeRaw()
	raw.Blocks[0].Text = "oops"
	_, err := ConvertFromRaw(raw, WithTreeBlocks(true))
	if err == nil || !strings.Contains(err.Error(), "invalid block tree") {
		t.Fatalf("expected tree error, got %v", err)
	}
}

func TestConvertFromRawFlattensWithoutTreeSupport(t *testing.T) {
	raw := &RawContentState{Blocks: []RawBlock{
		{Key: "L", Type: "unordered-list-item", Text: "item", Children: []RawBlock{
			{Key: "L1", Type: "unordered-list-item", Text: "nested"},
		}},
		{Key: "W", Children: []RawBlock{{Key: "W1", Text: "inner"}}},
	}}
	cs, err := ConvertFromRaw(raw)
	if err != nil {
		t.Fatalf("ConvertFromRaw: %v", err)
	}
	if got := cs.BlockMap().Keys(); !reflect.DeepEqual(got, []string{"L", "L1", "W1"}) {
		t.Fatalf("flattened order = %v", got)
	}
	if cs.BlockForKey("L1").Depth() != 1 {
		t.Fatalf("list child depth = %d, want 1", cs.BlockForKey("L1").Depth())
	}
	if cs.BlockForKey("L1").HasTreeLinks() {
		t.Fatalf("flattened block kept tree links")
	}
}

package highlight

import (
	"regexp"
	"strings"

	"github.com/kobzarvs/qdraft/internal/model"
)

// JSON has no grammar in the bundled set; each block is scanned line-wise.
var (
	jsonString = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
	jsonNumber = regexp.MustCompile(`-?\b\d+(?:\.\d+)?(?:[eE][+-]?\d+)?\b`)
	jsonWord   = regexp.MustCompile(`\b(?:true|false|null)\b`)
)

// Pattern ranks passed to the resolver; strings are matched first so
// digits inside them stay strings.
const (
	rankString = iota
	rankNumber
	rankWord
)

func jsonHighlights(res *resolver, blocks []*model.ContentBlock) {
	for i, b := range blocks {
		text := b.Text()
		base := res.starts[i]
		var inString []bool
		if len(text) > 0 {
			inString = make([]bool, len(text))
		}
		for _, loc := range jsonString.FindAllStringIndex(text, -1) {
			kind := "string"
			if rest := strings.TrimLeft(text[loc[1]:], " \t"); strings.HasPrefix(rest, ":") {
				kind = "field"
			}
			for j := loc[0]; j < loc[1]; j++ {
				inString[j] = true
			}
			res.claim(base+loc[0], base+loc[1], kind, rankString)
		}
		for _, loc := range jsonNumber.FindAllStringIndex(text, -1) {
			if !inString[loc[0]] {
				res.claim(base+loc[0], base+loc[1], "number", rankNumber)
			}
		}
		for _, loc := range jsonWord.FindAllStringIndex(text, -1) {
			if !inString[loc[0]] {
				res.claim(base+loc[0], base+loc[1], "constant", rankWord)
			}
		}
	}
}

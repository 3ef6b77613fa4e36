package model

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"
)

// ValidateTree checks the parent, child and sibling links of every block
// and reports all broken links at once. A valid forest has exactly one
// block that is both a root and a first sibling, and every block is
// reachable from it by walking children and next siblings.
func ValidateTree(bm *BlockMap) error {
	var err error
	var firsts []string
	bm.Range(func(b *ContentBlock) bool {
		err = multierr.Append(err, validateNode(bm, b))
		if b.parent == "" && b.prevSibling == "" {
			firsts = append(firsts, b.key)
		}
		return true
	})
	if err != nil {
		return err
	}
	if len(firsts) != 1 {
		return fmt.Errorf("tree has %d first root blocks %v, want 1", len(firsts), firsts)
	}
	return checkConnected(bm, firsts[0])
}

func validateNode(bm *BlockMap, b *ContentBlock) error {
	var err error
	key := b.key
	if b.parent != "" {
		parent, ok := bm.Get(b.parent)
		switch {
		case b.parent == key:
			err = multierr.Append(err, fmt.Errorf("block %q is its own parent", key))
		case !ok:
			err = multierr.Append(err, fmt.Errorf("block %q: parent %q does not exist", key, b.parent))
		case !slices.Contains(parent.children, key):
			err = multierr.Append(err, fmt.Errorf("block %q: parent %q does not list it as a child", key, b.parent))
		}
	}
	if len(b.children) > 0 && b.text != "" {
		err = multierr.Append(err, fmt.Errorf("block %q has children and text", key))
	}
	for i, ck := range b.children {
		child, ok := bm.Get(ck)
		switch {
		case slices.Index(b.children, ck) != i:
			err = multierr.Append(err, fmt.Errorf("block %q lists child %q twice", key, ck))
		case ck == key:
			err = multierr.Append(err, fmt.Errorf("block %q lists itself as a child", key))
		case !ok:
			err = multierr.Append(err, fmt.Errorf("block %q: child %q does not exist", key, ck))
		case child.parent != key:
			err = multierr.Append(err, fmt.Errorf("block %q: child %q has parent %q", key, ck, child.parent))
		case i == 0 && child.prevSibling != "":
			err = multierr.Append(err, fmt.Errorf("block %q: first child %q has a previous sibling", key, ck))
		case i == len(b.children)-1 && child.nextSibling != "":
			err = multierr.Append(err, fmt.Errorf("block %q: last child %q has a next sibling", key, ck))
		case i > 0 && child.prevSibling != b.children[i-1]:
			err = multierr.Append(err, fmt.Errorf("block %q: child %q is out of sibling order", key, ck))
		}
	}
	if b.prevSibling != "" {
		err = multierr.Append(err, checkSibling(bm, b, b.prevSibling, func(s *ContentBlock) string { return s.nextSibling }))
	}
	if b.nextSibling != "" {
		err = multierr.Append(err, checkSibling(bm, b, b.nextSibling, func(s *ContentBlock) string { return s.prevSibling }))
	}
	return err
}

func checkSibling(bm *BlockMap, b *ContentBlock, sibKey string, backLink func(*ContentBlock) string) error {
	if sibKey == b.key {
		return fmt.Errorf("block %q is its own sibling", b.key)
	}
	sib, ok := bm.Get(sibKey)
	if !ok {
		return fmt.Errorf("block %q: sibling %q does not exist", b.key, sibKey)
	}
	if backLink(sib) != b.key {
		return fmt.Errorf("block %q: sibling %q does not link back", b.key, sibKey)
	}
	if sib.parent != b.parent {
		return fmt.Errorf("block %q: sibling %q has a different parent", b.key, sibKey)
	}
	return nil
}

var errTreeCycle = errors.New("block tree contains a cycle")

func checkConnected(bm *BlockMap, first string) error {
	seen := make(map[string]bool, bm.Len())
	stack := []string{first}
	for len(stack) > 0 {
		key := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[key] {
			return errTreeCycle
		}
		seen[key] = true
		b, _ := bm.Get(key)
		if b.nextSibling != "" {
			stack = append(stack, b.nextSibling)
		}
		if len(b.children) > 0 {
			stack = append(stack, b.children[0])
		}
	}
	if len(seen) != bm.Len() {
		return fmt.Errorf("block tree is disconnected: reached %d of %d blocks", len(seen), bm.Len())
	}
	return nil
}

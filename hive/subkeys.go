package hive

import (
	"bytes"
	"io"
	"sort"

	"github.com/joshuapare/nthive/internal/format"
)

// maxListDepth bounds the nesting of index-root lists. Real hives use a
// single ri level; anything deeper than this is a crafted input.
const maxListDepth = 32

// SubkeyIterator walks a key's children in on-disk order, descending
// depth-first through index roots. Next returns io.EOF after the last
// child; a malformed step yields its error and ends the iteration.
type SubkeyIterator struct {
	h        *Hive
	stack    []listFrame
	expected uint32
	seen     uint32
	countOff int // offset of the parent's subkey-count field
	done     bool
}

type listFrame struct {
	list subkeyList
	idx  int
}

func (it *SubkeyIterator) push(rel uint32) error {
	if len(it.stack) >= maxListDepth {
		return errAt(ErrRecursionLimit, it.countOff,
			"list nesting deeper than %d", maxListDepth)
	}
	list, err := parseSubkeyList(it.h, rel)
	if err != nil {
		return err
	}
	it.stack = append(it.stack, listFrame{list: list})
	return nil
}

// Next returns the next child key node or io.EOF. After the traversal the
// declared parent count is checked against the number of children seen.
func (it *SubkeyIterator) Next() (KeyNode, error) {
	if it.done {
		return KeyNode{}, io.EOF
	}
	for len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		if frame.idx >= frame.list.count {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		i := frame.idx
		frame.idx++

		if frame.list.kind == listRI {
			if err := it.push(frame.list.entryCell(i)); err != nil {
				it.done = true
				return KeyNode{}, err
			}
			continue
		}

		child, err := frame.list.childAt(i)
		if err != nil {
			it.done = true
			return KeyNode{}, err
		}
		it.seen++
		return child, nil
	}

	it.done = true
	if it.seen != it.expected {
		return KeyNode{}, errAt(ErrInvalidSubkeyCount, it.countOff,
			"declared %d subkeys, traversal found %d", it.expected, it.seen)
	}
	return KeyNode{}, io.EOF
}

// lookupSubkey finds the child named name under the list at rel.
//
// Fast and hash leaves are binary-searched on their 4-byte hint. Hints
// collide, so the search locates the lower bound of the equal-hint range
// and scans across it, confirming each candidate with the full
// case-insensitive name compare. Index leaves are scanned linearly; index
// roots probe each subordinate list in order and return the first match.
func lookupSubkey(h *Hive, rel uint32, name string, depth int) (KeyNode, bool, error) {
	if depth >= maxListDepth {
		return KeyNode{}, false, errAt(ErrRecursionLimit, format.HiveDataBase+int(rel),
			"list nesting deeper than %d", maxListDepth)
	}
	list, err := parseSubkeyList(h, rel)
	if err != nil {
		return KeyNode{}, false, err
	}

	switch list.kind {
	case listRI:
		for i := 0; i < list.count; i++ {
			node, ok, err := lookupSubkey(h, list.entryCell(i), name, depth+1)
			if err != nil {
				return KeyNode{}, false, err
			}
			if ok {
				return node, true, nil
			}
		}
		return KeyNode{}, false, nil

	case listLF:
		hint, ok := lfHint(name)
		if !ok {
			// Hints only encode ASCII prefixes; other names need the scan.
			return list.scan(name)
		}
		lb := sort.Search(list.count, func(i int) bool {
			return bytes.Compare(list.entryHintBytes(i), hint[:]) >= 0
		})
		for i := lb; i < list.count && bytes.Equal(list.entryHintBytes(i), hint[:]); i++ {
			node, err := list.childAt(i)
			if err != nil {
				return KeyNode{}, false, err
			}
			if node.Name().EqualFold(name) {
				return node, true, nil
			}
		}
		return KeyNode{}, false, nil

	case listLH:
		hash := lhHash(name)
		lb := sort.Search(list.count, func(i int) bool {
			return list.entryHash(i) >= hash
		})
		for i := lb; i < list.count && list.entryHash(i) == hash; i++ {
			node, err := list.childAt(i)
			if err != nil {
				return KeyNode{}, false, err
			}
			if node.Name().EqualFold(name) {
				return node, true, nil
			}
		}
		return KeyNode{}, false, nil

	default: // listLI
		return list.scan(name)
	}
}

// scan is the linear fallback: dereference every entry and compare names.
func (l subkeyList) scan(name string) (KeyNode, bool, error) {
	for i := 0; i < l.count; i++ {
		node, err := l.childAt(i)
		if err != nil {
			return KeyNode{}, false, err
		}
		if node.Name().EqualFold(name) {
			return node, true, nil
		}
	}
	return KeyNode{}, false, nil
}

package store

import (
	"sort"
	"strings"
)

// SortOrder is the gallery ordering
type SortOrder int

const (
	SortNone SortOrder = iota
	SortAsc
	SortDesc
)

// Next cycles none -> asc -> desc -> none
func (o SortOrder) Next() SortOrder {
	return (o + 1) % 3
}

func (o SortOrder) String() string {
	switch o {
	case SortAsc:
		return "name ↑"
	case SortDesc:
		return "name ↓"
	default:
		return "added"
	}
}

// Sorted returns items ordered by name. SortNone keeps insertion order.
func Sorted(items []Item, order SortOrder) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	if order == SortNone {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == SortDesc {
			return NaturalLess(out[j].Name, out[i].Name)
		}
		return NaturalLess(out[i].Name, out[j].Name)
	})
	return out
}

// NaturalLess compares filenames so that embedded numbers sort numerically,
// e.g. page_2.png comes before page_10.png
func NaturalLess(a, b string) bool {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			si, sj := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na := strings.TrimLeft(a[si:i], "0")
			nb := strings.TrimLeft(b[sj:j], "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionToggle(t *testing.T) {
	s := New()
	added := s.Add(newItems("a", "b", "c")...)
	a, b, c := added[0].ID, added[1].ID, added[2].ID

	sel := NewSelection(s)
	defer sel.Close()

	sel.Toggle(a, false)
	assert.Equal(t, []string{a}, sel.IDs())

	// clicking another item replaces
	sel.Toggle(b, false)
	assert.Equal(t, []string{b}, sel.IDs())

	// clicking the sole selected item clears
	sel.Toggle(b, false)
	assert.Zero(t, sel.Len())

	sel.Toggle(a, true)
	sel.Toggle(c, true)
	assert.Equal(t, []string{a, c}, sel.IDs())

	sel.Toggle(a, true)
	assert.Equal(t, []string{c}, sel.IDs())

	// plain click on a member of a multi-selection replaces it
	sel.Toggle(b, true)
	sel.Toggle(c, false)
	assert.Equal(t, []string{c}, sel.IDs())
}

func TestSelectionSelectAllAndClear(t *testing.T) {
	s := New()
	added := s.Add(newItems("a", "b")...)
	sel := NewSelection(s)

	sel.SelectAll([]string{added[1].ID, added[0].ID})
	assert.Equal(t, []string{added[0].ID, added[1].ID}, sel.IDs())
	assert.True(t, sel.Has(added[1].ID))

	sel.Clear()
	assert.Zero(t, sel.Len())
	assert.Nil(t, sel.IDs())
}

func TestSelectionPrunedOnDelete(t *testing.T) {
	s := New()
	added := s.Add(newItems("a", "b", "c")...)
	sel := NewSelection(s)
	sel.SelectAll([]string{added[0].ID, added[1].ID, added[2].ID})

	s.Remove(added[1].ID)
	assert.False(t, sel.Has(added[1].ID))
	assert.Equal(t, 2, sel.Len())

	s.Reset()
	assert.Zero(t, sel.Len())
}

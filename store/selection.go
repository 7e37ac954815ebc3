package store

import "sync"

// Selection is the set of selected item ids. It follows the store so that
// deleted items never stay selected.
type Selection struct {
	store *Store

	mu  sync.RWMutex
	ids map[string]struct{}

	unsubscribe func()
}

// NewSelection creates an empty selection bound to s
func NewSelection(s *Store) *Selection {
	sel := &Selection{
		store: s,
		ids:   make(map[string]struct{}),
	}
	sel.unsubscribe = s.Subscribe(func(ev Event) {
		if ev.Type != EventRemoved {
			return
		}
		sel.mu.Lock()
		for _, id := range ev.IDs {
			delete(sel.ids, id)
		}
		sel.mu.Unlock()
	})
	return sel
}

// Close detaches the selection from the store
func (sel *Selection) Close() {
	if sel.unsubscribe != nil {
		sel.unsubscribe()
	}
}

// Toggle applies a click on id.
//
// Additive (ctrl-click): add id if absent, remove it if present.
// Otherwise: clicking the only selected item clears the selection, any other
// click replaces the selection with id.
func (sel *Selection) Toggle(id string, additive bool) {
	sel.mu.Lock()
	defer sel.mu.Unlock()

	_, has := sel.ids[id]
	if additive {
		if has {
			delete(sel.ids, id)
		} else {
			sel.ids[id] = struct{}{}
		}
		return
	}

	if has && len(sel.ids) == 1 {
		sel.ids = make(map[string]struct{})
		return
	}
	sel.ids = map[string]struct{}{id: {}}
}

// Clear empties the selection
func (sel *Selection) Clear() {
	sel.mu.Lock()
	sel.ids = make(map[string]struct{})
	sel.mu.Unlock()
}

// SelectAll replaces the selection with ids
func (sel *Selection) SelectAll(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	sel.mu.Lock()
	sel.ids = next
	sel.mu.Unlock()
}

// Has reports whether id is selected
func (sel *Selection) Has(id string) bool {
	sel.mu.RLock()
	defer sel.mu.RUnlock()
	_, ok := sel.ids[id]
	return ok
}

// Len returns the number of selected ids
func (sel *Selection) Len() int {
	sel.mu.RLock()
	defer sel.mu.RUnlock()
	return len(sel.ids)
}

// IDs returns the selected ids in store order
func (sel *Selection) IDs() []string {
	sel.mu.RLock()
	defer sel.mu.RUnlock()
	if len(sel.ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(sel.ids))
	for _, it := range sel.store.List() {
		if _, ok := sel.ids[it.ID]; ok {
			out = append(out, it.ID)
		}
	}
	return out
}

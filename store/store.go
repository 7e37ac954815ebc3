package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// EventType identifies a store change
type EventType int

const (
	EventAdded EventType = iota
	EventUpdated
	EventRemoved
)

// Event describes one change; IDs lists the affected items
type Event struct {
	Type EventType
	IDs  []string
}

// Listener receives change events. It is called without the store lock held.
type Listener func(Event)

// Counts tallies items by status
type Counts struct {
	Total      int
	Pending    int
	Processing int
	Done       int
	Error      int
}

// Store is the ordered, in-memory collection of work items.
// Mutations for unknown ids are no-ops so deletes can race with in-flight results.
type Store struct {
	mu    sync.RWMutex
	order []string
	items map[string]*Item

	lmu       sync.Mutex
	listeners map[int]Listener
	nextL     int

	newID func() string
}

// New creates an empty store
func New() *Store {
	return &Store{
		items:     make(map[string]*Item),
		listeners: make(map[int]Listener),
		newID:     newID,
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Subscribe registers l and returns a function that removes it
func (s *Store) Subscribe(l Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	key := s.nextL
	s.nextL++
	s.listeners[key] = l
	return func() {
		s.lmu.Lock()
		delete(s.listeners, key)
		s.lmu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	if len(ev.IDs) == 0 {
		return
	}
	s.lmu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.lmu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}

// Add appends items in the given order and returns them with their ids
func (s *Store) Add(in ...NewItem) []Item {
	out := make([]Item, 0, len(in))

	s.mu.Lock()
	for _, n := range in {
		it := &Item{
			ID:      s.newID(),
			Name:    n.Name,
			MIME:    n.MIME,
			Data:    n.Data,
			Preview: n.Preview,
			Status:  Pending(),
		}
		if st, err := Done(n.Caption); err == nil {
			it.Status = st
		}
		s.items[it.ID] = it
		s.order = append(s.order, it.ID)
		out = append(out, *it)
	}
	s.mu.Unlock()

	s.emit(Event{Type: EventAdded, IDs: ids(out)})
	return out
}

// SetStatus replaces an item's status. It reports false for an unknown id.
func (s *Store) SetStatus(id string, st Status) bool {
	s.mu.Lock()
	it, ok := s.items[id]
	if ok {
		it.Status = st
	}
	s.mu.Unlock()

	if ok {
		s.emit(Event{Type: EventUpdated, IDs: []string{id}})
	}
	return ok
}

// SetStatusFunc applies fn to every item for which it returns true and reports the changed ids.
// The check and the write happen under one lock.
func (s *Store) SetStatusFunc(fn func(Item) (Status, bool)) []string {
	var changed []string

	s.mu.Lock()
	for _, id := range s.order {
		it := s.items[id]
		if st, ok := fn(*it); ok {
			it.Status = st
			changed = append(changed, id)
		}
	}
	s.mu.Unlock()

	s.emit(Event{Type: EventUpdated, IDs: changed})
	return changed
}

// EditResult overwrites the caption of a finished item; the status stays Done
func (s *Store) EditResult(id, text string) error {
	st, err := Done(text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	it, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("item %s not found", id)
	}
	if it.Status.Kind() != KindDone {
		s.mu.Unlock()
		return fmt.Errorf("item %s is %s, only finished captions can be edited", it.Name, it.Status)
	}
	it.Status = st
	s.mu.Unlock()

	s.emit(Event{Type: EventUpdated, IDs: []string{id}})
	return nil
}

// Get returns a copy of the item
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// List returns copies of all items in insertion order
func (s *Store) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// Len returns the number of items
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Counts tallies the items by status
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := Counts{Total: len(s.order)}
	for _, id := range s.order {
		switch s.items[id].Status.Kind() {
		case KindPending:
			c.Pending++
		case KindProcessing:
			c.Processing++
		case KindDone:
			c.Done++
		case KindError:
			c.Error++
		}
	}
	return c
}

// Remove deletes one item and returns the number removed (0 or 1)
func (s *Store) Remove(id string) int {
	return s.RemoveFunc(func(it Item) bool { return it.ID == id })
}

// RemoveIDs deletes every item in ids
func (s *Store) RemoveIDs(ids []string) int {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return s.RemoveFunc(func(it Item) bool {
		_, ok := set[it.ID]
		return ok
	})
}

// Reset removes every item
func (s *Store) Reset() int {
	return s.RemoveFunc(func(Item) bool { return true })
}

// RemoveFunc deletes every item matching pred
func (s *Store) RemoveFunc(pred func(Item) bool) int {
	var removed []string

	s.mu.Lock()
	kept := s.order[:0]
	for _, id := range s.order {
		it := s.items[id]
		if pred(*it) {
			delete(s.items, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	s.mu.Unlock()

	s.emit(Event{Type: EventRemoved, IDs: removed})
	return len(removed)
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

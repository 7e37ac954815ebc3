package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItems(names ...string) []NewItem {
	out := make([]NewItem, len(names))
	for i, n := range names {
		out[i] = NewItem{Name: n, MIME: "image/png", Data: []byte(n)}
	}
	return out
}

func TestAddKeepsOrderAndAssignsIDs(t *testing.T) {
	s := New()
	added := s.Add(newItems("b.png", "a.png", "c.png")...)

	require.Len(t, added, 3)
	seen := map[string]bool{}
	for _, it := range added {
		require.NotEmpty(t, it.ID)
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
		assert.Equal(t, KindPending, it.Status.Kind())
	}

	var names []string
	for _, it := range s.List() {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"b.png", "a.png", "c.png"}, names)
}

func TestAddWithCaptionStartsDone(t *testing.T) {
	s := New()
	added := s.Add(NewItem{Name: "x.jpg", Caption: "a cat"}, NewItem{Name: "y.jpg"})

	r, ok := added[0].Status.Result()
	assert.True(t, ok)
	assert.Equal(t, "a cat", r)
	assert.Equal(t, KindPending, added[1].Status.Kind())
}

func TestStatusInvariant(t *testing.T) {
	done, err := Done("caption")
	require.NoError(t, err)

	tests := []struct {
		name     string
		st       Status
		wantRes  bool
		wantErr  bool
		wantKind Kind
	}{
		{"pending", Pending(), false, false, KindPending},
		{"processing", Processing(), false, false, KindProcessing},
		{"done", done, true, false, KindDone},
		{"error", Failed("boom"), false, true, KindError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, hasRes := tt.st.Result()
			msg, hasErr := tt.st.Err()
			assert.Equal(t, tt.wantKind, tt.st.Kind())
			assert.Equal(t, tt.wantRes, hasRes)
			assert.Equal(t, tt.wantRes, res != "")
			assert.Equal(t, tt.wantErr, hasErr)
			assert.Equal(t, tt.wantErr, msg != "")
			assert.False(t, hasRes && hasErr)
		})
	}

	_, err = Done("")
	assert.ErrorIs(t, err, ErrEmptyResult)

	msg, _ := Failed("").Err()
	assert.Equal(t, "Unknown error", msg)
}

func TestSetStatusUnknownIDIsNoop(t *testing.T) {
	s := New()
	var events int
	s.Subscribe(func(Event) { events++ })

	assert.False(t, s.SetStatus("missing", Processing()))
	assert.Zero(t, events)
}

func TestTransitionAwayFromDoneClearsResult(t *testing.T) {
	s := New()
	it := s.Add(NewItem{Name: "a.png", Caption: "old"})[0]

	require.True(t, s.SetStatus(it.ID, Pending()))
	got, _ := s.Get(it.ID)
	assert.Empty(t, got.Result())
	assert.Empty(t, got.Error())
}

func TestEditResult(t *testing.T) {
	s := New()
	added := s.Add(NewItem{Name: "a.png", Caption: "old"}, NewItem{Name: "b.png"})

	require.NoError(t, s.EditResult(added[0].ID, "new"))
	got, _ := s.Get(added[0].ID)
	assert.Equal(t, "new", got.Result())
	assert.Equal(t, KindDone, got.Status.Kind())

	assert.ErrorIs(t, s.EditResult(added[0].ID, ""), ErrEmptyResult)
	assert.Error(t, s.EditResult(added[1].ID, "text"))
	assert.Error(t, s.EditResult("missing", "text"))
}

func TestRemoveVariants(t *testing.T) {
	s := New()
	added := s.Add(newItems("a", "b", "c", "d", "e")...)

	assert.Equal(t, 1, s.Remove(added[0].ID))
	assert.Equal(t, 0, s.Remove(added[0].ID))
	assert.Equal(t, 2, s.RemoveIDs([]string{added[1].ID, added[2].ID, "nope"}))
	assert.Equal(t, 1, s.RemoveFunc(func(it Item) bool { return it.Name == "d" }))
	assert.Equal(t, 1, s.Reset())
	assert.Zero(t, s.Len())
}

func TestCounts(t *testing.T) {
	s := New()
	added := s.Add(newItems("a", "b", "c", "d")...)
	s.SetStatus(added[0].ID, Processing())
	done, _ := Done("x")
	s.SetStatus(added[1].ID, done)
	s.SetStatus(added[2].ID, Failed("bad"))

	assert.Equal(t, Counts{Total: 4, Pending: 1, Processing: 1, Done: 1, Error: 1}, s.Counts())
}

func TestSetStatusFunc(t *testing.T) {
	s := New()
	added := s.Add(newItems("a", "b", "c")...)
	s.SetStatus(added[0].ID, Processing())
	s.SetStatus(added[2].ID, Processing())

	changed := s.SetStatusFunc(func(it Item) (Status, bool) {
		return Pending(), it.Status.Kind() == KindProcessing
	})
	assert.ElementsMatch(t, []string{added[0].ID, added[2].ID}, changed)
	assert.Equal(t, 3, s.Counts().Pending)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s := New()
	var got []EventType
	cancel := s.Subscribe(func(ev Event) { got = append(got, ev.Type) })

	it := s.Add(newItems("a")...)[0]
	s.SetStatus(it.ID, Processing())
	s.Remove(it.ID)
	cancel()
	s.Add(newItems("b")...)

	assert.Equal(t, []EventType{EventAdded, EventUpdated, EventRemoved}, got)
}

func TestConcurrentMutation(t *testing.T) {
	s := New()
	added := s.Add(newItems("a", "b", "c", "d", "e", "f", "g", "h")...)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it := added[i%len(added)]
			if i%7 == 0 {
				s.Remove(it.ID)
				return
			}
			st, _ := Done(fmt.Sprintf("caption %d", i))
			s.SetStatus(it.ID, st)
			_ = s.List()
		}(i)
	}
	wg.Wait()

	for _, it := range s.List() {
		assert.Equal(t, it.Status.Kind() == KindDone, it.Result() != "")
	}
}

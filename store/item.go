// Package store holds the in-memory work queue of images waiting to be captioned,
// the selection over it, and the change notifications the UI renders from.
package store

import "errors"

// Kind is the lifecycle stage of an item
type Kind int

const (
	KindPending Kind = iota
	KindProcessing
	KindDone
	KindError
)

// String returns the lowercase status name
func (k Kind) String() string {
	switch k {
	case KindPending:
		return "pending"
	case KindProcessing:
		return "processing"
	case KindDone:
		return "done"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is a closed variant: a caption exists only on Done, a message only on Error.
// The zero value is Pending.
type Status struct {
	kind Kind
	text string
}

// ErrEmptyResult is returned when a caption would be set to blank text
var ErrEmptyResult = errors.New("caption must not be empty")

func Pending() Status    { return Status{kind: KindPending} }
func Processing() Status { return Status{kind: KindProcessing} }

// Done returns the finished status carrying a caption.
// An empty caption cannot be Done; callers treat it as a failure.
func Done(result string) (Status, error) {
	if result == "" {
		return Status{}, ErrEmptyResult
	}
	return Status{kind: KindDone, text: result}, nil
}

// Failed returns the error status. A blank message becomes "Unknown error".
func Failed(message string) Status {
	if message == "" {
		message = "Unknown error"
	}
	return Status{kind: KindError, text: message}
}

func (s Status) Kind() Kind { return s.kind }

// Result returns the caption when the status is Done
func (s Status) Result() (string, bool) {
	if s.kind != KindDone {
		return "", false
	}
	return s.text, true
}

// Err returns the failure message when the status is Error
func (s Status) Err() (string, bool) {
	if s.kind != KindError {
		return "", false
	}
	return s.text, true
}

func (s Status) String() string { return s.kind.String() }

// NewItem is what intake hands to the store
type NewItem struct {
	Name    string
	MIME    string
	Data    []byte
	Preview string

	// Caption is a pre-existing caption (e.g. a matching .txt sidecar)
	Caption string
}

// Item is one image in the queue
type Item struct {
	ID      string
	Name    string
	MIME    string
	Data    []byte
	Preview string
	Status  Status
}

// Result is a shortcut for Status.Result without the flag
func (it Item) Result() string {
	r, _ := it.Status.Result()
	return r
}

// Error is a shortcut for Status.Err without the flag
func (it Item) Error() string {
	e, _ := it.Status.Err()
	return e
}

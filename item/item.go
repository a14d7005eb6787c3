// Package item defines the shared value type for the lanshare system: a
// single shared unit that is either a text snippet or a file reference.
//
// The same struct crosses the wire between the server, the gateway and the
// sync engine, so its JSON shape is part of the HTTP contract and must not
// drift: `size` travels as a JSON string, `createdAt` as RFC 3339.
package item

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Kind discriminates which optional fields of an Item are meaningful.
type Kind string

const (
	KindText Kind = "text" // a text snippet; Content is populated
	KindFile Kind = "file" // a stored file; FileName/ContentType/Size are populated
)

// Item is one shared unit. Exactly one of Content vs the file triplet is
// populated, matching Kind. Items are immutable once created; the remote
// store assigns ID and Name, and a refetch replaces local copies wholesale.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`

	// Text snippet fields.
	Content string `json:"content,omitempty"`

	// File fields. Size travels as a JSON string on the wire.
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty,string"`
}

// NewText builds a valid text item. Only constructors (and JSON decoding of
// server responses) should produce Items; this keeps the one-of invariant
// out of reach of callers.
func NewText(id, name, content string, createdAt time.Time) Item {
	return Item{
		ID:        id,
		Name:      name,
		Kind:      KindText,
		CreatedAt: createdAt,
		Content:   content,
	}
}

// NewFile builds a valid file item.
func NewFile(id, name, fileName, contentType string, size int64, createdAt time.Time) Item {
	return Item{
		ID:          id,
		Name:        name,
		Kind:        KindFile,
		CreatedAt:   createdAt,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
	}
}

// IsText reports whether the item is a text snippet.
func (it Item) IsText() bool { return it.Kind == KindText }

// IsFile reports whether the item is a file reference.
func (it Item) IsFile() bool { return it.Kind == KindFile }

// Validate checks the structural invariants: a known kind, a non-empty ID,
// and field population matching the kind. Decoded wire data should be run
// through Validate before entering a snapshot.
func (it Item) Validate() error {
	if it.ID == "" {
		return &InvalidItemError{Reason: "empty id"}
	}
	switch it.Kind {
	case KindText:
		if it.FileName != "" || it.ContentType != "" || it.Size != 0 {
			return &InvalidItemError{ID: it.ID, Reason: "text item carries file fields"}
		}
	case KindFile:
		if it.Content != "" {
			return &InvalidItemError{ID: it.ID, Reason: "file item carries snippet content"}
		}
		if it.FileName == "" {
			return &InvalidItemError{ID: it.ID, Reason: "file item without fileName"}
		}
	default:
		return &InvalidItemError{ID: it.ID, Reason: fmt.Sprintf("unknown kind %q", it.Kind)}
	}
	return nil
}

// HumanSize renders the file size for display ("0 B" for text items).
func (it Item) HumanSize() string {
	return humanize.Bytes(uint64(it.Size))
}

// RelativeAge renders the creation time relative to now ("3 minutes ago").
func (it Item) RelativeAge() string {
	return humanize.Time(it.CreatedAt)
}

// InvalidItemError reports an Item that violates the model invariants,
// which on decoded data means a protocol violation by the remote store.
type InvalidItemError struct {
	ID     string
	Reason string
}

func (e *InvalidItemError) Error() string {
	if e.ID == "" {
		return "item: invalid item: " + e.Reason
	}
	return fmt.Sprintf("item: invalid item %s: %s", e.ID, e.Reason)
}

// Package events publishes ledger activity to downstream consumers.
//
// Publishing is best effort: the ledger document is the source of truth and a
// failed publish never rolls back or fails the request that caused it.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event is anything that can be published.
type Event interface {
	// Type names the event, e.g. "ledger.entry_added".
	Type() string
	// Key groups related events. Events with the same key keep their order.
	Key() string
}

// EntryAdded is emitted after a new debt or credit has been saved.
type EntryAdded struct {
	UserID    string          `json:"userId"`
	Kind      string          `json:"kind"`
	EntryID   string          `json:"entryId"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (EntryAdded) Type() string  { return "ledger.entry_added" }
func (e EntryAdded) Key() string { return e.UserID }

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event. It is the default when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

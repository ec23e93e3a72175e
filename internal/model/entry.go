// Package model defines the data structures used throughout the application.
//
// The ledger rules that only touch a single user's document (entry
// bookkeeping, the bounded history, totals) live here as methods on User so
// that every storage backend and every caller shares one implementation.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The frontend reads amounts as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// EntryKind selects which of a user's two ledgers an entry belongs to.
type EntryKind string

const (
	// KindDebt is money the user owes to a named counterparty.
	KindDebt EntryKind = "debt"
	// KindCredit is money a named counterparty owes the user.
	KindCredit EntryKind = "credit"
)

// ParseEntryKind converts a raw string into an EntryKind.
func ParseEntryKind(s string) (EntryKind, bool) {
	switch EntryKind(s) {
	case KindDebt, KindCredit:
		return EntryKind(s), true
	default:
		return "", false
	}
}

func (k EntryKind) String() string { return string(k) }

// LedgerEntry is one obligation record inside a user's debts or credits.
// ID and CreatedAt are fixed at creation; only Name and Amount change.
type LedgerEntry struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// HistoryRecord is an immutable snapshot written when an entry is created.
type HistoryRecord struct {
	Kind      EntryKind       `json:"kind"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

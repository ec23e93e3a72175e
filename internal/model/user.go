package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxHistory is the number of history records kept per user. Appending past
// it drops the oldest record.
const MaxHistory = 100

// User is the root document: credentials, profile, both ledgers and the
// bounded transaction history. The whole value is loaded, mutated and saved
// as one unit.
//
// Version is the optimistic-concurrency token owned by the repository. A Save
// with a stale Version fails with apperror.ErrConflict.
type User struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	PasswordHash    string          `json:"-"`
	ProfileImageURL string          `json:"profileImageUrl"`
	Debts           []LedgerEntry   `json:"debts"`
	Credits         []LedgerEntry   `json:"credits"`
	History         []HistoryRecord `json:"history"`
	Version         int64           `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Entries returns the ledger matching kind. The slice is shared with the user;
// callers that keep it must copy.
func (u *User) Entries(kind EntryKind) []LedgerEntry {
	if kind == KindCredit {
		return u.Credits
	}
	return u.Debts
}

func (u *User) setEntries(kind EntryKind, entries []LedgerEntry) {
	if kind == KindCredit {
		u.Credits = entries
		return
	}
	u.Debts = entries
}

// AddEntry appends entry to the ledger selected by kind and logs exactly one
// history record for it.
func (u *User) AddEntry(kind EntryKind, entry LedgerEntry) {
	u.setEntries(kind, append(u.Entries(kind), entry))
	u.appendHistory(HistoryRecord{
		Kind:      kind,
		Name:      entry.Name,
		Amount:    entry.Amount,
		CreatedAt: entry.CreatedAt,
	})
}

// UpdateEntry replaces name and amount of the entry with the given id.
// It reports false when no such entry exists in that ledger.
func (u *User) UpdateEntry(kind EntryKind, id, name string, amount decimal.Decimal) (LedgerEntry, bool) {
	entries := u.Entries(kind)
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Name = name
			entries[i].Amount = amount
			return entries[i], true
		}
	}
	return LedgerEntry{}, false
}

// RemoveEntry drops the entry with the given id and reports whether anything
// was removed. Removing an unknown id leaves the ledger as it was.
func (u *User) RemoveEntry(kind EntryKind, id string) bool {
	entries := u.Entries(kind)
	kept := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	u.setEntries(kind, kept)
	return len(kept) != len(entries)
}

// appendHistory adds rec at the tail, evicting from the head so at most
// MaxHistory records remain.
func (u *User) appendHistory(rec HistoryRecord) {
	u.History = append(u.History, rec)
	if over := len(u.History) - MaxHistory; over > 0 {
		trimmed := make([]HistoryRecord, MaxHistory)
		copy(trimmed, u.History[over:])
		u.History = trimmed
	}
}

// RecentHistory returns a copy of the history, newest first.
func (u *User) RecentHistory() []HistoryRecord {
	n := len(u.History)
	if n > MaxHistory {
		n = MaxHistory
	}
	out := make([]HistoryRecord, 0, n)
	for i := len(u.History) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, u.History[i])
	}
	return out
}

// TotalDebt sums the amounts of all debts. An empty ledger sums to zero.
func (u *User) TotalDebt() decimal.Decimal {
	return sumAmounts(u.Debts)
}

// TotalCredit sums the amounts of all credits.
func (u *User) TotalCredit() decimal.Decimal {
	return sumAmounts(u.Credits)
}

func sumAmounts(entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

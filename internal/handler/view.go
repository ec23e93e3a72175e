package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
)

// entryView is the wire shape of a debt or credit the web client expects.
type entryView struct {
	ID        string          `json:"_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// historyView is the wire shape of a history record.
type historyView struct {
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

func newEntryView(e model.LedgerEntry) entryView {
	return entryView{ID: e.ID, Name: e.Name, Amount: e.Amount, Timestamp: e.CreatedAt}
}

// newEntryViews never returns nil so empty ledgers encode as [].
func newEntryViews(entries []model.LedgerEntry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryView(e))
	}
	return out
}

func newHistoryViews(records []model.HistoryRecord) []historyView {
	out := make([]historyView, 0, len(records))
	for _, h := range records {
		out = append(out, historyView{
			Type:      h.Kind.String(),
			Name:      h.Name,
			Amount:    h.Amount,
			Timestamp: h.CreatedAt,
		})
	}
	return out
}

package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
)

// userDocument is the persisted JSON shape of a user. It is kept apart from
// model.User so the password hash is stored but never leaks through the
// model's API-facing JSON tags, and so the on-disk format can evolve
// independently.
type userDocument struct {
	Username        string                `json:"username"`
	PasswordHash    string                `json:"passwordHash"`
	ProfileImageURL string                `json:"profileImage"`
	Debts           []model.LedgerEntry   `json:"debts"`
	Credits         []model.LedgerEntry   `json:"owedByOthers"`
	History         []model.HistoryRecord `json:"transactionHistory"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// EncodeUser serializes everything but ID and Version, which the stores keep
// in their own columns.
func EncodeUser(u *model.User) ([]byte, error) {
	doc := userDocument{
		Username:        u.Username,
		PasswordHash:    u.PasswordHash,
		ProfileImageURL: u.ProfileImageURL,
		Debts:           nonNil(u.Debts),
		Credits:         nonNil(u.Credits),
		History:         nonNil(u.History),
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding user %s: %w", u.ID, err)
	}
	return b, nil
}

// DecodeUser rebuilds a model.User from a stored document.
func DecodeUser(id string, version int64, data []byte) (*model.User, error) {
	var doc userDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", id, err)
	}
	return &model.User{
		ID:              id,
		Username:        doc.Username,
		PasswordHash:    doc.PasswordHash,
		ProfileImageURL: doc.ProfileImageURL,
		Debts:           doc.Debts,
		Credits:         doc.Credits,
		History:         doc.History,
		Version:         version,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

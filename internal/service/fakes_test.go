package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/events"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/objectstore"
)

// fakeUserRepo is an in-memory repository.UserRepository with the same
// version compare-and-swap the real stores perform.
type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*model.User
	nextID   int
	saves    int
	conflict int // number of upcoming Saves to fail with a version conflict

	// set to a non-nil error to simulate a storage failure
	getErr  error
	saveErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperror.Conflict("user", "User already exists")
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.Version = 1
	f.users[u.ID] = cloneUser(u)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return cloneUser(u), nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) Save(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	stored, ok := f.users[u.ID]
	if !ok {
		return apperror.NotFound("user", u.ID)
	}
	if f.conflict > 0 {
		f.conflict--
		stored.Version++
		return apperror.Conflict("user", "document changed since it was read")
	}
	if stored.Version != u.Version {
		return apperror.Conflict("user", "document changed since it was read")
	}
	u.Version++
	f.users[u.ID] = cloneUser(u)
	f.saves++
	return nil
}

func (f *fakeUserRepo) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func (f *fakeUserRepo) stored(t *testing.T, id string) *model.User {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		t.Fatalf("user %s not stored", id)
	}
	return cloneUser(u)
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Debts = append([]model.LedgerEntry(nil), u.Debts...)
	c.Credits = append([]model.LedgerEntry(nil), u.Credits...)
	c.History = append([]model.HistoryRecord(nil), u.History...)
	return &c
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fakeUploader keeps uploaded bytes in memory.
type fakeUploader struct {
	uploads map[string][]byte
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, obj objectstore.Object) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", err
	}
	if u.uploads == nil {
		u.uploads = make(map[string][]byte)
	}
	url := fmt.Sprintf("https://cdn.test/%d-%s", len(u.uploads)+1, obj.Name)
	u.uploads[url] = data
	return url, nil
}

var errStorageDown = errors.New("disk on fire")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

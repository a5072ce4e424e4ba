package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/credit-line-service/internal/domain"
	"github.com/spec-kit/credit-line-service/internal/persistence"
	"github.com/spec-kit/credit-line-service/internal/repository"
)

var testBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// memStore is a mutex-guarded in-memory store backing the stub repositories.
// TransitionStatus is atomic under the mutex, which is what the concurrency
// tests rely on.
type memStore struct {
	mu     sync.Mutex
	users  map[string]domain.User
	apps   map[string]domain.Application
	ledger []domain.LedgerEntry
	seq    int

	appendErr error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]domain.User),
		apps:  make(map[string]domain.Application),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addUser(creditLimit int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("user")
	s.users[id] = domain.User{
		ID:          id,
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       id + "@example.com",
		CreditLimit: creditLimit,
		CreatedAt:   testBase,
		UpdatedAt:   testBase,
	}
	return id
}

func (s *memStore) getApp(id string) domain.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apps[id]
}

func (s *memStore) ledgerBalance(applicationID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var balance int64
	for _, entry := range s.ledger {
		if entry.ApplicationID != applicationID {
			continue
		}
		switch entry.Type {
		case domain.EntryTypeDisbursement:
			balance += entry.Amount
		case domain.EntryTypeRepayment:
			balance -= entry.Amount
		}
	}
	return balance
}

// stubRunner invokes the unit of work directly; the stub repositories are
// already atomic per call.
type stubRunner struct{}

func (stubRunner) WithinTx(ctx context.Context, fn func(q persistence.Querier) error) error {
	return fn(nil)
}

type stubUserRepo struct {
	store *memStore
}

func (r *stubUserRepo) WithTx(q persistence.Querier) repository.UserRepository { return r }

func (r *stubUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.users {
		if existing.Email == user.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	user.ID = r.store.nextID("user")
	user.CreatedAt = testBase
	user.UpdatedAt = testBase
	r.store.users[user.ID] = *user
	return nil
}

func (r *stubUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.store.users[user.ID] = *user
	return nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make([]domain.User, 0, len(r.store.users))
	for _, user := range r.store.users {
		result = append(result, user)
	}
	return result, nil
}

type stubApplicationRepo struct {
	store *memStore
}

func (r *stubApplicationRepo) WithTx(q persistence.Querier) repository.ApplicationRepository {
	return r
}

func (r *stubApplicationRepo) Create(ctx context.Context, app *domain.Application) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	app.ID = r.store.nextID("app")
	app.CreatedAt = testBase
	app.UpdatedAt = testBase
	r.store.apps[app.ID] = *app
	return nil
}

func (r *stubApplicationRepo) Update(ctx context.Context, app *domain.Application) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.updateErr != nil {
		return r.store.updateErr
	}
	if _, ok := r.store.apps[app.ID]; !ok {
		return pgx.ErrNoRows
	}
	app.UpdatedAt = testBase.Add(time.Minute)
	r.store.apps[app.ID] = *app
	return nil
}

func (r *stubApplicationRepo) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	app, ok := r.store.apps[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := app
	return &copied, nil
}

func (r *stubApplicationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Application, error) {
	return r.ListWithFilter(ctx, repository.ApplicationFilter{UserID: &userID})
}

func (r *stubApplicationRepo) ListWithFilter(ctx context.Context, filter repository.ApplicationFilter) ([]domain.Application, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Application
	for _, app := range r.store.apps {
		if filter.UserID != nil && app.UserID != *filter.UserID {
			continue
		}
		result = append(result, app)
	}
	return result, nil
}

func (r *stubApplicationRepo) TransitionStatus(ctx context.Context, id string, expected, next domain.ApplicationStatus) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	app, ok := r.store.apps[id]
	if !ok || app.Status != expected {
		return false, nil
	}
	app.Status = next
	app.UpdatedAt = testBase.Add(time.Minute)
	r.store.apps[id] = app
	return true, nil
}

type stubLedgerRepo struct {
	store *memStore
}

func (r *stubLedgerRepo) WithTx(q persistence.Querier) repository.LedgerRepository { return r }

func (r *stubLedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.appendErr != nil {
		return r.store.appendErr
	}
	entry.ID = r.store.nextID("entry")
	entry.CreatedAt = testBase
	r.store.ledger = append(r.store.ledger, *entry)
	return nil
}

func (r *stubLedgerRepo) ListByApplication(ctx context.Context, applicationID string, limit, offset int) ([]domain.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.LedgerEntry
	for _, entry := range r.store.ledger {
		if entry.ApplicationID == applicationID {
			result = append(result, entry)
		}
	}
	return result, nil
}

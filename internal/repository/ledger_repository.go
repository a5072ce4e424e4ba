package repository

import (
	"context"

	"github.com/spec-kit/credit-line-service/internal/domain"
	"github.com/spec-kit/credit-line-service/internal/persistence"
)

// LedgerRepository appends and reads immutable ledger entries. There are no
// update or delete operations: entries are written exactly once, inside the
// same atomic scope as the application mutation they record.
type LedgerRepository interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) error
	ListByApplication(ctx context.Context, applicationID string, limit, offset int) ([]domain.LedgerEntry, error)
	WithTx(q persistence.Querier) LedgerRepository
}

type ledgerRepository struct {
	db persistence.Querier
}

// NewLedgerRepository instantiates the repository.
func NewLedgerRepository(db persistence.Querier) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) WithTx(q persistence.Querier) LedgerRepository {
	return &ledgerRepository{db: q}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	const query = `
        INSERT INTO ledger_entries (application_id, entry_type, amount)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.ApplicationID,
		entry.Type,
		entry.Amount,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ledgerRepository) ListByApplication(ctx context.Context, applicationID string, limit, offset int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, application_id, entry_type, amount, created_at
        FROM ledger_entries WHERE application_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, applicationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ApplicationID,
			&entry.Type,
			&entry.Amount,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

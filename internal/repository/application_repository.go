package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/credit-line-service/internal/domain"
	"github.com/spec-kit/credit-line-service/internal/persistence"
)

// ApplicationFilter captures admin search parameters.
type ApplicationFilter struct {
	UserID   *string
	Statuses []domain.ApplicationStatus
	Limit    int
	Offset   int
}

// ApplicationRepository encapsulates application persistence.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	Update(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Application, error)
	ListWithFilter(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error)
	// TransitionStatus atomically moves the application from expected to next
	// and reports whether a row was updated. It is the locking primitive for
	// the PROCESSING claim and for direct terminal transitions.
	TransitionStatus(ctx context.Context, id string, expected, next domain.ApplicationStatus) (bool, error)
	// WithTx returns a copy bound to the given atomic scope.
	WithTx(q persistence.Querier) ApplicationRepository
}

type applicationRepository struct {
	db persistence.Querier
}

// NewApplicationRepository instantiates the repository.
func NewApplicationRepository(db persistence.Querier) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) WithTx(q persistence.Querier) ApplicationRepository {
	return &applicationRepository{db: q}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	const query = `
        INSERT INTO applications (user_id, status, requested_amount, disbursed_amount, express_delivery, tip)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		app.UserID,
		app.Status,
		app.RequestedAmount,
		app.DisbursedAmount,
		app.ExpressDelivery,
		app.Tip,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
}

func (r *applicationRepository) Update(ctx context.Context, app *domain.Application) error {
	const query = `
        UPDATE applications SET status=$1, disbursed_amount=$2, express_delivery=$3, tip=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.db.Exec(ctx, query,
		app.Status,
		app.DisbursedAmount,
		app.ExpressDelivery,
		app.Tip,
		app.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *applicationRepository) TransitionStatus(ctx context.Context, id string, expected, next domain.ApplicationStatus) (bool, error) {
	const query = `
        UPDATE applications SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.db.Exec(ctx, query, next, id, expected)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	const query = `
        SELECT id, user_id, status, requested_amount, disbursed_amount, express_delivery, tip, created_at, updated_at
        FROM applications WHERE id=$1`

	var app domain.Application
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&app.ID,
		&app.UserID,
		&app.Status,
		&app.RequestedAmount,
		&app.DisbursedAmount,
		&app.ExpressDelivery,
		&app.Tip,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Application, error) {
	filter := ApplicationFilter{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
	}
	return r.ListWithFilter(ctx, filter)
}

func (r *applicationRepository) ListWithFilter(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error) {
	base := `SELECT id, user_id, status, requested_amount, disbursed_amount, express_delivery, tip, created_at, updated_at
             FROM applications`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApplications(rows)
}

func scanApplications(rows pgx.Rows) ([]domain.Application, error) {
	var result []domain.Application
	for rows.Next() {
		var app domain.Application
		if err := rows.Scan(
			&app.ID,
			&app.UserID,
			&app.Status,
			&app.RequestedAmount,
			&app.DisbursedAmount,
			&app.ExpressDelivery,
			&app.Tip,
			&app.CreatedAt,
			&app.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, rows.Err()
}

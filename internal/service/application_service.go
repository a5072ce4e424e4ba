package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/credit-line-service/internal/domain"
	"github.com/spec-kit/credit-line-service/internal/events"
	"github.com/spec-kit/credit-line-service/internal/persistence"
	"github.com/spec-kit/credit-line-service/internal/repository"
	apperrors "github.com/spec-kit/credit-line-service/pkg/util/errorutil"
)

// ApplicationService coordinates the credit-application lifecycle.
//
// Disburse and repay take a pessimistic lock by conditionally moving the
// application into PROCESSING before any validation, run the money movement
// inside one database transaction, and restore the prior status on every
// failure path. Two concurrent operations on the same application therefore
// cannot both succeed: exactly one wins the conditional update.
type ApplicationService struct {
	runner        persistence.TxRunner
	applications  repository.ApplicationRepository
	users         repository.UserRepository
	ledger        repository.LedgerRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	expressWindow time.Duration
	now           func() time.Time
}

// ApplicationDependencies bundles collaborators for the application service.
type ApplicationDependencies struct {
	Runner          persistence.TxRunner
	ApplicationRepo repository.ApplicationRepository
	UserRepo        repository.UserRepository
	LedgerRepo      repository.LedgerRepository
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	ExpressWindow   time.Duration
	Clock           func() time.Time
}

// ApplicationCreateInput describes application creation payload.
type ApplicationCreateInput struct {
	UserID          string
	RequestedAmount int64
	ExpressDelivery bool
	Tip             int64
}

// DisburseInput describes a disbursement request.
type DisburseInput struct {
	ApplicationID   string
	Amount          int64
	Tip             int64
	ExpressDelivery bool
}

// RepayInput describes a repayment request.
type RepayInput struct {
	ApplicationID string
	Amount        int64
}

// NewApplicationService constructs the service.
func NewApplicationService(deps ApplicationDependencies) *ApplicationService {
	window := deps.ExpressWindow
	if window <= 0 {
		window = 72 * time.Hour
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		runner:        deps.Runner,
		applications:  deps.ApplicationRepo,
		users:         deps.UserRepo,
		ledger:        deps.LedgerRepo,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		expressWindow: window,
		now:           clock,
	}
}

// Create opens a new application for a user.
func (s *ApplicationService) Create(ctx context.Context, input ApplicationCreateInput) (*domain.Application, error) {
	if input.RequestedAmount < 0 {
		return nil, apperrors.NewInvalidAmount(input.RequestedAmount)
	}
	if input.Tip < 0 {
		return nil, apperrors.NewInvalidAmount(input.Tip)
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, mapStoreError("user", input.UserID, err)
	}
	if input.RequestedAmount > user.CreditLimit {
		return nil, apperrors.NewLimitExceeded(input.RequestedAmount, user.CreditLimit)
	}

	app := &domain.Application{
		UserID:          input.UserID,
		Status:          domain.ApplicationStatusOpen,
		RequestedAmount: input.RequestedAmount,
		DisbursedAmount: 0,
		ExpressDelivery: input.ExpressDelivery,
		Tip:             input.Tip,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventApplicationCreated,
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Payload: events.ApplicationCreatedPayload{
			RequestedAmount: app.RequestedAmount,
			ExpressDelivery: app.ExpressDelivery,
			Tip:             app.Tip,
		},
	})
	return app, nil
}

// Disburse moves funds to the borrower, appending a DISBURSEMENT ledger entry
// and raising the running balance within a single atomic scope.
func (s *ApplicationService) Disburse(ctx context.Context, input DisburseInput) (*domain.Application, error) {
	if input.Amount <= 0 {
		return nil, apperrors.NewInvalidAmount(input.Amount)
	}
	if input.Tip < 0 {
		return nil, apperrors.NewInvalidAmount(input.Tip)
	}

	if err := s.claim(ctx, input.ApplicationID, domain.ApplicationStatusOpen); err != nil {
		return nil, err
	}

	var result *domain.Application
	err := s.runner.WithinTx(ctx, func(q persistence.Querier) error {
		applications := s.applications.WithTx(q)

		app, err := applications.GetByID(ctx, input.ApplicationID)
		if err != nil {
			return mapStoreError("application", input.ApplicationID, err)
		}

		if input.ExpressDelivery {
			elapsed := s.now().Sub(app.CreatedAt)
			if elapsed > s.expressWindow {
				return apperrors.NewWindowExpired(elapsed, s.expressWindow)
			}
		}

		user, err := s.users.WithTx(q).GetByID(ctx, app.UserID)
		if err != nil {
			return mapStoreError("user", app.UserID, err)
		}

		total := input.Amount + input.Tip
		if app.DisbursedAmount+total > user.CreditLimit {
			return apperrors.NewLimitExceeded(app.DisbursedAmount+total, user.CreditLimit)
		}

		entry := &domain.LedgerEntry{
			ApplicationID: app.ID,
			Type:          domain.EntryTypeDisbursement,
			Amount:        total,
		}
		if err := s.ledger.WithTx(q).Append(ctx, entry); err != nil {
			return err
		}

		app.DisbursedAmount += total
		app.Status = domain.ApplicationStatusOutstanding
		app.ExpressDelivery = input.ExpressDelivery
		app.Tip += input.Tip
		if err := applications.Update(ctx, app); err != nil {
			return err
		}
		result = app
		return nil
	})
	if err != nil {
		s.release(ctx, input.ApplicationID, domain.ApplicationStatusOpen)
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventFundsDisbursed,
		ApplicationID: result.ID,
		UserID:        result.UserID,
		Payload: events.FundsDisbursedPayload{
			Amount:          input.Amount,
			Tip:             input.Tip,
			NewBalance:      result.DisbursedAmount,
			ExpressDelivery: result.ExpressDelivery,
		},
	})
	return result, nil
}

// Repay reduces the running balance, appending a REPAYMENT ledger entry. A
// repayment that zeroes the balance moves the application to REPAID.
func (s *ApplicationService) Repay(ctx context.Context, input RepayInput) (*domain.Application, error) {
	if input.Amount <= 0 {
		return nil, apperrors.NewInvalidAmount(input.Amount)
	}

	if err := s.claim(ctx, input.ApplicationID, domain.ApplicationStatusOutstanding); err != nil {
		return nil, err
	}

	var result *domain.Application
	err := s.runner.WithinTx(ctx, func(q persistence.Querier) error {
		applications := s.applications.WithTx(q)

		app, err := applications.GetByID(ctx, input.ApplicationID)
		if err != nil {
			return mapStoreError("application", input.ApplicationID, err)
		}

		if input.Amount > app.DisbursedAmount {
			return apperrors.NewAmountExceedsBalance(input.Amount, app.DisbursedAmount)
		}

		entry := &domain.LedgerEntry{
			ApplicationID: app.ID,
			Type:          domain.EntryTypeRepayment,
			Amount:        input.Amount,
		}
		if err := s.ledger.WithTx(q).Append(ctx, entry); err != nil {
			return err
		}

		app.DisbursedAmount -= input.Amount
		if app.DisbursedAmount == 0 {
			app.Status = domain.ApplicationStatusRepaid
		} else {
			app.Status = domain.ApplicationStatusOutstanding
		}
		if err := applications.Update(ctx, app); err != nil {
			return err
		}
		result = app
		return nil
	})
	if err != nil {
		s.release(ctx, input.ApplicationID, domain.ApplicationStatusOutstanding)
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventFundsRepaid,
		ApplicationID: result.ID,
		UserID:        result.UserID,
		Payload: events.FundsRepaidPayload{
			Amount:     input.Amount,
			NewBalance: result.DisbursedAmount,
			Settled:    result.Status == domain.ApplicationStatusRepaid,
		},
	})
	return result, nil
}

// Reject denies an OPEN application. The transition is a single conditional
// update, so there is no scope to lock and nothing to roll back.
func (s *ApplicationService) Reject(ctx context.Context, applicationID string) (*domain.Application, error) {
	ok, err := s.applications.TransitionStatus(ctx, applicationID, domain.ApplicationStatusOpen, domain.ApplicationStatusRejected)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionFailure(ctx, applicationID, domain.ApplicationStatusOpen)
	}

	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, mapStoreError("application", applicationID, err)
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventApplicationRejected,
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Payload: events.ApplicationRejectedPayload{
			RequestedAmount: app.RequestedAmount,
		},
	})
	return app, nil
}

// GetByID fetches a single application.
func (s *ApplicationService) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError("application", id, err)
	}
	return app, nil
}

// ListByUser returns a user's applications, newest first.
func (s *ApplicationService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Application, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, mapStoreError("user", userID, err)
	}
	return s.applications.ListByUser(ctx, userID, limit, offset)
}

// ListAll returns applications across all users, newest first.
func (s *ApplicationService) ListAll(ctx context.Context, filter repository.ApplicationFilter) ([]domain.Application, error) {
	return s.applications.ListWithFilter(ctx, filter)
}

// ListLedger returns the ledger entries of an application, newest first.
func (s *ApplicationService) ListLedger(ctx context.Context, applicationID string, limit, offset int) ([]domain.LedgerEntry, error) {
	if _, err := s.applications.GetByID(ctx, applicationID); err != nil {
		return nil, mapStoreError("application", applicationID, err)
	}
	return s.ledger.ListByApplication(ctx, applicationID, limit, offset)
}

// claim moves the application from its expected state into PROCESSING.
func (s *ApplicationService) claim(ctx context.Context, id string, from domain.ApplicationStatus) error {
	ok, err := s.applications.TransitionStatus(ctx, id, from, domain.ApplicationStatusProcessing)
	if err != nil {
		return err
	}
	if !ok {
		return s.transitionFailure(ctx, id, from)
	}
	return nil
}

// release restores the pre-claim status. It runs on a cancel-proof context so
// a timed-out request cannot strand the application in PROCESSING.
func (s *ApplicationService) release(ctx context.Context, id string, to domain.ApplicationStatus) {
	ctx = context.WithoutCancel(ctx)
	ok, err := s.applications.TransitionStatus(ctx, id, domain.ApplicationStatusProcessing, to)
	if err != nil || !ok {
		s.logger.Error("failed to release processing lock",
			zap.String("application_id", id),
			zap.String("restore_status", string(to)),
			zap.Bool("transitioned", ok),
			zap.Error(err))
	}
}

// transitionFailure distinguishes a missing application from one in the wrong
// state after a conditional update matched no rows. Terminal states report as
// closed; other states may just be claimed by a concurrent operation.
func (s *ApplicationService) transitionFailure(ctx context.Context, id string, required domain.ApplicationStatus) error {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("application", id)
		}
		return err
	}
	if app.Status.Terminal() {
		return apperrors.NewTerminalState("application", string(app.Status))
	}
	return apperrors.NewInvalidState("application", string(app.Status), string(required))
}

func (s *ApplicationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapStoreError(entity, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(entity, id)
	}
	return err
}

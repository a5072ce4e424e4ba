package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/credit-line-service/internal/domain"
	"github.com/spec-kit/credit-line-service/internal/persistence"
)

const userCacheKeyPrefix = "user:"

// cachedUserRepository is a read-through cache over the Postgres user
// repository. Credit limits are read on every disbursement, so user records
// are cached by id with a short TTL and invalidated on update. Cache failures
// degrade to the inner repository; they never fail the request.
type cachedUserRepository struct {
	inner  UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserRepository decorates inner with a Redis cache. With a nil
// client or non-positive TTL the inner repository is returned unwrapped.
func NewCachedUserRepository(inner UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) UserRepository {
	if client == nil || ttl <= 0 {
		return inner
	}
	return &cachedUserRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

// WithTx bypasses the cache: reads inside an atomic scope must observe the
// transaction's own view of the data.
func (r *cachedUserRepository) WithTx(q persistence.Querier) UserRepository {
	return r.inner.WithTx(q)
}

func (r *cachedUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	key := userCacheKeyPrefix + id
	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var user domain.User
		if err := json.Unmarshal(raw, &user); err == nil {
			return &user, nil
		}
		r.invalidate(ctx, id)
	}

	user, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(user); err == nil {
		if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			r.logger.Debug("user cache set failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return user, nil
}

func (r *cachedUserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.inner.Create(ctx, user)
}

func (r *cachedUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.inner.Update(ctx, user); err != nil {
		return err
	}
	r.invalidate(ctx, user.ID)
	return nil
}

func (r *cachedUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.inner.GetByEmail(ctx, email)
}

func (r *cachedUserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return r.inner.List(ctx, limit, offset)
}

func (r *cachedUserRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, userCacheKeyPrefix+id).Err(); err != nil {
		r.logger.Debug("user cache invalidation failed", zap.String("user_id", id), zap.Error(err))
	}
}

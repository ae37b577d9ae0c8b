// internal/services/rate_limiter.go
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/invoice-backend/internal/config"
	"github.com/javajoker/invoice-backend/internal/database"
	"github.com/javajoker/invoice-backend/internal/metrics"
	"github.com/javajoker/invoice-backend/internal/models"
)

// Default lockout policy.
const (
	DefaultMaxAttempts   = 5
	DefaultAttemptWindow = 15 * time.Minute
	DefaultLockout       = 30 * time.Minute
)

// RateLimitStatus is the decision for one identifier. ResetTime is set while locked and
// holds the epoch milliseconds at which the lock ends.
type RateLimitStatus struct {
	Allowed           bool   `json:"allowed"`
	RemainingAttempts int    `json:"remaining_attempts"`
	ResetTime         *int64 `json:"reset_time,omitempty"`
}

// RateLimiter tracks failed authentication attempts per identifier in the store.
//
// An identifier moves CLEAN → TRACKING → LOCKED and back to CLEAN on success, on lock
// expiry, or when the tracking window passes without reaching the threshold. Expiry is
// evaluated lazily against stored timestamps; nothing runs in the background.
type RateLimiter struct {
	db          *gorm.DB
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
	now         func() time.Time
}

func NewRateLimiter(db *gorm.DB, cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		db:          db,
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
		lockout:     cfg.Lockout,
		now:         time.Now,
	}
	if rl.maxAttempts < 1 {
		rl.maxAttempts = DefaultMaxAttempts
	}
	if rl.window <= 0 {
		rl.window = DefaultAttemptWindow
	}
	if rl.lockout <= 0 {
		rl.lockout = DefaultLockout
	}
	return rl
}

// WithClock replaces the time source. Intended for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

func (rl *RateLimiter) MaxAttempts() int { return rl.maxAttempts }

func (rl *RateLimiter) CheckRateLimit(ctx context.Context, identifier string) (*RateLimitStatus, error) {
	if identifier == "" {
		return nil, validationError("identifier is required")
	}

	now := rl.now().UnixMilli()

	var record models.RateLimitRecord
	err := rl.db.WithContext(ctx).Where("identifier = ?", identifier).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rl.fresh(), nil
	}
	if err != nil {
		return nil, storeFailure("rate_limit.check", identifier, err, "")
	}

	if rl.isStale(&record, now) {
		// The lock expired or the window passed. Drop the row unless a concurrent failure
		// has already restarted it.
		if err := rl.db.WithContext(ctx).
			Where("identifier = ? AND first_attempt = ?", identifier, record.FirstAttempt).
			Delete(&models.RateLimitRecord{}).Error; err != nil {
			return nil, storeFailure("rate_limit.reset", identifier, err, "")
		}
		return rl.fresh(), nil
	}

	return rl.status(&record, now), nil
}

// RecordFailedAttempt counts one failure for identifier and applies the lock decision in
// the same statement, so concurrent failures cannot both slip under the threshold.
func (rl *RateLimiter) RecordFailedAttempt(ctx context.Context, identifier string) (*RateLimitStatus, error) {
	if identifier == "" {
		return nil, validationError("identifier is required")
	}

	now := rl.now()
	nowMs := now.UnixMilli()
	lockUntil := now.Add(rl.lockout).UnixMilli()

	// Lock on the very first failure only when the threshold is 1.
	var initialLock *int64
	if rl.maxAttempts <= 1 {
		initialLock = &lockUntil
	}

	args := map[string]interface{}{
		"identifier":   identifier,
		"now":          nowMs,
		"window_start": now.Add(-rl.window).UnixMilli(),
		"initial_lock": initialLock,
		"max_attempts": rl.maxAttempts,
		"lock_until":   lockUntil,
	}

	var record models.RateLimitRecord
	err := database.WithTransaction(ctx, rl.db, func(tx *gorm.DB) error {
		if err := tx.Exec(recordFailureSQL, args).Error; err != nil {
			return err
		}
		return tx.Where("identifier = ?", identifier).Take(&record).Error
	})
	if err != nil {
		return nil, storeFailure("rate_limit.record_failure", identifier, err, "")
	}

	metrics.LoginFailures.Inc()
	if record.LockedUntil != nil && *record.LockedUntil == lockUntil {
		metrics.Lockouts.Inc()
	}

	return rl.status(&record, nowMs), nil
}

// ClearAttempts removes every trace of identifier. Called after a successful login.
func (rl *RateLimiter) ClearAttempts(ctx context.Context, identifier string) error {
	if identifier == "" {
		return validationError("identifier is required")
	}
	if err := rl.db.WithContext(ctx).
		Where("identifier = ?", identifier).
		Delete(&models.RateLimitRecord{}).Error; err != nil {
		return storeFailure("rate_limit.clear", identifier, err, "")
	}
	return nil
}

// A row is stale when its lock has expired, or when it is unlocked and the tracking
// window has passed since the first failure.
const staleCondition = `(rate_limits.locked_until IS NOT NULL AND rate_limits.locked_until <= @now)
	OR (rate_limits.locked_until IS NULL AND rate_limits.first_attempt <= @window_start)`

const recordFailureSQL = `INSERT INTO rate_limits (identifier, attempts, first_attempt, locked_until)
VALUES (@identifier, 1, @now, @initial_lock)
ON CONFLICT (identifier) DO UPDATE SET
	attempts = CASE WHEN ` + staleCondition + ` THEN 1
		ELSE rate_limits.attempts + 1 END,
	first_attempt = CASE WHEN ` + staleCondition + ` THEN @now
		ELSE rate_limits.first_attempt END,
	locked_until = CASE
		WHEN ` + staleCondition + ` THEN CAST(@initial_lock AS BIGINT)
		WHEN rate_limits.locked_until IS NOT NULL THEN rate_limits.locked_until
		WHEN rate_limits.attempts + 1 >= @max_attempts THEN CAST(@lock_until AS BIGINT)
		ELSE NULL END`

func (rl *RateLimiter) isStale(record *models.RateLimitRecord, now int64) bool {
	if record.LockedUntil != nil {
		return *record.LockedUntil <= now
	}
	return record.FirstAttempt <= now-rl.window.Milliseconds()
}

func (rl *RateLimiter) fresh() *RateLimitStatus {
	return &RateLimitStatus{Allowed: true, RemainingAttempts: rl.maxAttempts}
}

func (rl *RateLimiter) status(record *models.RateLimitRecord, now int64) *RateLimitStatus {
	if record.LockedUntil != nil && *record.LockedUntil > now {
		resetTime := *record.LockedUntil
		return &RateLimitStatus{Allowed: false, RemainingAttempts: 0, ResetTime: &resetTime}
	}

	remaining := rl.maxAttempts - record.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitStatus{Allowed: remaining > 0, RemainingAttempts: remaining}
}

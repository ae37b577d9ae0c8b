// internal/models/rate_limit.go
package models

// RateLimitRecord tracks failed authentication attempts for one identifier (email or IP).
// Timestamps are epoch milliseconds.
type RateLimitRecord struct {
	Identifier   string `json:"identifier" gorm:"primaryKey;size:255"`
	Attempts     int    `json:"attempts" gorm:"not null;default:0"`
	FirstAttempt int64  `json:"first_attempt" gorm:"not null"`
	LockedUntil  *int64 `json:"locked_until"`
}

func (RateLimitRecord) TableName() string {
	return "rate_limits"
}

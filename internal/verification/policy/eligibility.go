package policy

import (
	"time"

	"idvgate/internal/verification/models"
)

const millisPerDay = 86_400_000

// ShouldVerify decides whether a login must be redirected to verification.
// Rules are evaluated in order and the first match wins:
//  1. first login, when configured
//  2. every login (interval -1)
//  3. interval elapsed (boundary inclusive) or never checked
//
// Pure function: no I/O.
func ShouldVerify(subject models.Subject, cfg models.PolicyConfig, now time.Time) bool {
	if cfg.TriggerOnFirstLogin && subject.LoginsCount == 0 {
		return true
	}
	if cfg.RecheckIntervalDays == models.RecheckEveryLogin {
		return true
	}
	if cfg.RecheckIntervalDays > 0 {
		last := subject.LastCheckAt()
		if last == nil {
			return true
		}
		return ElapsedDays(*last, now) >= int64(cfg.RecheckIntervalDays)
	}
	return false
}

// ElapsedDays returns whole days between since and now, truncated toward zero.
func ElapsedDays(since, now time.Time) int64 {
	return now.Sub(since).Milliseconds() / millisPerDay
}

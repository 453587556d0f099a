package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"idvgate/internal/verification/models"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func subjectCheckedAt(logins int, at *time.Time) models.Subject {
	s := models.Subject{ID: "auth0|abc", LoginsCount: logins}
	if at != nil {
		s.Verification = &models.VerificationRecord{Status: models.StatusPassed, LastCheckAt: at, CheckCount: 1}
	}
	return s
}

func daysAgo(d int) *time.Time {
	t := now.Add(-time.Duration(d) * 24 * time.Hour)
	return &t
}

// First-login trigger wins before any interval rule is consulted.
func TestShouldVerify_FirstLoginTakesPrecedence(t *testing.T) {
	for _, interval := range []int{-1, 0, 1, 30, 365} {
		cfg := models.PolicyConfig{TriggerOnFirstLogin: true, RecheckIntervalDays: interval}
		assert.True(t, ShouldVerify(subjectCheckedAt(0, daysAgo(0)), cfg, now), "interval %d", interval)
	}
}

func TestShouldVerify_FirstLoginFlagOnlyAppliesToFirstLogin(t *testing.T) {
	cfg := models.PolicyConfig{TriggerOnFirstLogin: true, RecheckIntervalDays: models.RecheckNever}
	assert.False(t, ShouldVerify(subjectCheckedAt(3, nil), cfg, now))

	cfg.TriggerOnFirstLogin = false
	assert.False(t, ShouldVerify(subjectCheckedAt(0, nil), cfg, now))
}

func TestShouldVerify_EveryLogin(t *testing.T) {
	cfg := models.PolicyConfig{RecheckIntervalDays: models.RecheckEveryLogin}
	for _, s := range []models.Subject{
		subjectCheckedAt(0, nil),
		subjectCheckedAt(12, daysAgo(0)),
		subjectCheckedAt(5, daysAgo(400)),
	} {
		assert.True(t, ShouldVerify(s, cfg, now))
	}
}

func TestShouldVerify_Interval(t *testing.T) {
	cfg := models.PolicyConfig{RecheckIntervalDays: 7}

	t.Run("never checked triggers", func(t *testing.T) {
		assert.True(t, ShouldVerify(subjectCheckedAt(4, nil), cfg, now))
	})

	t.Run("before the interval does not trigger", func(t *testing.T) {
		for d := 0; d < 7; d++ {
			assert.False(t, ShouldVerify(subjectCheckedAt(4, daysAgo(d)), cfg, now), "day %d", d)
		}
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		assert.True(t, ShouldVerify(subjectCheckedAt(4, daysAgo(7)), cfg, now))
		assert.True(t, ShouldVerify(subjectCheckedAt(4, daysAgo(8)), cfg, now))
	})

	t.Run("partial days truncate", func(t *testing.T) {
		almost := now.Add(-7*24*time.Hour + time.Millisecond)
		assert.False(t, ShouldVerify(subjectCheckedAt(4, &almost), cfg, now))
	})
}

func TestShouldVerify_NeverRecheck(t *testing.T) {
	cfg := models.PolicyConfig{RecheckIntervalDays: models.RecheckNever}
	assert.False(t, ShouldVerify(subjectCheckedAt(4, nil), cfg, now))
	assert.False(t, ShouldVerify(subjectCheckedAt(4, daysAgo(1000)), cfg, now))
}

func TestElapsedDays(t *testing.T) {
	assert.Equal(t, int64(0), ElapsedDays(now.Add(-23*time.Hour), now))
	assert.Equal(t, int64(1), ElapsedDays(now.Add(-24*time.Hour), now))
	assert.Equal(t, int64(2), ElapsedDays(now.Add(-71*time.Hour), now))
}

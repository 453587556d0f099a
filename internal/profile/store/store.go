// Package store persists the verification slice of subject profiles.
//
// Writes merge rather than replace: status and reference follow the latest
// check, check_count never decreases and last_check_at never moves back.
package store

import (
	"time"

	"idvgate/internal/verification/models"
)

// Schema creates the profile verification table. Applied by `idv migrate`.
const Schema = `
CREATE TABLE IF NOT EXISTS subject_verifications (
	subject_id    TEXT PRIMARY KEY,
	status        TEXT NOT NULL DEFAULT '',
	last_check_at TIMESTAMPTZ NULL,
	check_count   INTEGER NOT NULL DEFAULT 0 CHECK (check_count >= 0),
	reference_url TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// merge applies update onto current following the store's merge contract.
func merge(current *models.VerificationRecord, update models.VerificationRecord) models.VerificationRecord {
	if current == nil {
		return update
	}
	merged := update
	if current.CheckCount > merged.CheckCount {
		merged.CheckCount = current.CheckCount
	}
	if laterOf(current.LastCheckAt, update.LastCheckAt) == current.LastCheckAt {
		merged.LastCheckAt = current.LastCheckAt
	}
	return merged
}

func laterOf(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.After(*b):
		return a
	default:
		return b
	}
}

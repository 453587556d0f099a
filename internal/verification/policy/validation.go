package policy

import (
	"fmt"
	"net/url"
	"time"

	"idvgate/internal/verification/models"
	dErrors "idvgate/pkg/domain-errors"
)

const (
	// ReferenceSeparator joins subject id and correlation token in the
	// reference the provider echoes back.
	ReferenceSeparator = "__"

	// ResultTTL bounds how old a fetched result may be.
	ResultTTL = 20 * time.Minute
)

// Assessment is a validated result and the record update it produces.
type Assessment struct {
	Status models.Status
	Record models.VerificationRecord
}

// SubjectReference builds the reference the provider must echo back.
func SubjectReference(subjectID, correlationToken string) string {
	return subjectID + ReferenceSeparator + correlationToken
}

// ReferenceURL builds the operator link for a result.
func ReferenceURL(base, resultID string) string {
	if base == "" {
		return resultID
	}
	return fmt.Sprintf("%s?id=%s", base, url.QueryEscape(resultID))
}

// ValidateResult checks a fetched result in order: identity binding,
// freshness, confidence. Binding and freshness failures return no
// assessment. A flagged result returns both the assessment (to persist) and
// a verification_flagged error (to deny the login).
func ValidateResult(
	result models.VerificationResult,
	subject models.Subject,
	correlationToken string,
	referenceBase string,
	now time.Time,
) (*Assessment, error) {
	if correlationToken == "" || result.SubjectReference != SubjectReference(subject.ID, correlationToken) {
		return nil, dErrors.New(dErrors.CodeIdentityMismatch, "verification result is bound to a different login")
	}

	if now.Sub(result.ProducedAt) > ResultTTL {
		return nil, dErrors.New(dErrors.CodeResultExpired, "verification result is too old")
	}

	status := models.StatusFlagged
	if result.Confidence.Document == models.ConfidenceHigh && result.Confidence.Face == models.ConfidenceHigh {
		status = models.StatusPassed
	}

	checkedAt := now
	assessment := &Assessment{
		Status: status,
		Record: models.VerificationRecord{
			Status:       status,
			LastCheckAt:  &checkedAt,
			CheckCount:   subject.CheckCount() + 1,
			ReferenceURL: ReferenceURL(referenceBase, result.ResultID),
		},
	}

	if status == models.StatusFlagged {
		return assessment, dErrors.New(dErrors.CodeVerificationFlagged, "identity verification did not pass")
	}
	return assessment, nil
}

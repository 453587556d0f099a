package handler

import (
	"strings"

	"idvgate/internal/verification/models"
	dErrors "idvgate/pkg/domain-errors"
)

// SubjectPayload is the host's view of the user logging in.
type SubjectPayload struct {
	ID           string                     `json:"id"`
	LoginsCount  int                        `json:"logins_count"`
	Verification *models.VerificationRecord `json:"verification,omitempty"`
}

// LoginHookRequest is one rule-engine invocation posted by the host.
type LoginHookRequest struct {
	Subject         SubjectPayload    `json:"subject"`
	Protocol        string            `json:"protocol"`
	RedirectAllowed bool              `json:"redirect_allowed"`
	Query           map[string]string `json:"query,omitempty"`
}

// Normalize trims identifiers before validation.
func (r *LoginHookRequest) Normalize() {
	if r == nil {
		return
	}
	r.Subject.ID = strings.TrimSpace(r.Subject.ID)
	r.Protocol = strings.TrimSpace(r.Protocol)
}

func (r *LoginHookRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Subject.ID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "subject.id is required")
	}
	if r.Subject.LoginsCount < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "subject.logins_count must not be negative")
	}
	return nil
}

func (r *LoginHookRequest) ToInvocation() models.Invocation {
	return models.Invocation{
		Subject: models.Subject{
			ID:           r.Subject.ID,
			LoginsCount:  r.Subject.LoginsCount,
			Verification: r.Subject.Verification,
		},
		Protocol:        r.Protocol,
		RedirectAllowed: r.RedirectAllowed,
		Query:           r.Query,
	}
}

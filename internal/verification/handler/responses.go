package handler

import (
	"idvgate/internal/verification/models"
	dErrors "idvgate/pkg/domain-errors"
	"idvgate/pkg/platform/audit"
)

// HookResponse tells the host what to do with the login.
type HookResponse struct {
	Action           models.Action              `json:"action"`
	RedirectURL      string                     `json:"redirect_url,omitempty"`
	Verification     *models.VerificationRecord `json:"verification,omitempty"`
	Error            string                     `json:"error,omitempty"`
	ErrorDescription string                     `json:"error_description,omitempty"`
}

func toHookResponse(outcome *models.Outcome) *HookResponse {
	return &HookResponse{
		Action:       outcome.Action,
		RedirectURL:  outcome.RedirectURL,
		Verification: outcome.Verification,
	}
}

// toDenyResponse fails the login closed. Internal errors keep their
// description out of the host's logs.
func toDenyResponse(outcome *models.Outcome, err error) *HookResponse {
	code := dErrors.CodeOf(err)
	resp := &HookResponse{
		Action: models.ActionDeny,
		Error:  string(code),
	}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	if outcome != nil {
		resp.Verification = outcome.Verification
	}
	return resp
}

// VerificationResponse is the operator view of a stored record.
type VerificationResponse struct {
	SubjectID string `json:"subject_id"`
	models.VerificationRecord
}

type AuditResponse struct {
	SubjectID string        `json:"subject_id"`
	Events    []audit.Event `json:"events"`
}

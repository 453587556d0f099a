package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"idvgate/internal/verification/models"
)

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (p errorPayload) text() string {
	if p.Message != "" {
		return p.Message
	}
	return p.Error
}

// flexID accepts identifiers encoded as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type tokenResponse struct {
	errorPayload
	TransactionID flexID `json:"transaction_id"`
}

type resultResponse struct {
	errorPayload
	ID          flexID `json:"id"`
	CustomerUID string `json:"customer_uid"`
	CreatedAt   string `json:"created_at"`
	Confidence  struct {
		Document string `json:"document"`
		Face     string `json:"face"`
	} `json:"confidence"`
}

// checkStatus turns non-2xx responses and explicit error payloads into
// remote errors carrying the provider's message.
func checkStatus(operation string, status int, payload errorPayload) error {
	if status == http.StatusUnauthorized {
		return newError(ErrorAuthentication, operation, status, "unauthorized", nil)
	}
	if status < 200 || status >= 300 {
		msg := payload.text()
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", status)
		}
		return newError(ErrorRemote, operation, status, msg, nil)
	}
	if payload.text() != "" {
		return newError(ErrorRemote, operation, status, payload.text(), nil)
	}
	return nil
}

func parseTokenResponse(status int, body []byte) (string, error) {
	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		if status >= 200 && status < 300 {
			return "", newError(ErrorBadData, opExchangeToken, status, "malformed token response", err)
		}
		resp = tokenResponse{}
	}
	if err := checkStatus(opExchangeToken, status, resp.errorPayload); err != nil {
		return "", err
	}
	if resp.TransactionID == "" {
		return "", newError(ErrorBadData, opExchangeToken, status, "token response missing transaction id", nil)
	}
	return string(resp.TransactionID), nil
}

func parseResultResponse(status int, body []byte) (*models.VerificationResult, error) {
	var resp resultResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		if status >= 200 && status < 300 {
			return nil, newError(ErrorBadData, opFetchResult, status, "malformed result response", err)
		}
		resp = resultResponse{}
	}
	if err := checkStatus(opFetchResult, status, resp.errorPayload); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, newError(ErrorBadData, opFetchResult, status, "result response missing id", nil)
	}

	producedAt, err := time.Parse(time.RFC3339, resp.CreatedAt)
	if err != nil {
		// An unparseable timestamp must never look fresh.
		producedAt = time.Time{}
	}

	return &models.VerificationResult{
		ResultID:         string(resp.ID),
		SubjectReference: resp.CustomerUID,
		ProducedAt:       producedAt,
		Confidence: models.ConfidenceLevels{
			Document: models.Confidence(resp.Confidence.Document),
			Face:     models.Confidence(resp.Confidence.Face),
		},
	}, nil
}

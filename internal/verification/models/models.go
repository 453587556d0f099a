package models

import (
	"time"
)

// Status is the verification state stored on a subject's profile.
type Status string

const (
	StatusUnset   Status = ""
	StatusPassed  Status = "passed"
	StatusFlagged Status = "flagged"
)

// Confidence is the provider-reported certainty of a sub-check.
type Confidence string

const ConfidenceHigh Confidence = "high"

// VerificationRecord is the verification slice of a subject's profile.
// CheckCount never decreases and LastCheckAt only moves after a result
// passes identity binding and freshness.
type VerificationRecord struct {
	Status       Status     `json:"status,omitempty"`
	LastCheckAt  *time.Time `json:"last_check_at,omitempty"`
	CheckCount   int        `json:"check_count"`
	ReferenceURL string     `json:"reference_url,omitempty"`
}

// Subject is the identity logging in.
type Subject struct {
	ID           string
	LoginsCount  int
	Verification *VerificationRecord
}

// LastCheckAt returns the last successful check time, if any.
func (s Subject) LastCheckAt() *time.Time {
	if s.Verification == nil {
		return nil
	}
	return s.Verification.LastCheckAt
}

// CheckCount returns the number of completed checks.
func (s Subject) CheckCount() int {
	if s.Verification == nil {
		return 0
	}
	return s.Verification.CheckCount
}

// ConfidenceLevels holds the per-sub-check provider confidence.
type ConfidenceLevels struct {
	Document Confidence `json:"document"`
	Face     Confidence `json:"face"`
}

// VerificationResult is an untrusted payload fetched from the provider.
type VerificationResult struct {
	ResultID         string
	SubjectReference string
	ProducedAt       time.Time
	Confidence       ConfidenceLevels
}

// PolicyConfig controls when a login is sent to verification.
// RecheckIntervalDays: -1 every login, 0 never, >0 interval in days.
type PolicyConfig struct {
	TriggerOnFirstLogin bool
	RecheckIntervalDays int
}

const (
	RecheckEveryLogin = -1
	RecheckNever      = 0
)

// ProtocolRedirectCallback marks an invocation that resumes after a redirect.
const ProtocolRedirectCallback = "redirect-callback"

// Query parameters the hosted flow appends on return.
const (
	QueryCompleteMarker = "idv_complete"
	QueryExchangeToken  = "idv_token"
	QuerySessionToken   = "session_token"
)

// Invocation is one call from the host's rule engine.
type Invocation struct {
	Subject         Subject
	Protocol        string
	RedirectAllowed bool
	Query           map[string]string
}

// IsReturn reports whether the host is resuming after a redirect.
func (i Invocation) IsReturn() bool {
	return i.Protocol == ProtocolRedirectCallback
}

// Action is what the host should do with the login.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionRedirect Action = "redirect"
	ActionDeny     Action = "deny"
)

// Outcome is the hook's answer to an invocation.
type Outcome struct {
	Action       Action
	RedirectURL  string
	Verification *VerificationRecord
}

// Redirect describes a pending transfer to the hosted flow.
type Redirect struct {
	SubjectID    string
	State        string
	SessionToken string
}

// Package redirect builds the hosted verification flow URL the host sends
// the browser to.
package redirect

import (
	"context"
	"fmt"
	"net/url"

	"idvgate/internal/verification/models"
	dErrors "idvgate/pkg/domain-errors"
)

// HostedFlow redirects to the provider's hosted verification page.
type HostedFlow struct {
	flowURL   *url.URL
	publicKey string
}

// NewHostedFlow validates flowURL once at startup.
func NewHostedFlow(flowURL, publicKey string) (*HostedFlow, error) {
	u, err := url.Parse(flowURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid hosted flow url %q", flowURL)
	}
	return &HostedFlow{flowURL: u, publicKey: publicKey}, nil
}

// Redirect returns the URL carrying the signed session artifact and the
// correlation token. It fails when the invocation cannot be redirected
// (non-interactive grants).
func (h *HostedFlow) Redirect(_ context.Context, inv models.Invocation, r models.Redirect) (string, error) {
	if !inv.RedirectAllowed {
		return "", dErrors.New(dErrors.CodeRedirectNotAllowed, "this login cannot be redirected for identity verification")
	}
	u := *h.flowURL
	q := u.Query()
	q.Set("client_id", h.publicKey)
	q.Set(models.QuerySessionToken, r.SessionToken)
	q.Set("state", r.State)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

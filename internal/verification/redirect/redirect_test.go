package redirect

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idvgate/internal/verification/models"
	dErrors "idvgate/pkg/domain-errors"
)

func TestNewHostedFlow(t *testing.T) {
	_, err := NewHostedFlow("not a url", "pk")
	assert.Error(t, err)

	_, err = NewHostedFlow("/relative", "pk")
	assert.Error(t, err)
}

func TestHostedFlow_Redirect(t *testing.T) {
	flow, err := NewHostedFlow("https://verify.example.test/v0/flow?theme=dark", "pk_live_1")
	require.NoError(t, err)

	t.Run("builds the flow url", func(t *testing.T) {
		got, err := flow.Redirect(context.Background(),
			models.Invocation{RedirectAllowed: true},
			models.Redirect{SubjectID: "auth0|abc", State: "st-1", SessionToken: "jwt.token.sig"},
		)
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, "verify.example.test", u.Host)
		assert.Equal(t, "dark", u.Query().Get("theme"))
		assert.Equal(t, "pk_live_1", u.Query().Get("client_id"))
		assert.Equal(t, "jwt.token.sig", u.Query().Get("session_token"))
		assert.Equal(t, "st-1", u.Query().Get("state"))
	})

	t.Run("refuses when the host disallows redirects", func(t *testing.T) {
		_, err := flow.Redirect(context.Background(), models.Invocation{}, models.Redirect{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRedirectNotAllowed))
	})
}

package handler_test

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	profilestore "idvgate/internal/profile/store"
	"idvgate/internal/verification/handler"
	"idvgate/internal/verification/models"
	"idvgate/internal/verification/policy"
	"idvgate/internal/verification/provider"
	"idvgate/internal/verification/redirect"
	"idvgate/internal/verification/service"
	"idvgate/internal/verification/session"
	"idvgate/internal/verification/state"
	"idvgate/pkg/platform/audit"
	"idvgate/pkg/platform/audit/publisher"
	auditmemory "idvgate/pkg/platform/audit/store/memory"
	"idvgate/pkg/testutil"
)

const (
	flowSubject = "auth0|flow"
	flowState   = "flow-state"
	flowAdmin   = "admin"
)

// fakeProvider serves one exchange token and one result produced at producedAt.
func fakeProvider(t *testing.T, producedAt time.Time) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/tokens", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"transaction_id": 77}`)
	})
	mux.HandleFunc("GET /v0/transactions/77", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, `{"id": 77, "customer_uid": %q, "created_at": %q, "confidence": {"document": "high", "face": "high"}}`,
			policy.SubjectReference(flowSubject, flowState), producedAt.Format(time.RFC3339))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginFlow_RedirectThenReturn(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	providerSrv := fakeProvider(t, now.Add(-time.Minute))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	signer, err := session.NewSigner("priv_key", 20*time.Minute)
	require.NoError(t, err)
	flow, err := redirect.NewHostedFlow("https://verify.example.test/v0/flow", "pub_key")
	require.NoError(t, err)
	profiles := profilestore.NewInMemoryStore()
	auditStore := auditmemory.NewInMemoryStore()
	auditPublisher := publisher.NewPublisher(auditStore)

	svc, err := service.New(
		provider.New(providerSrv.URL, "priv_key", 2*time.Second),
		profiles,
		state.NewMemoryStore(20*time.Minute),
		signer,
		flow,
		service.WithPolicy(models.PolicyConfig{TriggerOnFirstLogin: true}),
		service.WithReferenceBase("https://dashboard.example.test/transaction"),
		service.WithTokenSource(func() string { return flowState }),
		service.WithAuditPublisher(auditPublisher),
		service.WithLogger(logger),
	)
	require.NoError(t, err)

	router := chi.NewRouter()
	handler.New(svc, profiles, auditPublisher, logger, "", flowAdmin).Register(router)

	post := func(body handler.LoginHookRequest) *handler.HookResponse {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/hooks/login", body)
		rr := testutil.DoRequest(router, testutil.WithRequestScope(req, "req-1", now))
		require.Equal(t, http.StatusOK, rr.Code)
		return testutil.UnmarshalResponse[handler.HookResponse](t, rr)
	}

	testutil.Given(t, "a subject on their first login", func(t *testing.T) {
		first := post(handler.LoginHookRequest{
			Subject:         handler.SubjectPayload{ID: flowSubject, LoginsCount: 0},
			RedirectAllowed: true,
		})

		testutil.Then(t, "the host is told to redirect to the hosted flow", func(t *testing.T) {
			require.Equal(t, models.ActionRedirect, first.Action)
			u, err := url.Parse(first.RedirectURL)
			require.NoError(t, err)
			assert.Equal(t, "pub_key", u.Query().Get("client_id"))
			assert.Equal(t, flowState, u.Query().Get("state"))
		})

		u, err := url.Parse(first.RedirectURL)
		require.NoError(t, err)
		returnBody := handler.LoginHookRequest{
			Subject:  handler.SubjectPayload{ID: flowSubject, LoginsCount: 0},
			Protocol: models.ProtocolRedirectCallback,
			Query: map[string]string{
				models.QueryCompleteMarker: "1",
				models.QueryExchangeToken:  "one-time",
				models.QuerySessionToken:   u.Query().Get(models.QuerySessionToken),
			},
		}

		testutil.When(t, "the flow returns with a fresh, bound, high-confidence result", func(t *testing.T) {
			back := post(returnBody)

			testutil.Then(t, "the login is allowed and the record persisted", func(t *testing.T) {
				require.Equal(t, models.ActionAllow, back.Action, back.ErrorDescription)
				require.NotNil(t, back.Verification)
				assert.Equal(t, models.StatusPassed, back.Verification.Status)
				assert.Equal(t, 1, back.Verification.CheckCount)
				assert.Equal(t, "https://dashboard.example.test/transaction?id=77", back.Verification.ReferenceURL)

				req := testutil.NewJSONRequest(t, http.MethodGet, "/profiles/"+url.PathEscape(flowSubject)+"/verification", nil)
				req.Header.Set("X-Admin-Token", flowAdmin)
				rr := testutil.DoRequest(router, req)
				require.Equal(t, http.StatusOK, rr.Code)
				stored := testutil.UnmarshalResponse[handler.VerificationResponse](t, rr)
				assert.Equal(t, 1, stored.CheckCount)
			})
		})

		testutil.When(t, "the same return is replayed", func(t *testing.T) {
			replay := post(returnBody)

			testutil.Then(t, "it is denied because the pending state was consumed", func(t *testing.T) {
				assert.Equal(t, models.ActionDeny, replay.Action)
				assert.Equal(t, "identity_mismatch", replay.Error)
			})
		})

		testutil.When(t, "the subject logs in again and the host omits the record", func(t *testing.T) {
			next := post(handler.LoginHookRequest{
				Subject:         handler.SubjectPayload{ID: flowSubject, LoginsCount: 1},
				RedirectAllowed: true,
			})

			testutil.Then(t, "the login is allowed with the stored record", func(t *testing.T) {
				require.Equal(t, models.ActionAllow, next.Action)
				require.NotNil(t, next.Verification)
				assert.Equal(t, 1, next.Verification.CheckCount)
				assert.Equal(t, models.StatusPassed, next.Verification.Status)
			})
		})

		testutil.Then(t, "the audit trail records each step", func(t *testing.T) {
			events, err := auditPublisher.List(t.Context(), flowSubject)
			require.NoError(t, err)
			var actions []string
			for _, e := range events {
				actions = append(actions, e.Action)
			}
			assert.Equal(t, []string{
				string(audit.EventVerificationRedirected),
				string(audit.EventVerificationPassed),
				string(audit.EventVerificationRejected),
			}, actions)
		})
	})
}

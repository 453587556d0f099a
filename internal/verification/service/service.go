// Package service runs the login hook: decide whether a login must be
// verified, send it to the hosted flow, and judge the result on return.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idvgate/internal/verification/metrics"
	"idvgate/internal/verification/models"
	"idvgate/internal/verification/policy"
	"idvgate/internal/verification/provider"
	"idvgate/internal/verification/state"
	dErrors "idvgate/pkg/domain-errors"
	"idvgate/pkg/platform/audit"
	"idvgate/pkg/platform/sentinel"
	"idvgate/pkg/requestcontext"
)

// ProviderClient talks to the identity verification provider.
type ProviderClient interface {
	ExchangeToken(ctx context.Context, exchangeToken string) (string, error)
	FetchResult(ctx context.Context, checkID string) (*models.VerificationResult, error)
}

// ProfileStore persists the verification slice of a subject's profile.
// FindVerification returns sentinel.ErrNotFound when nothing is stored.
type ProfileStore interface {
	FindVerification(ctx context.Context, subjectID string) (*models.VerificationRecord, error)
	MergeVerification(ctx context.Context, subjectID string, update models.VerificationRecord) (*models.VerificationRecord, error)
}

// StateStore holds the correlation token between redirect and return.
type StateStore interface {
	Save(ctx context.Context, subjectID, token string, ttl time.Duration) error
	Consume(ctx context.Context, subjectID string) (string, error)
}

// SessionSigner issues and checks the artifact handed to the hosted flow.
type SessionSigner interface {
	Sign(subjectID, state string, now time.Time) (string, error)
	Verify(token, subjectID string, now time.Time) (string, error)
}

// Redirector turns a pending verification into a URL for the host.
type Redirector interface {
	Redirect(ctx context.Context, inv models.Invocation, r models.Redirect) (string, error)
}

// AuditPublisher records verification outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const defaultStateTTL = 20 * time.Minute

type Service struct {
	provider   ProviderClient
	profiles   ProfileStore
	states     StateStore
	signer     SessionSigner
	redirector Redirector

	policy        models.PolicyConfig
	referenceBase string
	stateTTL      time.Duration
	newToken      func() string

	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	logger         *slog.Logger
}

type Option func(*Service)

func WithPolicy(cfg models.PolicyConfig) Option {
	return func(s *Service) {
		s.policy = cfg
	}
}

// WithReferenceBase sets the operator dashboard link stored on records.
func WithReferenceBase(base string) Option {
	return func(s *Service) {
		s.referenceBase = base
	}
}

func WithStateTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.stateTTL = ttl
		}
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithTokenSource replaces the correlation token generator.
func WithTokenSource(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newToken = fn
		}
	}
}

func New(
	client ProviderClient,
	profiles ProfileStore,
	states StateStore,
	signer SessionSigner,
	redirector Redirector,
	opts ...Option,
) (*Service, error) {
	switch {
	case client == nil:
		return nil, fmt.Errorf("provider client is required")
	case profiles == nil:
		return nil, fmt.Errorf("profile store is required")
	case states == nil:
		return nil, fmt.Errorf("state store is required")
	case signer == nil:
		return nil, fmt.Errorf("session signer is required")
	case redirector == nil:
		return nil, fmt.Errorf("redirector is required")
	}

	svc := &Service{
		provider:   client,
		profiles:   profiles,
		states:     states,
		signer:     signer,
		redirector: redirector,
		stateTTL:   defaultStateTTL,
		newToken:   state.NewToken,
		tracer:     otel.Tracer("idvgate/verification"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Handle answers one hook invocation. On a flagged result the returned
// Outcome carries the persisted record alongside the error.
func (s *Service) Handle(ctx context.Context, inv models.Invocation) (*models.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "verification.handle",
		trace.WithAttributes(
			attribute.String("subject.id", inv.Subject.ID),
			attribute.Bool("invocation.return", inv.IsReturn()),
		),
	)
	defer span.End()

	start := time.Now()
	var (
		outcome *models.Outcome
		err     error
	)
	if inv.IsReturn() {
		outcome, err = s.handleReturn(ctx, inv)
	} else {
		outcome, err = s.handleLogin(ctx, inv)
	}

	action := string(models.ActionDeny)
	if err == nil && outcome != nil {
		action = string(outcome.Action)
	}
	s.metrics.ObserveInvocation(action, time.Since(start))

	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.logger.DebugContext(ctx, "verification invocation failed",
			"subject_id", inv.Subject.ID,
			"code", dErrors.CodeOf(err),
			"error", err,
		)
	}
	return outcome, err
}

func (s *Service) handleLogin(ctx context.Context, inv models.Invocation) (*models.Outcome, error) {
	now := requestcontext.Now(ctx)
	subject, err := s.resolveSubject(ctx, inv.Subject)
	if err != nil {
		return nil, err
	}

	if !policy.ShouldVerify(subject, s.policy, now) {
		s.metrics.IncrementEligibility("skip")
		return &models.Outcome{Action: models.ActionAllow, Verification: subject.Verification}, nil
	}
	s.metrics.IncrementEligibility("verify")

	token := s.newToken()
	artifact, err := s.signer.Sign(subject.ID, token, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session")
	}

	redirectURL, err := s.redirector.Redirect(ctx, inv, models.Redirect{
		SubjectID:    subject.ID,
		State:        token,
		SessionToken: artifact,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeRedirectNotAllowed) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build verification redirect")
	}

	if err := s.states.Save(ctx, subject.ID, token, s.stateTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record pending verification")
	}

	s.emit(ctx, audit.Event{
		SubjectID:  subject.ID,
		Action:     string(audit.EventVerificationRedirected),
		Decision:   string(models.ActionRedirect),
		CheckCount: subject.CheckCount(),
	})
	return &models.Outcome{Action: models.ActionRedirect, RedirectURL: redirectURL}, nil
}

func (s *Service) handleReturn(ctx context.Context, inv models.Invocation) (*models.Outcome, error) {
	now := requestcontext.Now(ctx)
	subject := inv.Subject

	// Returns without the completion marker come from unrelated redirects.
	if inv.Query[models.QueryCompleteMarker] == "" {
		return &models.Outcome{Action: models.ActionAllow, Verification: subject.Verification}, nil
	}

	exchangeToken := inv.Query[models.QueryExchangeToken]
	if exchangeToken == "" {
		s.metrics.IncrementValidation("missing_token")
		return nil, s.reject(ctx, subject, dErrors.New(dErrors.CodeMissingExchangeToken, "verification returned without a token"))
	}

	correlation, err := s.correlationToken(ctx, inv, now)
	if err != nil {
		s.metrics.IncrementValidation("identity_mismatch")
		return nil, s.reject(ctx, subject, err)
	}

	checkID, err := s.provider.ExchangeToken(ctx, exchangeToken)
	if err != nil {
		return nil, s.fail(ctx, subject, provider.ToDomainError(err), err)
	}
	result, err := s.provider.FetchResult(ctx, checkID)
	if err != nil {
		return nil, s.fail(ctx, subject, provider.ToDomainError(err), err)
	}

	subject, err = s.resolveSubject(ctx, subject)
	if err != nil {
		return nil, err
	}

	assessment, verr := policy.ValidateResult(*result, subject, correlation, s.referenceBase, now)
	if assessment == nil {
		s.metrics.IncrementValidation(string(dErrors.CodeOf(verr)))
		return nil, s.reject(ctx, subject, verr)
	}

	record, err := s.profiles.MergeVerification(ctx, subject.ID, assessment.Record)
	if err != nil {
		return nil, s.fail(ctx, subject, dErrors.Wrap(err, dErrors.CodePersistence, "failed to save verification result"), err)
	}

	s.metrics.IncrementValidation(string(assessment.Status))
	event := audit.Event{
		SubjectID:  subject.ID,
		CheckCount: record.CheckCount,
	}
	if verr != nil {
		event.Action = string(audit.EventVerificationFlagged)
		event.Decision = string(models.ActionDeny)
		event.Reason = string(dErrors.CodeOf(verr))
		s.emit(ctx, event)
		return &models.Outcome{Action: models.ActionDeny, Verification: record}, verr
	}

	event.Action = string(audit.EventVerificationPassed)
	event.Decision = string(models.ActionAllow)
	s.emit(ctx, event)
	return &models.Outcome{Action: models.ActionAllow, Verification: record}, nil
}

// resolveSubject attaches the stored record to subject. The host's copy can
// lag behind the store, so the later check and the larger count win.
func (s *Service) resolveSubject(ctx context.Context, subject models.Subject) (models.Subject, error) {
	stored, err := s.profiles.FindVerification(ctx, subject.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return subject, nil
	}
	if err != nil {
		return subject, s.fail(ctx, subject, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load verification record"), err)
	}
	subject.Verification = latestRecord(subject.Verification, stored)
	return subject, nil
}

func latestRecord(host, stored *models.VerificationRecord) *models.VerificationRecord {
	if host == nil {
		return stored
	}
	if stored == nil {
		return host
	}
	latest := *stored
	if host.LastCheckAt != nil && (stored.LastCheckAt == nil || host.LastCheckAt.After(*stored.LastCheckAt)) {
		latest = *host
	}
	latest.CheckCount = max(host.CheckCount, stored.CheckCount)
	return &latest
}

// correlationToken consumes the pending state the result must be bound to.
// A signed artifact echoed by the flow must agree with it. Consuming makes
// a second return for the same redirect fail.
func (s *Service) correlationToken(ctx context.Context, inv models.Invocation, now time.Time) (string, error) {
	pending, err := s.states.Consume(ctx, inv.Subject.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeIdentityMismatch, "no pending verification for this login")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending verification")
	}

	artifact := inv.Query[models.QuerySessionToken]
	if artifact == "" {
		return pending, nil
	}
	signed, err := s.signer.Verify(artifact, inv.Subject.ID, now)
	if err != nil {
		return "", err
	}
	if signed != pending {
		return "", dErrors.New(dErrors.CodeIdentityMismatch, "verification session does not match this login")
	}
	return pending, nil
}

func (s *Service) reject(ctx context.Context, subject models.Subject, err error) error {
	s.emit(ctx, audit.Event{
		SubjectID:  subject.ID,
		Action:     string(audit.EventVerificationRejected),
		Decision:   string(models.ActionDeny),
		Reason:     string(dErrors.CodeOf(err)),
		CheckCount: subject.CheckCount(),
	})
	return err
}

func (s *Service) fail(ctx context.Context, subject models.Subject, domainErr, raw error) error {
	s.logger.DebugContext(ctx, "verification dependency failed",
		"subject_id", subject.ID,
		"code", dErrors.CodeOf(domainErr),
		"error", raw,
	)
	s.emit(ctx, audit.Event{
		SubjectID:  subject.ID,
		Action:     string(audit.EventVerificationFailed),
		Decision:   string(models.ActionDeny),
		Reason:     string(dErrors.CodeOf(domainErr)),
		CheckCount: subject.CheckCount(),
	})
	return domainErr
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

// Package verification issues single-use email verification tokens and
// confirms them.
package verification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/threespace/site-backend/internal/apperr"
	"github.com/threespace/site-backend/internal/schema"
	"github.com/threespace/site-backend/internal/tokens"
	"github.com/threespace/site-backend/pkg/logger"
	"github.com/threespace/site-backend/pkg/metrics"
)

var requestSchema = schema.New(
	schema.Field{
		Name: "email", Kind: schema.String, Required: true, Email: true, MaxLen: 254,
		RequiredMessage: "Email is required",
		Transform:       func(s string) string { return strings.ToLower(strings.TrimSpace(s)) },
	},
)

// Options configures a Service.
type Options struct {
	Secret     []byte
	TTL        time.Duration
	Retention  time.Duration
	ConfirmURL string
}

// Issued describes a token that was created and dispatched.
type Issued struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service wraps repository operations with token signing and dispatch.
type Service struct {
	repo   Repository
	mailer Mailer
	opts   Options
	now    func() time.Time
}

func NewService(r Repository, m Mailer, opts Options) *Service {
	if m == nil {
		m = LogMailer{}
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	return &Service{repo: r, mailer: m, opts: opts, now: func() time.Time { return time.Now().UTC() }}
}

// Request issues a token for email and hands the confirmation link to the
// mailer. Rate limiting happens before this is called.
func (s *Service) Request(ctx context.Context, email, requester string) (*Issued, error) {
	in, err := requestSchema.Validate(map[string]any{"email": email}, schema.Create)
	if err != nil {
		metrics.VerificationEvents.WithLabelValues("request", "invalid").Inc()
		return nil, err
	}
	email = in["email"].(string)

	now := s.now()
	rec := &Record{
		JTI:       uuid.NewString(),
		Email:     email,
		Requester: requester,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.opts.TTL),
		PurgeAt:   now.Add(s.opts.TTL + s.opts.Retention),
	}
	token, err := tokens.GenerateVerificationToken(s.opts.Secret, rec.Email, rec.JTI, rec.IssuedAt, s.opts.TTL)
	if err != nil {
		metrics.VerificationEvents.WithLabelValues("request", "error").Inc()
		return nil, fmt.Errorf("sign verification token: %w", err)
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		metrics.VerificationEvents.WithLabelValues("request", "error").Inc()
		return nil, err
	}
	if err := s.mailer.SendVerification(ctx, rec.Email, s.link(token), rec.ExpiresAt); err != nil {
		metrics.VerificationEvents.WithLabelValues("request", "error").Inc()
		return nil, fmt.Errorf("dispatch verification: %w", err)
	}
	metrics.VerificationEvents.WithLabelValues("request", "ok").Inc()
	return &Issued{Email: rec.Email, ExpiresAt: rec.ExpiresAt}, nil
}

// Confirm consumes token and returns the email it was bound to.
func (s *Service) Confirm(ctx context.Context, token string) (string, error) {
	email, err := s.confirm(ctx, token)
	metrics.VerificationEvents.WithLabelValues("confirm", confirmOutcome(err)).Inc()
	return email, err
}

func (s *Service) confirm(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", schema.Invalid("token", "Token is required")
	}
	claims, err := tokens.ParseVerificationToken(s.opts.Secret, token)
	if err != nil {
		logger.Debugf("verification token rejected: %v", err)
		return "", apperr.ErrTokenNotFound
	}
	rec, err := s.repo.Consume(ctx, claims.ID, s.now())
	if err != nil {
		return "", err
	}
	if rec.Email != claims.Subject {
		return "", fmt.Errorf("%w: token subject does not match record", apperr.ErrTokenNotFound)
	}
	return rec.Email, nil
}

// Purge removes records past their retention.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	return s.repo.Purge(ctx, s.now())
}

func (s *Service) link(token string) string {
	u, err := url.Parse(s.opts.ConfirmURL)
	if err != nil || s.opts.ConfirmURL == "" {
		return "/api/verify/confirm?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func confirmOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrTokenUsed):
		return "used"
	case errors.Is(err, apperr.ErrTokenExpired):
		return "expired"
	case errors.Is(err, apperr.ErrValidation):
		return "invalid"
	}
	return "error"
}

package verification

import (
	"context"
	"time"

	"github.com/threespace/site-backend/pkg/logger"
)

// Mailer delivers the confirmation link to the address being verified.
type Mailer interface {
	SendVerification(ctx context.Context, email, link string, expiresAt time.Time) error
}

// LogMailer writes the link to the log instead of sending mail.
type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, email, link string, expiresAt time.Time) error {
	logger.Log(logger.LevelInfo, "verification link issued",
		"email", email,
		"link", link,
		"expires_at", expiresAt.Format(time.RFC3339),
	)
	return nil
}

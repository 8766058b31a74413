// Package notify delivers account notifications.
package notify

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// LogSender writes verification links to the log instead of sending email.
// It stands in until a mail provider is configured.
type LogSender struct {
	baseURL string
	log     zerolog.Logger
}

// NewLogSender returns a LogSender. baseURL is the frontend page that
// consumes the token; the link is logged as <baseURL>?token=<token>.
func NewLogSender(baseURL string, log zerolog.Logger) *LogSender {
	return &LogSender{baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

func (s *LogSender) SendVerification(_ context.Context, email, token string) error {
	link := s.baseURL + "?token=" + url.QueryEscape(token)
	s.log.Info().
		Str("email", email).
		Str("link", link).
		Msg("email verification link")
	return nil
}

package email

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock/provider.go -package=mock github.com/smallbiznis/invoicer/internal/providers/email Provider

var ErrNoRecipients = errors.New("no_recipients")

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a multipart email. At least one of HTML and Text should be set.
type Message struct {
	To          []string
	ReplyTo     string
	FromName    string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpProvider logs instead of delivering. Used when no SMTP host is set.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	p.log.Info("email not delivered, smtp disabled",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

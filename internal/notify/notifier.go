package notify

import (
	"context"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"unicode"

	"github.com/fmuoria/nexushire/internal/logger"
	"github.com/fmuoria/nexushire/internal/models"
	"go.uber.org/zap"
)

// MailAPI is a pre-authorized delivery backend (Gmail API or SES).
type MailAPI interface {
	Deliver(ctx context.Context, to string, raw []byte) error
}

type smtpSender interface {
	Send(ctx context.Context, cfg models.SMTPConfig, implicitTLS bool, to string, raw []byte) error
}

// Notifier renders decision notices and delivers them.
type Notifier struct {
	mailAPI MailAPI
	smtp    smtpSender
	// sender is the mail API From address; empty means "me".
	sender string
	logger *zap.Logger
}

// NewNotifier creates a notifier. sender is used in the From header of
// mail API deliveries.
func NewNotifier(mailAPI MailAPI, sender string, log *zap.Logger) *Notifier {
	return &Notifier{
		mailAPI: mailAPI,
		smtp:    &SMTPSender{},
		sender:  sender,
		logger:  logger.WithFields(log),
	}
}

// Send renders msg and delivers it over the selected transport. Delivery
// errors are returned to the caller.
func (n *Notifier) Send(ctx context.Context, msg Message, useOwnSMTP bool, smtpCfg *models.SMTPConfig) error {
	recipient, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}
	msg.To = recipient.Address

	rendered, err := Render(msg)
	if err != nil {
		return err
	}

	transport := SelectTransport(useOwnSMTP, smtpCfg)

	var from string
	if transport == TransportMailAPI {
		addr := n.sender
		if addr == "" {
			addr = "me"
		}
		from = fmt.Sprintf("%s <%s>", displayName(msg.Company), addr)
	} else {
		from = smtpCfg.User
	}

	raw, err := BuildMIME(from, msg.To, rendered)
	if err != nil {
		return err
	}

	switch transport {
	case TransportSMTPImplicitTLS, TransportSMTPStartTLS:
		err = n.smtp.Send(ctx, *smtpCfg, transport == TransportSMTPImplicitTLS, msg.To, raw)
	default:
		if n.mailAPI == nil {
			return fmt.Errorf("no mail api configured")
		}
		err = n.mailAPI.Deliver(ctx, msg.To, raw)
	}
	if err != nil {
		return err
	}

	n.logger.Debug("notification sent", zap.String("to", msg.To), zap.Stringer("transport", transport))
	return nil
}

// displayName quotes an ASCII name or Q-encodes anything else. Line breaks
// are folded into spaces.
func displayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	for _, r := range name {
		if r > unicode.MaxASCII {
			return mime.QEncoding.Encode("utf-8", name)
		}
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name) + `"`
}

package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailTransport sends raw messages through the Gmail API as the
// authenticated user.
type GmailTransport struct {
	service *gmail.Service
}

// NewGmailTransport creates a Gmail API transport
func NewGmailTransport(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*GmailTransport, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail client: %w", err)
	}
	return &GmailTransport{service: srv}, nil
}

// Deliver implements MailAPI.
func (g *GmailTransport) Deliver(ctx context.Context, to string, raw []byte) error {
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := g.service.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail api send to %s: %w", to, err)
	}
	return nil
}

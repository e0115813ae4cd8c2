package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESTransport sends raw messages through Amazon SES.
type SESTransport struct {
	client sesAPI
	source string
}

// NewSESTransport loads the default AWS credential chain for region.
func NewSESTransport(ctx context.Context, region, source string) (*SESTransport, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESTransport{client: ses.NewFromConfig(cfg), source: source}, nil
}

// Deliver implements MailAPI.
func (s *SESTransport) Deliver(ctx context.Context, to string, raw []byte) error {
	input := &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: raw},
		Destinations: []string{to},
	}
	if s.source != "" {
		input.Source = aws.String(s.source)
	}

	if _, err := s.client.SendRawEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send to %s: %w", to, err)
	}
	return nil
}

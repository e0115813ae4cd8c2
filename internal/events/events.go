// Package events publishes screening batch notifications to other systems.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// EventBatchCompleted is the type attribute of BatchCompleted messages.
const EventBatchCompleted = "batch.completed"

// BatchCompleted summarizes a finished screening run.
type BatchCompleted struct {
	RunID       string    `json:"run_id"`
	BatchID     int64     `json:"batch_id"`
	UserID      int64     `json:"user_id"`
	Company     string    `json:"company"`
	Role        string    `json:"role"`
	Eligible    int       `json:"eligible"`
	NotEligible int       `json:"not_eligible"`
	Errors      int       `json:"errors"`
	Skipped     int       `json:"skipped"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher delivers batch events.
type Publisher interface {
	PublishBatchCompleted(ctx context.Context, event BatchCompleted) error
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes events as JSON to an SNS topic.
type SNSPublisher struct {
	client   snsAPI
	topicARN string
}

// NewSNSPublisher loads the default AWS credential chain for region.
func NewSNSPublisher(ctx context.Context, region, topicARN string) (*SNSPublisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SNSPublisher{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

// PublishBatchCompleted implements Publisher.
func (p *SNSPublisher) PublishBatchCompleted(ctx context.Context, event BatchCompleted) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String(fmt.Sprintf("Screening completed: %s", event.Role)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(EventBatchCompleted)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

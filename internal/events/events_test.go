package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestSNSPublisher_PublishBatchCompleted(t *testing.T) {
	client := &mockSNS{}
	p := &SNSPublisher{client: client, topicARN: "arn:aws:sns:us-east-1:123:screening"}

	event := BatchCompleted{
		RunID: "run-1", BatchID: 4, UserID: 2, Company: "Acme", Role: "Go Engineer",
		Eligible: 1, NotEligible: 2, Errors: 1, Skipped: 1,
		CompletedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var got BatchCompleted
		if err := json.Unmarshal([]byte(aws.ToString(in.Message)), &got); err != nil {
			return false
		}
		attr := in.MessageAttributes["event_type"]
		sameTime := got.CompletedAt.Equal(event.CompletedAt)
		got.CompletedAt = event.CompletedAt
		return aws.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:123:screening" &&
			sameTime && got == event &&
			aws.ToString(attr.StringValue) == EventBatchCompleted
	})).Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil)

	require.NoError(t, p.PublishBatchCompleted(context.Background(), event))
	client.AssertExpectations(t)
}

func TestSNSPublisher_Error(t *testing.T) {
	client := &mockSNS{}
	p := &SNSPublisher{client: client, topicARN: "arn"}
	client.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := p.PublishBatchCompleted(context.Background(), BatchCompleted{Role: "SRE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

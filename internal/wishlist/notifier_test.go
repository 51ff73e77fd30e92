package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	in  *sns.PublishInput
	err error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestSNSNotifierPublishesAlert(t *testing.T) {
	client := &fakeSNS{}
	n := &SNSNotifier{client: client, topicARN: "arn:aws:sns:ap-southeast-1:000000000000:price-alerts"}

	a := Alert{ItemID: "w1", UserID: "u1", ProductName: strings.Repeat("x", 150), TargetPrice: d("6"), CurrentPrice: d("5.8")}
	require.NoError(t, n.Notify(context.Background(), a))

	require.NotNil(t, client.in)
	assert.Equal(t, "arn:aws:sns:ap-southeast-1:000000000000:price-alerts", *client.in.TopicArn)
	assert.Len(t, *client.in.Subject, 100)
	assert.Equal(t, "u1", *client.in.MessageAttributes["userId"].StringValue)

	var got Alert
	require.NoError(t, json.Unmarshal([]byte(*client.in.Message), &got))
	assert.Equal(t, "w1", got.ItemID)
	assert.True(t, got.CurrentPrice.Equal(d("5.8")))
}

func TestSNSNotifierErrors(t *testing.T) {
	n := &SNSNotifier{client: &fakeSNS{}}
	assert.Error(t, n.Notify(context.Background(), Alert{}))

	n = &SNSNotifier{client: &fakeSNS{err: errors.New("throttled")}, topicARN: "arn"}
	err := n.Notify(context.Background(), Alert{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

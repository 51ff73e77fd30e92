package wishlist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

// Notifier доставляет уведомления о достижении целевой цены.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier только пишет уведомление в лог.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, a Alert) error {
	n.log.Info("wishlist target reached",
		zap.String("item_id", a.ItemID),
		zap.String("user_id", a.UserID),
		zap.String("product_id", a.ProductID),
		zap.String("target", a.TargetPrice.StringFixed(2)),
		zap.String("current", a.CurrentPrice.StringFixed(2)),
	)
	return nil
}

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier публикует уведомления в топик SNS; доставку до устройства
// выполняют подписчики топика.
type SNSNotifier struct {
	client   snsAPI
	topicARN string
}

func NewSNSNotifier(cfg aws.Config, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: sns.NewFromConfig(cfg), topicARN: topicARN}
}

func (n *SNSNotifier) Notify(ctx context.Context, a Alert) error {
	if n.topicARN == "" {
		return fmt.Errorf("empty topicArn")
	}
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	subject := "Price alert: " + a.ProductName
	if r := []rune(subject); len(r) > 100 {
		subject = string(r[:100])
	}
	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String(subject),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"userId": {DataType: aws.String("String"), StringValue: aws.String(a.UserID)},
			"type":   {DataType: aws.String("String"), StringValue: aws.String("wishlist.target_reached")},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", n.topicARN, err)
	}
	return nil
}

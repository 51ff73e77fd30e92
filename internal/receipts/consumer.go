package receipts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
)

// ResultApplier применяет результат распознавания к чеку.
type ResultApplier interface {
	ApplyOCRResult(ctx context.Context, res OCRResult) error
}

// ResultConsumer читает результаты OCR из очереди SQS.
type ResultConsumer struct {
	client   sqsAPI
	queueURL string
	applier  ResultApplier
	log      *zap.Logger
}

func NewResultConsumer(cfg aws.Config, queueURL string, applier ResultApplier, log *zap.Logger) *ResultConsumer {
	return &ResultConsumer{client: sqs.NewFromConfig(cfg), queueURL: queueURL, applier: applier, log: log}
}

// Run опрашивает очередь, пока не отменён ctx.
func (c *ResultConsumer) Run(ctx context.Context) error {
	c.log.Info("ocr result consumer started", zap.String("queue", c.queueURL))
	for {
		select {
		case <-ctx.Done():
			c.log.Info("ocr result consumer stopped")
			return ctx.Err()
		default:
			if err := c.PollOnce(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn("sqs poll failed", zap.Error(err))
			}
		}
	}
}

// PollOnce обрабатывает одну пачку сообщений. Транзиентные ошибки оставляют
// сообщение в очереди; битые и неприменимые удаляются.
func (c *ResultConsumer) PollOnce(ctx context.Context) error {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   30,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range out.Messages {
		if msg.Body == nil {
			continue
		}
		var res OCRResult
		if err := json.Unmarshal([]byte(*msg.Body), &res); err != nil {
			c.log.Warn("dropping malformed ocr result", zap.Error(err))
		} else if err := c.applier.ApplyOCRResult(ctx, res); err != nil {
			c.log.Warn("failed to apply ocr result", zap.String("receipt_id", res.ReceiptID), zap.Error(err))
			if !apperr.Is(err, apperr.KindNotFound) && !apperr.Is(err, apperr.KindInvalidInput) {
				// сообщение вернётся в очередь после VisibilityTimeout
				continue
			}
		}
		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(c.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.log.Warn("failed to delete message", zap.Error(err))
		}
	}
	return nil
}

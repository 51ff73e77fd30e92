package receipts

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
)

type applierFunc func(ctx context.Context, res OCRResult) error

func (f applierFunc) ApplyOCRResult(ctx context.Context, res OCRResult) error { return f(ctx, res) }

func msg(handle, body string) types.Message {
	return types.Message{ReceiptHandle: aws.String(handle), Body: aws.String(body)}
}

func TestPollOnceDeletesHandledMessages(t *testing.T) {
	client := &fakeSQS{messages: []types.Message{
		msg("ok", `{"receiptId":"r1","status":"processed"}`),
		msg("garbage", `{not json`),
		msg("gone", `{"receiptId":"missing","status":"failed"}`),
		msg("retry", `{"receiptId":"r2","status":"processed"}`),
	}}
	var applied []string
	applier := applierFunc(func(_ context.Context, res OCRResult) error {
		applied = append(applied, res.ReceiptID)
		switch res.ReceiptID {
		case "missing":
			return apperr.NotFound("Receipt not found")
		case "r2":
			return apperr.Upstream("failed to update receipt", errBoom)
		}
		return nil
	})
	c := &ResultConsumer{client: client, queueURL: "q", applier: applier, log: zap.NewNop()}

	require.NoError(t, c.PollOnce(context.Background()))
	assert.Equal(t, []string{"r1", "missing", "r2"}, applied)
	assert.Equal(t, []string{"ok", "garbage", "gone"}, client.deleted)
}

func TestPollOnceReceiveError(t *testing.T) {
	c := &ResultConsumer{client: &fakeSQS{recvErr: errBoom}, queueURL: "q", log: zap.NewNop()}
	assert.ErrorIs(t, c.PollOnce(context.Background()), errBoom)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &ResultConsumer{client: &fakeSQS{}, queueURL: "q", log: zap.NewNop()}
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestSQSTaskQueueEnqueue(t *testing.T) {
	client := &fakeSQS{}
	q := &SQSTaskQueue{client: client, queueURL: "q"}
	require.NoError(t, q.Enqueue(context.Background(), OCRTask{ReceiptID: "r1", Bucket: "b", Key: "k"}))
	require.Len(t, client.sent, 1)
	assert.JSONEq(t, `{"receiptId":"r1","userId":"","bucket":"b","key":"k","imageUrl":""}`, client.sent[0])
}

package receipts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/valeevte/PriceLedger/internal/apperr"
)

var now = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

// pngHeader достаточно для http.DetectContentType.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memRepo struct {
	mu       sync.Mutex
	seq      int
	byID     map[string]*Receipt
	failNext error
}

func newMemRepo() *memRepo { return &memRepo{byID: map[string]*Receipt{}} }

func (m *memRepo) InsertReceipt(_ context.Context, r *Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	m.seq++
	r.ID = fmt.Sprintf("r%d", m.seq)
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memRepo) GetReceiptByID(_ context.Context, id string) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("Receipt not found")
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) ListReceipts(_ context.Context, userID string, f ListFilter) ([]Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Receipt
	for _, r := range m.byID {
		if r.UserID == userID && (f.Status == "" || r.Status == f.Status) {
			res = append(res, *r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].PurchaseDate.After(res[j].PurchaseDate) })
	if len(res) > f.Limit {
		res = res[:f.Limit]
	}
	return res, nil
}

func (m *memRepo) UpdateReceipt(_ context.Context, r *Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; !ok {
		return apperr.NotFound("Receipt not found")
	}
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memRepo) DeleteReceipt(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperr.NotFound("Receipt not found")
	}
	delete(m.byID, id)
	return nil
}

type memBlobs struct {
	objects map[string][]byte
	types   map[string]string
	deleted []string
	putErr  error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *memBlobs) Bucket() string { return "receipts-bucket" }

func (b *memBlobs) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	b.objects[key] = data
	b.types[key] = contentType
	return "s3://receipts-bucket/" + key, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.deleted = append(b.deleted, key)
	delete(b.objects, key)
	return nil
}

type memQueue struct {
	tasks []OCRTask
	err   error
}

func (q *memQueue) Enqueue(_ context.Context, t OCRTask) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, t)
	return nil
}

// fakeSQS отдаёт заранее заданные сообщения один раз.
type fakeSQS struct {
	messages []types.Message
	sent     []string
	deleted  []string
	recvErr  error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, *in.MessageBody)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.recvErr != nil {
		return nil, f.recvErr
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, *in.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

var errBoom = errors.New("boom")

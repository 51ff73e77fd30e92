package receipts

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/money"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	DefaultStoreName = "Unknown Store"
)

type Service struct {
	repo     Repository
	blobs    BlobStore
	queue    TaskQueue
	maxBytes int64
	log      *zap.Logger
	now      func() time.Time
}

// NewService: blobs и queue могут быть nil, тогда загрузка недоступна
// или распознавание не запускается.
func NewService(repo Repository, blobs BlobStore, queue TaskQueue, maxBytes int64, log *zap.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, queue: queue, maxBytes: maxBytes, log: log, now: time.Now}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

func (s *Service) owned(ctx context.Context, userID, id string) (*Receipt, error) {
	r, err := s.repo.GetReceiptByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, apperr.AccessDenied("Access denied")
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, userID string, f ListFilter) ([]Receipt, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("status must be one of pending, processed, failed")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return s.repo.ListReceipts(ctx, userID, f)
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Receipt, error) {
	return s.owned(ctx, userID, id)
}

func objectKey(userID string, at time.Time, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "receipt"
	}
	return fmt.Sprintf("receipts/%s/%d_%s", userID, at.Unix(), name)
}

// Upload сохраняет изображение, создаёт чек в статусе pending и ставит
// задание на распознавание.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (*Receipt, error) {
	if s.blobs == nil {
		return nil, apperr.Upstream("receipt storage not configured", nil)
	}
	if len(in.Data) == 0 {
		return nil, apperr.Invalid("No image file provided")
	}
	if s.maxBytes > 0 && int64(len(in.Data)) > s.maxBytes {
		return nil, apperr.Invalid(fmt.Sprintf("image exceeds %d bytes", s.maxBytes))
	}
	ct := in.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(in.Data)
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, apperr.Invalid("Only image files are allowed")
	}

	now := s.now()
	key := objectKey(userID, now, in.Filename)
	url, err := s.blobs.Put(ctx, key, ct, in.Data)
	if err != nil {
		return nil, apperr.Upstream("failed to store receipt image", err)
	}

	r := &Receipt{
		UserID:       userID,
		StoreID:      strings.TrimSpace(in.StoreID),
		StoreName:    strings.TrimSpace(in.StoreName),
		ImageURL:     url,
		Currency:     money.DefaultCurrency,
		PurchaseDate: now,
		Items:        []LineItem{},
		Status:       StatusPending,
	}
	if r.StoreName == "" {
		r.StoreName = DefaultStoreName
	}
	if err := s.repo.InsertReceipt(ctx, r); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.log.Warn("failed to remove orphan receipt image", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}

	if s.queue == nil {
		return r, nil
	}
	task := OCRTask{ReceiptID: r.ID, UserID: userID, Bucket: s.blobs.Bucket(), Key: key, ImageURL: url}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.log.Error("failed to enqueue ocr task", zap.String("receipt_id", r.ID), zap.Error(err))
		r.Status = StatusFailed
		if err := s.repo.UpdateReceipt(ctx, r); err != nil {
			s.log.Error("failed to mark receipt failed", zap.String("receipt_id", r.ID), zap.Error(err))
		}
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, req UpdateReceiptRequest) (*Receipt, error) {
	r, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, apperr.Invalid("status must be one of pending, processed, failed")
		}
		if !r.Status.CanTransition(*req.Status) {
			return nil, apperr.Invalid(fmt.Sprintf("cannot change status from %s to %s", r.Status, *req.Status))
		}
		r.Status = *req.Status
	}
	if req.TotalAmount != nil {
		if req.TotalAmount.IsNegative() {
			return nil, apperr.Invalid("totalAmount must be non-negative")
		}
		r.TotalAmount = req.TotalAmount.Round(2)
	}
	if req.StoreID != nil {
		r.StoreID = strings.TrimSpace(*req.StoreID)
	}
	if req.StoreName != nil {
		r.StoreName = strings.TrimSpace(*req.StoreName)
	}
	if req.Currency != nil {
		r.Currency = money.NormalizeCurrency(*req.Currency)
	}
	if req.PurchaseDate != nil {
		r.PurchaseDate = *req.PurchaseDate
	}
	if req.Items != nil {
		if err := validItems(req.Items); err != nil {
			return nil, err
		}
		r.Items = req.Items
	}
	if req.OCRText != nil {
		r.OCRText = req.OCRText
	}
	if err := s.repo.UpdateReceipt(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func validItems(items []LineItem) error {
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return apperr.Invalid("receipt item name must not be empty")
		}
		if it.Quantity.IsNegative() || it.TotalPrice.IsNegative() || (it.UnitPrice != nil && it.UnitPrice.IsNegative()) {
			return apperr.Invalid("receipt item amounts must be non-negative")
		}
	}
	return nil
}

// Delete удаляет чек; изображение удаляется по возможности.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	r, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteReceipt(ctx, r.ID); err != nil {
		return err
	}
	if s.blobs != nil {
		if key, ok := blobKey(r.ImageURL, s.blobs.Bucket()); ok {
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.log.Warn("failed to delete receipt image", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return nil
}

func blobKey(url, bucket string) (string, bool) {
	return strings.CutPrefix(url, "s3://"+bucket+"/")
}

// ApplyOCRResult применяет результат распознавания, соблюдая допустимые
// переходы статуса.
func (s *Service) ApplyOCRResult(ctx context.Context, res OCRResult) error {
	if res.ReceiptID == "" || !res.Status.Valid() || res.Status == StatusPending {
		return apperr.Invalid("ocr result must carry receiptId and a final status")
	}
	r, err := s.repo.GetReceiptByID(ctx, res.ReceiptID)
	if err != nil {
		return err
	}
	if !r.Status.CanTransition(res.Status) {
		return apperr.Invalid(fmt.Sprintf("receipt %s is already %s", r.ID, r.Status))
	}
	if res.Items != nil {
		if err := validItems(res.Items); err != nil {
			return err
		}
		r.Items = res.Items
	}
	if res.TotalAmount != nil {
		if res.TotalAmount.IsNegative() {
			return apperr.Invalid("totalAmount must be non-negative")
		}
		r.TotalAmount = res.TotalAmount.Round(2)
	}
	if res.OCRText != nil {
		r.OCRText = res.OCRText
	}
	r.Status = res.Status
	if err := s.repo.UpdateReceipt(ctx, r); err != nil {
		return err
	}
	s.log.Info("ocr result applied", zap.String("receipt_id", r.ID), zap.String("status", string(r.Status)))
	return nil
}

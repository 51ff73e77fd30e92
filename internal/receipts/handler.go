package receipts

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/auth"
	"github.com/valeevte/PriceLedger/internal/response"
)

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) List(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	f := ListFilter{Status: Status(c.Query("status"))}
	if raw := c.Query("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil {
			response.Fail(c, h.log, apperr.Invalid("limit must be an integer"), response.EmptyList)
			return
		}
	}
	list, err := h.svc.List(c.Request.Context(), userID, f)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, list)
}

func (h *Handler) Get(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	r, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, r)
}

// Upload принимает multipart-поле image и необязательные storeId, storeName.
func (h *Handler) Upload(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	limit := h.svc.MaxBytes()
	if limit > 0 {
		// запас 1 MiB на заголовки multipart и текстовые поля
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, h.log, apperr.Invalid("File too large"), nil)
			return
		}
		response.Fail(c, h.log, apperr.Invalid("No image file provided"), nil)
		return
	}
	if limit > 0 && fh.Size > limit {
		response.Fail(c, h.log, apperr.Invalid("File too large"), nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Fail(c, h.log, apperr.Invalid("failed to read image"), nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Fail(c, h.log, apperr.Invalid("failed to read image"), nil)
		return
	}

	r, err := h.svc.Upload(c.Request.Context(), userID, UploadInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
		StoreID:     c.PostForm("storeId"),
		StoreName:   c.PostForm("storeName"),
	})
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusCreated, r)
}

func (h *Handler) Update(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	var req UpdateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, h.log, apperr.Invalid("invalid payload: "+err.Error()), nil)
		return
	}
	r, err := h.svc.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, r)
}

func (h *Handler) Delete(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.Message(c, "Receipt deleted successfully")
}

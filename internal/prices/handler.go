package prices

import (
	"net/http"
	"strconv"
	"time"

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

// parseAt читает необязательный параметр at (RFC3339).
func parseAt(c *gin.Context) (*time.Time, error) {
	raw := c.Query("at")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.Invalid("at must be an RFC3339 timestamp")
	}
	return &t, nil
}

// parseMonths читает параметр months: по умолчанию 6, допустимо 1..24.
func parseMonths(c *gin.Context) (int, error) {
	raw := c.Query("months")
	if raw == "" {
		return 6, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 24 {
		return 0, apperr.Invalid("months must be an integer between 1 and 24")
	}
	return n, nil
}

func (h *Handler) GetHistory(c *gin.Context) {
	list, err := h.svc.History(c.Request.Context(), c.Param("productId"))
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, list)
}

func (h *Handler) GetEffective(c *gin.Context) {
	at, err := parseAt(c)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	list, err := h.svc.Effective(c.Request.Context(), c.Param("productId"), at)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, list)
}

func (h *Handler) Compare(c *gin.Context) {
	at, err := parseAt(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	cmp, err := h.svc.Compare(c.Request.Context(), c.Param("productId"), at)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, cmp)
}

func (h *Handler) GetTrends(c *gin.Context) {
	months, err := parseMonths(c)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	list, err := h.svc.Trends(c.Request.Context(), c.Param("productId"), months)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, list)
}

func (h *Handler) CreatePrice(c *gin.Context) {
	var req CreatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, h.log, apperr.Invalid("Missing required fields: productId, storeId, price"), nil)
		return
	}
	userID, _ := auth.UserID(c)
	rec, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusCreated, rec)
}

func (h *Handler) RetirePrice(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	if err := h.svc.Retire(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.Message(c, "Price retired")
}

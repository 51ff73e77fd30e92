package expenses

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

// parseDate принимает RFC3339 или YYYY-MM-DD (в зоне сервиса).
func (h *Handler) parseDate(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, h.svc.loc)
	if err != nil {
		return nil, apperr.Invalid(key + " must be a date (YYYY-MM-DD or RFC3339)")
	}
	if key == "endDate" {
		// дата без времени включает весь день
		t = t.AddDate(0, 0, 1).Add(-time.Second)
	}
	return &t, nil
}

func intQuery(c *gin.Context, key string, def, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func (h *Handler) List(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	f := ListFilter{
		Category: c.Query("category"),
		Limit:    intQuery(c, "limit", DefaultListLimit, MaxListLimit),
		Offset:   intQuery(c, "offset", 0, 1<<31-1),
	}
	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	if f.StartDate, err = h.parseDate(c, "startDate"); err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	if f.EndDate, err = h.parseDate(c, "endDate"); err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	list, err := h.svc.List(c.Request.Context(), userID, f)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, list)
}

func (h *Handler) Summary(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	s, err := h.svc.Summary(c.Request.Context(), userID, c.Query("month"))
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, s)
}

func (h *Handler) Trends(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	months := 6
	if raw := c.Query("months"); raw != "" {
		if months, err = strconv.Atoi(raw); err != nil {
			response.Fail(c, h.log, apperr.Invalid("months must be an integer between 1 and 24"), response.EmptyList)
			return
		}
	}
	trend, err := h.svc.Trends(c.Request.Context(), userID, months)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, trend)
}

func (h *Handler) Categories(c *gin.Context) {
	response.List(c, Categories)
}

func (h *Handler) Create(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, h.log, apperr.Invalid("Missing required fields: category, amount, description"), nil)
		return
	}
	e, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusCreated, e)
}

func (h *Handler) Update(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, h.log, apperr.Invalid("invalid payload: "+err.Error()), nil)
		return
	}
	e, err := h.svc.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, e)
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
	response.Message(c, "Expense deleted successfully")
}

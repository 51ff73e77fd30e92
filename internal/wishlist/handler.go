package wishlist

import (
	"net/http"

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
	items, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, items)
}

func (h *Handler) Stats(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	st, err := h.svc.Stats(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, st)
}

func (h *Handler) Get(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	d, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, d)
}

func (h *Handler) Create(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, h.log, apperr.Invalid("Missing required fields: productId, productName, targetPrice"), nil)
		return
	}
	it, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusCreated, it)
}

func (h *Handler) Update(c *gin.Context) {
	userID, err := auth.MustUserID(c)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, h.log, apperr.Invalid("invalid payload: "+err.Error()), nil)
		return
	}
	it, err := h.svc.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, it)
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
	response.Message(c, "Item removed from wishlist")
}

package products

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/response"
)

type Handler struct {
	repo     Repository
	log      *zap.Logger
	onRetire []func(ctx context.Context, id string)
}

type HandlerOption func(*Handler)

// OnRetire регистрирует действие после отзыва товара (сброс кэшей).
func OnRetire(fn func(ctx context.Context, id string)) HandlerOption {
	return func(h *Handler) { h.onRetire = append(h.onRetire, fn) }
}

func NewHandler(repo Repository, log *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{repo: repo, log: log}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var input CreateProductRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, h.log, apperr.Invalid("invalid payload: "+err.Error()), nil)
		return
	}
	p := &Product{
		Name:     strings.TrimSpace(input.Name),
		Brand:    input.Brand,
		Category: input.Category,
		Barcode:  input.Barcode,
		ImageURL: input.ImageURL,
		Unit:     input.Unit,
	}
	if p.Name == "" {
		response.Fail(c, h.log, apperr.Invalid("name is required"), nil)
		return
	}
	if err := h.repo.InsertProduct(c.Request.Context(), p); err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusCreated, p)
}

func (h *Handler) ListProducts(c *gin.Context) {
	f := ListFilter{
		Category: c.Query("category"),
		Limit:    queryInt(c, "limit", 50, 100),
		Offset:   queryInt(c, "offset", 0, -1),
	}
	list, err := h.repo.GetProducts(c.Request.Context(), f)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, list)
}

func (h *Handler) SearchProducts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.List(c, []Product{})
		return
	}
	list, err := h.repo.SearchProducts(c.Request.Context(), q, c.Query("category"), queryInt(c, "limit", 20, 100))
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, list)
}

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.repo.GetProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, p)
}

func (h *Handler) RetireProduct(c *gin.Context) {
	id := c.Param("id")
	if err := h.repo.RetireProduct(c.Request.Context(), id); err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	for _, fn := range h.onRetire {
		fn(c.Request.Context(), id)
	}
	response.Message(c, "Product retired")
}

// queryInt читает неотрицательный int из query; max < 0 — без ограничения.
func queryInt(c *gin.Context, key string, def, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 || (v == 0 && def > 0) {
		return def
	}
	if max >= 0 && v > max {
		return max
	}
	return v
}

package stores

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/response"
)

type Handler struct {
	repo Repository
	log  *zap.Logger
}

func NewHandler(repo Repository, log *zap.Logger) *Handler {
	return &Handler{repo: repo, log: log}
}

func (h *Handler) ListStores(c *gin.Context) {
	f := ListFilter{
		City:   c.Query("city"),
		Region: c.DefaultQuery("state", c.Query("region")),
		Type:   c.Query("type"),
	}
	list, err := h.repo.ListStores(c.Request.Context(), f)
	if err != nil {
		response.Fail(c, h.log, err, response.EmptyList)
		return
	}
	response.List(c, list)
}

func (h *Handler) GetStore(c *gin.Context) {
	s, err := h.repo.GetStoreByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusOK, s)
}

func (h *Handler) CreateStore(c *gin.Context) {
	var input CreateStoreRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, h.log, apperr.Invalid("invalid payload: "+err.Error()), nil)
		return
	}
	s := &Store{
		Name:      strings.TrimSpace(input.Name),
		Chain:     input.Chain,
		Type:      input.Type,
		Address:   input.Address,
		City:      input.City,
		Region:    input.Region,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	}
	if s.Name == "" {
		response.Fail(c, h.log, apperr.Invalid("name is required"), nil)
		return
	}
	if err := h.repo.InsertStore(c.Request.Context(), s); err != nil {
		response.Fail(c, h.log, err, nil)
		return
	}
	response.OK(c, http.StatusCreated, s)
}

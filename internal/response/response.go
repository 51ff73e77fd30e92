package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
)

// Envelope — общий формат ответа API.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// List отдаёт коллекцию вместе с количеством элементов.
func List[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	c.JSON(http.StatusOK, Envelope{Success: true, Data: items, Count: &n})
}

func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: msg})
}

// Fail пишет ошибку. empty — безопасное значение data для клиента
// ([]any{} для списков, nil для объектов).
func Fail(c *gin.Context, log *zap.Logger, err error, empty any) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", apperr.KindOf(err).String()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Data:    empty,
		Error:   apperr.PublicMessage(err),
	})
}

// EmptyList — значение data для неуспешных ответов списочных эндпоинтов.
var EmptyList = []any{}

package delivery

import (
	"errors"
	"net/http"

	"storefront_service/internal/domain"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  "Fail",
		Message: message,
	})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrCartNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCatalogDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

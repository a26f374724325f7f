package delivery

import (
	"net/http"

	"storefront_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CheckoutHandler struct {
	useCase domain.CheckoutUseCase
	log     *logrus.Logger
}

func NewCheckoutHandler(uc domain.CheckoutUseCase, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *CheckoutHandler) RegisterRoutes(router gin.IRouter) {
	checkout := router.Group("/checkout")
	{
		checkout.GET("", h.GetSummary)
		checkout.POST("", h.PlaceOrder)
	}
}

func (h *CheckoutHandler) GetSummary(c *gin.Context) {
	summary := h.useCase.Summary(c.Request.Context(), sessionID(c))
	SuccessResponse(c, http.StatusOK, "Order summary retrieved successfully", summary)
}

func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var form domain.CheckoutForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.log.Warnf("Failed to bind JSON for checkout: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.useCase.PlaceOrder(c.Request.Context(), sessionID(c), form)
	if err != nil {
		h.log.Errorf("Failed to place order: %v", err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to place order: "+err.Error())
		return
	}

	h.log.Infof("Order placed successfully: ID %s", order.ID)
	SuccessResponse(c, http.StatusCreated, "Order placed successfully!", order)
}

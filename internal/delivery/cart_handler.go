package delivery

import (
	"net/http"
	"strconv"

	"storefront_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type addItemRequest struct {
	ProductID int `json:"product_id" binding:"required"`
	Quantity  int `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CartHandler struct {
	useCase  domain.CartUseCase
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewCartHandler(uc domain.CartUseCase, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		useCase: uc,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *CartHandler) RegisterRoutes(router gin.IRouter) {
	cart := router.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.DELETE("", h.ClearCart)
		cart.POST("/items", h.AddItem)
		cart.PATCH("/items/:id", h.UpdateQuantity)
		cart.DELETE("/items/:id", h.RemoveItem)
		cart.POST("/open", h.visibility(domain.VisibilityOpen))
		cart.POST("/close", h.visibility(domain.VisibilityClose))
		cart.POST("/toggle", h.visibility(domain.VisibilityToggle))
		cart.GET("/ws", h.Watch)
	}
	router.DELETE("/session", h.EndSession)
}

func (h *CartHandler) GetCart(c *gin.Context) {
	view := h.useCase.View(c.Request.Context(), sessionID(c))
	SuccessResponse(c, http.StatusOK, "Cart retrieved successfully", view)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for add to cart: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	view, msg, err := h.useCase.AddProduct(c.Request.Context(), sessionID(c), req.ProductID, req.Quantity)
	if err != nil {
		h.log.Warnf("Failed to add product %d to cart: %v", req.ProductID, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to add to cart: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, msg, view)
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for update quantity of product %d: %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	view, msg := h.useCase.UpdateQuantity(c.Request.Context(), sessionID(c), id, *req.Quantity)
	SuccessResponse(c, http.StatusOK, msg, view)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	view, msg := h.useCase.RemoveProduct(c.Request.Context(), sessionID(c), id)
	SuccessResponse(c, http.StatusOK, msg, view)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	view, msg := h.useCase.Clear(c.Request.Context(), sessionID(c))
	SuccessResponse(c, http.StatusOK, msg, view)
}

// EndSession forgets the visitor's cart and expires the session cookie.
func (h *CartHandler) EndSession(c *gin.Context) {
	msg := h.useCase.EndSession(c.Request.Context(), sessionID(c))
	expireSession(c)
	SuccessResponse(c, http.StatusOK, msg, nil)
}

func (h *CartHandler) visibility(v domain.Visibility) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.useCase.SetVisibility(c.Request.Context(), sessionID(c), v)
		if err != nil {
			ErrorResponse(c, mapErrorToStatus(err), "Failed to update cart visibility: "+err.Error())
			return
		}
		SuccessResponse(c, http.StatusOK, "Cart visibility updated", view)
	}
}

func (h *CartHandler) productID(c *gin.Context) (int, bool) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		h.log.Warnf("Invalid product ID parameter: %s", idStr)
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return 0, false
	}
	return id, true
}

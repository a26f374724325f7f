package delivery

import (
	"net/http"
	"strconv"

	"storefront_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CatalogHandler struct {
	useCase domain.CatalogUseCase
	log     *logrus.Logger
}

func NewCatalogHandler(uc domain.CatalogUseCase, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *CatalogHandler) RegisterRoutes(router gin.IRouter) {
	products := router.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProductByID)
	}
	router.GET("/categories", h.ListCategories)
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	query := domain.ProductQuery{
		Category: c.Query("category"),
		Search:   c.Query("q"),
		Sort:     c.Query("sort"),
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			h.log.Warnf("Invalid limit parameter: %s", limitStr)
			ErrorResponse(c, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		query.Limit = limit
	}

	products, err := h.useCase.Browse(c.Request.Context(), query)
	if err != nil {
		h.log.Errorf("Failed to list products: %v", err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to list products: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", products)
}

func (h *CatalogHandler) GetProductByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		h.log.Warnf("Invalid product ID parameter: %s", idStr)
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.useCase.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.log.Warnf("Failed to get product by ID %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve product: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.useCase.Categories(c.Request.Context())
	if err != nil {
		h.log.Errorf("Failed to list categories: %v", err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to list categories: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Categories retrieved successfully", categories)
}

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"image-search-service/internal/models"
	"image-search-service/internal/service"
	"image-search-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	productService *service.ProductService
	searchService  *service.SearchService
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(productService *service.ProductService, searchService *service.SearchService) *Handler {
	return &Handler{
		productService: productService,
		searchService:  searchService,
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/products", h.listProducts)
	router.GET("/products/categories", h.enumeration("category", "categories"))
	router.GET("/products/genders", h.enumeration("gender", "genders"))
	router.GET("/products/subcategories", h.enumeration("sub_category", "subcategories"))
	router.GET("/products/product-types", h.enumeration("product_type", "product_types"))
	router.GET("/products/colours", h.enumeration("colour", "colours"))
	router.GET("/products/brands", h.enumeration("brand", "brands"))

	router.POST("/search/image", h.searchByImage)
	router.GET("/services/status", h.serviceStatus)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// listProducts handles catalog browsing with filters, sorting and pagination
func (h *Handler) listProducts(c *gin.Context) {
	filter, sort, page, verr := parseListParams(c)
	if verr != nil {
		h.renderError(c, verr)
		return
	}

	products, pagination, err := h.productService.ListProducts(c.Request.Context(), filter, sort, page)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	c.JSON(http.StatusOK, gin.H{
		"products":   products,
		"pagination": pagination,
		"filters_applied": models.AppliedFilters{
			FilterSpec: filter,
			SortBy:     sort.Field,
			SortOrder:  sort.Order,
			Page:       page.Page,
			PageSize:   page.PageSize,
		},
	})
}

// enumeration builds a handler returning the distinct values of one filter
// axis, derived from the catalog rather than static config
func (h *Handler) enumeration(field, responseKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		values, err := h.productService.DistinctFilterValues(c.Request.Context(), field)
		if err != nil {
			h.renderError(c, err)
			return
		}
		if values == nil {
			values = []string{}
		}
		c.JSON(http.StatusOK, gin.H{responseKey: values})
	}
}

// searchByImage handles visual product search over a multipart image upload.
// A degraded (fallback mode) response is HTTP 200 with an empty array and
// the X-Search-Degraded header set, distinguishing it from "no matches".
func (h *Handler) searchByImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.renderError(c, models.ErrInvalidImage)
		return
	}
	if fileHeader.Size > service.MaxImageBytes {
		h.renderError(c, models.ErrInvalidImage)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.renderError(c, err)
		return
	}
	defer file.Close()

	img, err := io.ReadAll(io.LimitReader(file, service.MaxImageBytes+1))
	if err != nil {
		h.renderError(c, err)
		return
	}

	results, degraded, err := h.searchService.SearchByImage(c.Request.Context(), img)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	if degraded {
		c.Header("X-Search-Degraded", "true")
	}
	c.JSON(http.StatusOK, results)
}

// serviceStatus exposes collaborator health for observability
func (h *Handler) serviceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.searchService.Status().Snapshot())
}

// renderError maps the error taxonomy onto HTTP responses. Collaborator
// outages never reach this path for the search endpoint; they produce
// degraded 200s upstream.
func (h *Handler) renderError(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:      "VALIDATION_ERROR",
			Message:    "Request validation failed",
			Details:    verr.Details,
			StatusCode: http.StatusUnprocessableEntity,
		})
	case errors.Is(err, models.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:      "INVALID_IMAGE",
			Message:    "File must be a readable image no larger than 10MB",
			Details:    []models.FieldError{},
			StatusCode: http.StatusBadRequest,
		})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:      "INTERNAL_ERROR",
			Message:    "Internal server error",
			Details:    []models.FieldError{},
			StatusCode: http.StatusInternalServerError,
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

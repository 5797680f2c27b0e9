package api

import (
	"fmt"
	"strconv"

	"image-search-service/internal/models"

	"github.com/gin-gonic/gin"
)

// parseListParams converts the /products query string into typed specs.
// Syntactic failures (non-numeric price, non-boolean stock flag) are
// reported per field; semantic validation happens in the service.
func parseListParams(c *gin.Context) (models.FilterSpec, models.SortSpec, models.PageSpec, *models.ValidationError) {
	var details []models.FieldError

	filter := models.FilterSpec{
		Search:      c.Query("search"),
		Gender:      c.Query("gender"),
		Category:    c.Query("category"),
		SubCategory: c.Query("sub_category"),
		ProductType: c.Query("product_type"),
		Colour:      c.Query("colour"),
	}

	if raw := c.Query("min_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			details = append(details, models.FieldError{
				Field:   "min_price",
				Message: fmt.Sprintf("must be a number, got %q", raw),
			})
		} else {
			filter.MinPrice = &v
		}
	}
	if raw := c.Query("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			details = append(details, models.FieldError{
				Field:   "max_price",
				Message: fmt.Sprintf("must be a number, got %q", raw),
			})
		} else {
			filter.MaxPrice = &v
		}
	}
	if raw := c.Query("in_stock"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			details = append(details, models.FieldError{
				Field:   "in_stock",
				Message: fmt.Sprintf("must be a boolean, got %q", raw),
			})
		} else {
			filter.InStock = &v
		}
	}

	sort := models.DefaultSortSpec()
	if raw := c.Query("sort_by"); raw != "" {
		sort.Field = models.SortField(raw)
	}
	if raw := c.Query("sort_order"); raw != "" {
		sort.Order = models.SortOrder(raw)
	}

	page := models.DefaultPageSpec()
	if raw := c.Query("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, models.FieldError{
				Field:   "page",
				Message: fmt.Sprintf("must be an integer, got %q", raw),
			})
		} else {
			page.Page = v
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, models.FieldError{
				Field:   "page_size",
				Message: fmt.Sprintf("must be an integer, got %q", raw),
			})
		} else {
			page.PageSize = v
		}
	}

	if len(details) > 0 {
		return filter, sort, page, &models.ValidationError{Details: details}
	}
	return filter, sort, page, nil
}

package utils

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// ParsePagination reads page/limit query parameters with sane bounds.
func ParsePagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if err != nil || page < 1 {
		page = defaultPage
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// Offset converts a page/limit pair into a row offset.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// PagedBody is the list response envelope.
type PagedBody struct {
	Items       interface{} `json:"items"`
	Total       int64       `json:"total"`
	TotalPages  int64       `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
}

// PagedResponse sends a 200 with the list envelope.
func PagedResponse(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, NewPagedBody(items, total, page, limit))
}

// NewPagedBody builds the list envelope; totalPages rounds up.
func NewPagedBody(items interface{}, total int64, page, limit int) PagedBody {
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return PagedBody{
		Items:       items,
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: page,
	}
}

package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func paginationContext(t *testing.T, query string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParsePaginationDefaults(t *testing.T) {
	page, limit := ParsePagination(paginationContext(t, ""))
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)
}

func TestParsePaginationExplicit(t *testing.T) {
	page, limit := ParsePagination(paginationContext(t, "page=3&limit=25"))
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, limit)
}

func TestParsePaginationInvalidValues(t *testing.T) {
	page, limit := ParsePagination(paginationContext(t, "page=abc&limit=-5"))
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)

	page, limit = ParsePagination(paginationContext(t, "page=0&limit=0"))
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)
}

func TestParsePaginationCapsLimit(t *testing.T) {
	_, limit := ParsePagination(paginationContext(t, "limit=5000"))
	assert.Equal(t, 100, limit)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 10, Offset(2, 10))
	assert.Equal(t, 50, Offset(3, 25))
}

func TestNewPagedBodyRoundsUp(t *testing.T) {
	body := NewPagedBody(nil, 21, 2, 10)
	assert.Equal(t, int64(21), body.Total)
	assert.Equal(t, int64(3), body.TotalPages)
	assert.Equal(t, 2, body.CurrentPage)

	body = NewPagedBody(nil, 20, 1, 10)
	assert.Equal(t, int64(2), body.TotalPages)

	body = NewPagedBody(nil, 0, 1, 10)
	assert.Equal(t, int64(0), body.TotalPages)
}

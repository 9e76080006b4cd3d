package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visioncare/optometry-backend/shared/models"
)

func jsonContext(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestRolePermissionsRequestBindsWireKeys(t *testing.T) {
	c, _ := jsonContext(t, `{"permissions":{"customers":{"view":true}},"pageAccess":["customers","dashboard"]}`)

	var req RolePermissionsRequest
	require.NoError(t, c.ShouldBindJSON(&req))
	assert.True(t, req.Permissions["customers"].View)
	assert.Equal(t, models.StringList{"customers", "dashboard"}, req.PageAccess)
}

func TestRolePermissionsRequestRequiresPermissions(t *testing.T) {
	c, _ := jsonContext(t, `{"pageAccess":["customers"]}`)

	var req RolePermissionsRequest
	assert.Error(t, c.ShouldBindJSON(&req))
}

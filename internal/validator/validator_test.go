package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required"`
}

type item struct {
	ID      int      `json:"id" binding:"required,min=1"`
	Options []string `json:"options" binding:"required,len=4"`
}

type upload struct {
	Items []item `json:"items" binding:"required,min=1,dive"`
}

func init() {
	gin.SetMode(gin.TestMode)
	Setup()
}

func TestBind(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"ab"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var body loginBody
	fields := Bind(c, &body)

	require.NotNil(t, fields)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
}

func TestBind_MalformedJSON(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":`))
	c.Request.Header.Set("Content-Type", "application/json")

	var body loginBody
	fields := Bind(c, &body)
	assert.Contains(t, fields, "detail")
}

func TestValidate_NamespacedFields(t *testing.T) {
	u := upload{Items: []item{
		{ID: 1, Options: []string{"a", "b", "c", "d"}},
		{ID: 0, Options: []string{"a"}},
	}}

	fields := Validate(&u)

	require.Len(t, fields, 2)
	assert.Contains(t, fields, "items[1].id")
	assert.Contains(t, fields, "items[1].options")
}

func TestValidate_OK(t *testing.T) {
	u := upload{Items: []item{{ID: 1, Options: []string{"a", "b", "c", "d"}}}}
	assert.Nil(t, Validate(&u))
}

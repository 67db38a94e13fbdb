package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/drcartoon/cartoonbox/pkg/models"
)

func testSess() models.Session {
	return models.Session{
		UID: "user-1",
		Profile: models.Profile{
			Email:       "kid@example.com",
			DisplayName: "Kid",
		},
	}
}

func TestGenerateToken(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateToken(testSess(), 1*time.Hour)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestSessionAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{
			name:           "Missing authorization header",
			token:          "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid token format",
			token:          "Bearer not-a-jwt",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			c.Request = req

			SessionAuth()(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestSessionAuthWithValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")

	token, err := GenerateToken(testSess(), 1*time.Hour)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	SessionAuth()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	sess, ok := GetSession(c)
	assert.True(t, ok)
	assert.Equal(t, "user-1", sess.UID)
	assert.Equal(t, "kid@example.com", sess.Profile.Email)
}

func TestSessionAuthFromCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")

	token, err := GenerateToken(testSess(), 1*time.Hour)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	c.Request = req

	SessionAuth()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	sess, ok := GetSession(c)
	assert.True(t, ok)
	assert.Equal(t, "user-1", sess.UID)
}

func TestSessionAuthExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")

	token, err := GenerateToken(testSess(), -1*time.Minute)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	SessionAuth()(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")

	// Anonymous requests pass through without a session.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/test", nil)

	OptionalSession()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := GetSession(c)
	assert.False(t, ok)
}

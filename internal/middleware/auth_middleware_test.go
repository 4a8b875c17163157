package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskboard/internal/auth"
	"taskboard/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const jwtSecret = "test-secret-key"

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	protected := r.Group("/protected")
	protected.Use(middleware.JWTAuthMiddleware(auth.NewTokenManager(jwtSecret, time.Hour)))

	protected.GET("/resource", func(c *gin.Context) {
		userID := middleware.CurrentUserID(c)
		if userID == uuid.Nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "User ID not found in context"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Access granted",
			"user_id": userID,
		})
	})

	return r
}

func signClaims(claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(jwtSecret))
	return tokenString
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	router := setupRouter()
	userID := uuid.New()
	token := signClaims(jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})

	req, _ := http.NewRequest(http.MethodGet, "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Access granted")
	assert.Contains(t, resp.Body.String(), userID.String())
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		message string
	}{
		{
			name:    "no header",
			message: "Authorization header is required",
		},
		{
			name:    "wrong scheme",
			header:  "InvalidFormat token123",
			message: "Authorization header format must be Bearer {token}",
		},
		{
			name:    "garbage token",
			header:  "Bearer invalid-token",
			message: "Invalid or expired token",
		},
		{
			name: "expired token",
			header: "Bearer " + signClaims(jwt.MapClaims{
				"user_id": uuid.NewString(),
				"exp":     time.Now().Add(-time.Minute).Unix(),
			}),
			message: "Invalid or expired token",
		},
		{
			name: "user id is not a uuid",
			header: "Bearer " + signClaims(jwt.MapClaims{
				"user_id": "not-a-valid-uuid",
				"exp":     jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			}),
			message: "Invalid user ID in token",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupRouter()
			req, _ := http.NewRequest(http.MethodGet, "/protected/resource", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, http.StatusUnauthorized, resp.Code)
			assert.Contains(t, resp.Body.String(), tc.message)
		})
	}
}

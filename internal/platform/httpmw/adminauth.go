package httpmw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"saga-engine/internal/platform/apierr"
)

// AdminAuth gates the Ledger's /admin/dlq* routes behind a bearer JWT,
// verify-only (no issuance endpoint lives in this service, spec.md §1
// scopes auth as an external collaborator). When secret is empty, the
// middleware is a no-op so local development and integration tests can run
// without standing up an identity provider.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			apiErr := apierr.NewValidationError("missing bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiErr)
			return
		}

		_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil {
			apiErr := apierr.NewValidationError("invalid admin token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiErr)
			return
		}

		c.Next()
	}
}

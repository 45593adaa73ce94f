package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/serenia-hospitality/procure_backend/utils"
)

// AuthMiddleware validates the Bearer JWT and populates the request context
// with the caller's resort, user id and role. Requests without an
// Authorization header pass through unauthenticated; RequireAuth gates the
// routes that need a session.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), auth)
		ctx = utils.SetResortIdInContext(ctx, claim.ResortId)
		ctx = utils.SetUserIdInContext(ctx, claim.ID)
		ctx = utils.SetIsAdminInContext(ctx, claim.Role == "Owner")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth rejects requests that did not carry a valid session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		resortId, ok := utils.GetResortIdFromContext(c.Request.Context())
		if !ok || resortId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

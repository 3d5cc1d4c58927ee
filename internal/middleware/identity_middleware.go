package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "focusvillage/backend/internal/errors"
	"focusvillage/backend/internal/service"
)

const identityContextKey = "identity"

// Identity resolves the caller: a bearer token yields the authenticated
// user; no token falls back to guest mode keyed by the device id header
// (identity absence is not an error). A malformed or invalid token is still
// rejected rather than silently downgraded to guest.
func Identity(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := strings.TrimSpace(c.GetHeader("X-Device-ID"))
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			if deviceID == "" {
				deviceID = "local-device"
			}
			c.Set(identityContextKey, service.Identity{
				Key:      service.GuestKey(deviceID),
				DeviceID: deviceID,
				Guest:    true,
			})
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(c, apperrors.Unauthorized("invalid authorization format"))
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			writeError(c, apperrors.Unauthorized("invalid authorization format"))
			return
		}

		userID, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(identityContextKey, service.Identity{
			Key:      service.UserKey(userID),
			UserID:   userID,
			DeviceID: deviceID,
		})
		c.Next()
	}
}

func CallerIdentity(c *gin.Context) (service.Identity, bool) {
	value, ok := c.Get(identityContextKey)
	if !ok {
		return service.Identity{}, false
	}
	identity, ok := value.(service.Identity)
	return identity, ok
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}

package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "focusvillage/backend/internal/errors"
	"focusvillage/backend/internal/middleware"
	"focusvillage/backend/internal/service"
)

// sessionFor resolves the caller's runtime. The identity middleware always
// sets one; a missing identity means a misconfigured route.
func sessionFor(c *gin.Context, sessions *service.Sessions) (*service.UserSession, bool) {
	identity, ok := middleware.CallerIdentity(c)
	if !ok {
		writeError(c, apperrors.Unauthorized("identity not resolved"))
		return nil, false
	}
	return sessions.Get(c.Request.Context(), identity), true
}

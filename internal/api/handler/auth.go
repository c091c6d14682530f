package handler

import (
	"crypton/backend/internal/identity"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// GetAnonID creates an anonymous user and returns its session token.
func (h *Handler) GetAnonID(c *gin.Context) {
	user, token, err := h.Identity.Bootstrap(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": user.ID, "username": user.Username})
}

// bearerToken reads the session token from the Authorization header, or the
// "token" query parameter for websocket clients that cannot set headers.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return c.Query("token")
}

// AuthMiddleware resolves the session token and stores the caller in the context.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := h.Identity.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerFrom(c *gin.Context) identity.Caller {
	caller, _ := c.MustGet(callerKey).(identity.Caller)
	return caller
}

func (h *Handler) Me(c *gin.Context) {
	caller := callerFrom(c)
	c.JSON(http.StatusOK, gin.H{"user_id": caller.UserID, "username": caller.Username})
}

type updateUsernameRequest struct {
	Username string `json:"username"`
}

func (h *Handler) UpdateUsername(c *gin.Context) {
	var req updateUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondMessage(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	user, err := h.Identity.Rename(c.Request.Context(), callerFrom(c), req.Username)
	if err != nil {
		status, _ := classify(err)
		if status == http.StatusBadRequest {
			h.respondMessage(c, status, "error.invalid_username")
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "username": user.Username})
}

package handler

import (
	"crypton/backend/internal/identity"
	"crypton/backend/internal/models"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized, "error.unauthorized"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "error.not_found"
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden, "error.access_denied"
	case errors.Is(err, models.ErrInvalidKey):
		return http.StatusBadRequest, "error.invalid_key"
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, "error.invalid_input"
	default:
		return http.StatusInternalServerError, "error.internal"
	}
}

// respondError maps a core error to its status and a localized message.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, key := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	h.respondMessage(c, status, key)
}

func (h *Handler) respondMessage(c *gin.Context, status int, key string) {
	lang := h.Localizer.PickLanguage(c.GetHeader("Accept-Language"))
	c.AbortWithStatusJSON(status, gin.H{"error": h.Localizer.GetString(lang, key)})
}

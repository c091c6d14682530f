package handler

import (
	"crypton/backend/internal/chathub"
	"crypton/backend/internal/identity"
	"crypton/backend/internal/localization"
	"crypton/backend/internal/room"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler exposes the room core, identity and the realtime hub over HTTP.
type Handler struct {
	Rooms     *room.Service
	Identity  *identity.Service
	Hub       *chathub.ManagerService
	Localizer *localization.Localizer

	upgrader websocket.Upgrader
}

// NewHandler wires the services. allowedOrigins restricts websocket upgrades;
// an empty list accepts any origin.
func NewHandler(rooms *room.Service, ids *identity.Service, hub *chathub.ManagerService, loc *localization.Localizer, allowedOrigins []string) *Handler {
	return &Handler{
		Rooms:     rooms,
		Identity:  ids,
		Hub:       hub,
		Localizer: loc,
		upgrader:  newUpgrader(allowedOrigins),
	}
}

// RegisterRoutes mounts every endpoint on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/anonid", h.GetAnonID)

	authed := r.Group("/", h.AuthMiddleware())
	authed.GET("/me", h.Me)
	authed.POST("/me/username", h.UpdateUsername)

	authed.GET("/rooms", h.ListRooms)
	authed.POST("/rooms", h.CreateRoom)
	authed.GET("/rooms/:id", h.RoomInfo)
	authed.POST("/rooms/:id/join", h.JoinRoom)
	authed.POST("/rooms/:id/password", h.PasswordStatus)
	authed.POST("/rooms/:id/write-permission", h.WritePermission)
	authed.POST("/rooms/:id/messages", h.PostMessage)
	authed.POST("/rooms/:id/history", h.FetchHistory)

	authed.GET("/ws", h.ServeWebSocket)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

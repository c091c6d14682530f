package handler

import (
	"crypton/backend/internal/models"
	"crypton/backend/internal/room"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	RoomName       string `json:"room_name"`
	Kind           string `json:"kind"`
	IsPrivate      bool   `json:"is_private"`
	IsAnnouncement bool   `json:"is_announcement"`
	RoomPassword   string `json:"room_password"`
}

type passwordRequest struct {
	RoomPassword string `json:"room_password"`
}

type postMessageRequest struct {
	Message      string `json:"message"`
	RoomPassword string `json:"room_password"`
}

type historyRequest struct {
	RoomKey string `json:"room_key"`
}

var errBadBody = errors.New("malformed request body")

// bindOptional decodes a JSON body when one is present. An empty body leaves
// req at its zero value.
func bindOptional(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := bindOptional(c, &req); err != nil {
		h.respondMessage(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	kind, err := room.ResolveKind(req.Kind, req.IsPrivate, req.IsAnnouncement)
	if err != nil {
		h.respondError(c, err)
		return
	}

	grant, err := h.Rooms.CreateRoom(c.Request.Context(), callerFrom(c), room.CreateRoomInput{
		Name:     req.RoomName,
		Kind:     kind,
		Password: req.RoomPassword,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.Rooms.ListRooms(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *Handler) RoomInfo(c *gin.Context) {
	info, err := h.Rooms.RoomInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) JoinRoom(c *gin.Context) {
	var req passwordRequest
	if err := bindOptional(c, &req); err != nil {
		h.respondMessage(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	grant, err := h.Rooms.JoinRoom(c.Request.Context(), callerFrom(c), c.Param("id"), req.RoomPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

func (h *Handler) PasswordStatus(c *gin.Context) {
	var req passwordRequest
	if err := bindOptional(c, &req); err != nil {
		h.respondMessage(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	status, err := h.Rooms.PasswordStatus(c.Request.Context(), c.Param("id"), req.RoomPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) WritePermission(c *gin.Context) {
	var req passwordRequest
	if err := bindOptional(c, &req); err != nil {
		h.respondMessage(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	ok, err := h.Rooms.CanWrite(c.Request.Context(), c.Param("id"), req.RoomPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"can_write": false, "requires_password": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_write": true})
}

func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondMessage(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	msg, err := h.Rooms.PostMessage(c.Request.Context(), callerFrom(c), c.Param("id"), req.Message, req.RoomPassword)
	if errors.Is(err, models.ErrAccessDenied) {
		h.respondMessage(c, http.StatusForbidden, "error.write_denied")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "id": msg.ID, "timestamp": msg.CreatedAt})
}

func (h *Handler) FetchHistory(c *gin.Context) {
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondMessage(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	entries, err := h.Rooms.FetchHistory(c.Request.Context(), c.Param("id"), req.RoomKey)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": entries})
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/comigor/chatrooms/internal/incident"
	"github.com/comigor/chatrooms/internal/persona"
	"github.com/comigor/chatrooms/internal/session"
)

// SessionHeader selects which session a request acts on.
const SessionHeader = "X-Session-ID"

const defaultSessionKey = "default"

// IncidentLister is satisfied by *incident.Store.
type IncidentLister interface {
	List(ctx context.Context, limit int) ([]incident.Incident, error)
}

// Handler handles HTTP requests.
type Handler struct {
	rooms     *persona.Registry
	sessions  *session.Manager
	incidents IncidentLister
}

// NewHandler creates a new handler. incidents may be nil.
func NewHandler(rooms *persona.Registry, sessions *session.Manager, incidents IncidentLister) *Handler {
	return &Handler{
		rooms:     rooms,
		sessions:  sessions,
		incidents: incidents,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/rooms", h.ListRooms)
	e.GET("/v1/rooms/:room_id", h.GetRoom)

	e.GET("/v1/session", h.GetSession)
	e.POST("/v1/session/start", h.StartSession)
	e.POST("/v1/session/end", h.EndSession)
	e.POST("/v1/session/messages", h.SendMessage)

	e.GET("/v1/incidents", h.ListIncidents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) session(c echo.Context) *session.Session {
	key := c.Request().Header.Get(SessionHeader)
	if key == "" {
		key = defaultSessionKey
	}
	return h.sessions.Get(key)
}

func errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, persona.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrInvalidState), errors.Is(err, session.ErrSuperseded):
		status = http.StatusConflict
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

// ListRooms lists the persona catalog.
// GET /v1/rooms
func (h *Handler) ListRooms(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"rooms": h.rooms.List()})
}

// GetRoom returns one room.
// GET /v1/rooms/:room_id
func (h *Handler) GetRoom(c echo.Context) error {
	room, err := h.rooms.Get(c.Param("room_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, room)
}

// GetSession returns the current session state.
// GET /v1/session
func (h *Handler) GetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, h.session(c).Snapshot())
}

// StartSessionRequest selects a room.
type StartSessionRequest struct {
	RoomID string `json:"room_id"`
}

// StartSession selects a room and resets the session.
// POST /v1/session/start
func (h *Handler) StartSession(c echo.Context) error {
	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.RoomID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "room_id is required"})
	}

	s := h.session(c)
	if err := s.Start(req.RoomID); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// EndSession discards the session.
// POST /v1/session/end
func (h *Handler) EndSession(c echo.Context) error {
	s := h.session(c)
	s.End()
	return c.JSON(http.StatusOK, s.Snapshot())
}

// SendMessageRequest carries one user turn.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage sends a user turn and waits for the assistant reply.
// POST /v1/session/messages
func (h *Handler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	s := h.session(c)
	msg, err := s.Send(c.Request().Context(), req.Content)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": msg,
		"session": s.Snapshot(),
	})
}

// ListIncidents returns recent completion failures.
// GET /v1/incidents?limit=N
func (h *Handler) ListIncidents(c echo.Context) error {
	if h.incidents == nil {
		return c.JSON(http.StatusOK, map[string]any{"incidents": []incident.Incident{}})
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		}
		limit = n
	}

	list, err := h.incidents.List(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if list == nil {
		list = []incident.Incident{}
	}
	return c.JSON(http.StatusOK, map[string]any{"incidents": list})
}

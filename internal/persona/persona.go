// Package persona holds the fixed catalog of chat rooms. Each room pairs an
// AI character with the system instruction and greeting used for it.
package persona

import (
	"errors"
	"fmt"
	"strings"

	"github.com/comigor/chatrooms/internal/config"
)

var ErrRoomNotFound = errors.New("room not found")

// Room is immutable once the registry is built.
// SystemPrompt is kept out of the JSON view handed to renderers.
type Room struct {
	ID             string `json:"id"`
	Title          string `json:"title,omitempty"`
	EnglishTitle   string `json:"english_title,omitempty"`
	Character      string `json:"character"`
	Avatar         string `json:"avatar,omitempty"`
	Description    string `json:"description,omitempty"`
	Role           string `json:"role,omitempty"`
	SystemPrompt   string `json:"-"`
	WelcomeMessage string `json:"welcome_message"`
}

// Registry is a read-only, ordered room catalog. Safe for concurrent use.
type Registry struct {
	rooms []Room
	byID  map[string]int
}

// NewRegistry validates rooms and builds a registry preserving their order.
func NewRegistry(rooms []Room) (*Registry, error) {
	if len(rooms) == 0 {
		return nil, errors.New("persona: empty room catalog")
	}

	r := &Registry{
		rooms: make([]Room, 0, len(rooms)),
		byID:  make(map[string]int, len(rooms)),
	}
	for i, room := range rooms {
		switch {
		case strings.TrimSpace(room.ID) == "":
			return nil, fmt.Errorf("persona: room %d has no id", i)
		case strings.TrimSpace(room.SystemPrompt) == "":
			return nil, fmt.Errorf("persona: room %q has no system prompt", room.ID)
		case strings.TrimSpace(room.WelcomeMessage) == "":
			return nil, fmt.Errorf("persona: room %q has no welcome message", room.ID)
		}
		if _, dup := r.byID[room.ID]; dup {
			return nil, fmt.Errorf("persona: duplicate room id %q", room.ID)
		}
		r.byID[room.ID] = len(r.rooms)
		r.rooms = append(r.rooms, room)
	}
	return r, nil
}

// FromConfig builds the registry from configured rooms, falling back to the
// built-in catalog when none are configured.
func FromConfig(rooms []config.RoomConfig) (*Registry, error) {
	if len(rooms) == 0 {
		return Default(), nil
	}
	out := make([]Room, len(rooms))
	for i, rc := range rooms {
		out[i] = Room{
			ID:             rc.ID,
			Title:          rc.Title,
			EnglishTitle:   rc.EnglishTitle,
			Character:      rc.Character,
			Avatar:         rc.Avatar,
			Description:    rc.Description,
			Role:           rc.Role,
			SystemPrompt:   rc.SystemPrompt,
			WelcomeMessage: rc.WelcomeMessage,
		}
	}
	return NewRegistry(out)
}

// List returns every room in catalog order.
func (r *Registry) List() []Room {
	out := make([]Room, len(r.rooms))
	copy(out, r.rooms)
	return out
}

// Get returns the room with the given id, or ErrRoomNotFound.
func (r *Registry) Get(id string) (Room, error) {
	i, ok := r.byID[id]
	if !ok {
		return Room{}, fmt.Errorf("%w: %q", ErrRoomNotFound, id)
	}
	return r.rooms[i], nil
}

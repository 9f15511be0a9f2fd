// Package session implements the conversation session: one active room, its
// ordered message log, and the single in-flight completion request.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/chatrooms/internal/chat"
	"github.com/comigor/chatrooms/internal/logger"
	"github.com/comigor/chatrooms/internal/persona"
	"github.com/comigor/chatrooms/internal/prompt"
	"github.com/comigor/chatrooms/internal/reply"
)

var (
	// ErrInvalidState rejects a send with no active room, blank text, or a
	// request already pending.
	ErrInvalidState = errors.New("invalid session state")
	// ErrSuperseded is returned by Send when the session was ended or restarted
	// while the response was in flight. The response is discarded.
	ErrSuperseded = errors.New("session changed while awaiting response")
)

// Lifecycle states
const (
	StateIdle    = "Idle"
	StateReady   = "Ready"
	StatePending = "Pending"
)

// Lifecycle triggers
const (
	triggerStart  = "Start"
	triggerEnd    = "End"
	triggerSend   = "Send"
	triggerSettle = "Settle"
)

// Rooms resolves room ids.
type Rooms interface {
	Get(id string) (persona.Room, error)
}

// Completer performs one completion call.
type Completer interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
}

// Resolver turns a completion outcome into assistant content.
type Resolver interface {
	Resolve(ctx context.Context, o reply.Outcome) string
}

// State is what a renderer reads after every mutation.
type State struct {
	ActiveRoomID string         `json:"active_room_id"`
	Log          []chat.Message `json:"log"`
	Pending      bool           `json:"pending"`
}

// Session is safe for concurrent use. Its lock is never held while a
// completion is in flight, so Start, End and Snapshot stay responsive.
type Session struct {
	rooms    Rooms
	gateway  Completer
	resolver Resolver
	now      func() time.Time

	mu         sync.Mutex
	fsm        *stateless.StateMachine
	room       persona.Room
	log        []chat.Message
	generation uint64
}

func New(rooms Rooms, gateway Completer, resolver Resolver) *Session {
	fsm := stateless.NewStateMachine(StateIdle)
	fsm.Configure(StateIdle).
		Permit(triggerStart, StateReady).
		Ignore(triggerEnd)
	fsm.Configure(StateReady).
		PermitReentry(triggerStart).
		Permit(triggerSend, StatePending).
		Permit(triggerEnd, StateIdle)
	fsm.Configure(StatePending).
		Permit(triggerSettle, StateReady).
		Permit(triggerStart, StateReady).
		Permit(triggerEnd, StateIdle)

	return &Session{
		rooms:    rooms,
		gateway:  gateway,
		resolver: resolver,
		now:      time.Now,
		fsm:      fsm,
	}
}

// Start selects roomID and resets the log to the room's welcome message.
// Calling it again, even for the same room, is a full reset.
func (s *Session) Start(roomID string) error {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fsm.Fire(triggerStart); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	s.generation++
	s.room = room
	s.log = []chat.Message{chat.NewMessage(chat.SenderAI, room.WelcomeMessage, s.now())}
	logger.L.Debug("session started", "room", room.ID, "generation", s.generation)
	return nil
}

// End discards the session. It is a no-op when no room is active.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fsm.MustState() == StateIdle {
		return
	}
	if err := s.fsm.Fire(triggerEnd); err != nil {
		logger.L.Error("FSM fire error", "trigger", triggerEnd, "error", err)
	}
	s.generation++
	s.room = persona.Room{}
	s.log = nil
	logger.L.Debug("session ended", "generation", s.generation)
}

// Send appends text as a user message, asks the model for a reply and appends
// exactly one assistant message, falling back to a canned reply on failure.
// The user message is visible to Snapshot before the completion settles.
func (s *Session) Send(ctx context.Context, text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, fmt.Errorf("%w: message is empty", ErrInvalidState)
	}

	s.mu.Lock()
	if ok, _ := s.fsm.CanFire(triggerSend); !ok {
		state := s.fsm.MustState()
		s.mu.Unlock()
		return chat.Message{}, fmt.Errorf("%w: cannot send while %v", ErrInvalidState, state)
	}
	if err := s.fsm.Fire(triggerSend); err != nil {
		s.mu.Unlock()
		return chat.Message{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	room := s.room
	history := slices.Clone(s.log)
	generation := s.generation
	s.log = append(s.log, chat.NewMessage(chat.SenderUser, text, s.now()))
	s.mu.Unlock()

	content := s.complete(ctx, room, history, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		logger.L.Info("discarding stale response", "room", room.ID, "generation", generation, "current", s.generation)
		return chat.Message{}, ErrSuperseded
	}
	msg := chat.NewMessage(chat.SenderAI, content, s.now())
	s.log = append(s.log, msg)
	if err := s.fsm.Fire(triggerSettle); err != nil {
		logger.L.Error("FSM fire error", "trigger", triggerSettle, "error", err)
	}
	return msg, nil
}

func (s *Session) complete(ctx context.Context, room persona.Room, history []chat.Message, text string) string {
	messages, err := prompt.Build(room.SystemPrompt, history, text)
	if err != nil {
		logger.L.Error("failed to build completion request", "room", room.ID, "error", err)
		return s.resolver.Resolve(ctx, reply.Outcome{RoomID: room.ID, Err: err})
	}

	out, err := s.gateway.Complete(ctx, messages)
	return s.resolver.Resolve(ctx, reply.Outcome{RoomID: room.ID, Text: out, Err: err})
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ActiveRoomID: s.room.ID,
		Log:          slices.Clone(s.log),
		Pending:      s.fsm.MustState() == StatePending,
	}
}

// Room returns the active room and whether one is selected.
func (s *Session) Room() (persona.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.room.ID != ""
}

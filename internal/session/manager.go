package session

import "sync"

// Manager hands out one Session per client key.
type Manager struct {
	rooms    Rooms
	gateway  Completer
	resolver Resolver

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(rooms Rooms, gateway Completer, resolver Resolver) *Manager {
	return &Manager{
		rooms:    rooms,
		gateway:  gateway,
		resolver: resolver,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for key, creating an idle one on first use.
func (m *Manager) Get(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		s = New(m.rooms, m.gateway, m.resolver)
		m.sessions[key] = s
	}
	return s
}

// Drop ends and forgets the session for key.
func (m *Manager) Drop(key string) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if ok {
		s.End()
	}
}

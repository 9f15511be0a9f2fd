// Package reply decides the assistant message appended after each send.
package reply

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/elliotchance/pie/v2"

	"github.com/comigor/chatrooms/internal/incident"
	"github.com/comigor/chatrooms/internal/llm"
	"github.com/comigor/chatrooms/internal/logger"
)

// DefaultFallbacks are shown in place of a failed completion.
var DefaultFallbacks = []string{
	"抱歉，我现在无法回应。",
	"让我想想...",
	"这个问题很有趣...",
	"我需要更多信息。",
}

// Outcome is the settled result of one completion attempt.
type Outcome struct {
	RoomID string
	Text   string
	Err    error
}

// Policy maps an Outcome to assistant message content.
type Policy struct {
	fallbacks []string
	recorder  incident.Recorder

	mu     sync.Mutex
	source rand.Source
}

type Option func(*Policy)

// WithFallbacks replaces the fallback set. Blank entries are dropped; an
// effectively empty set leaves the defaults in place.
func WithFallbacks(fallbacks ...string) Option {
	return func(p *Policy) {
		kept := pie.Filter(fallbacks, func(s string) bool { return strings.TrimSpace(s) != "" })
		if len(kept) > 0 {
			p.fallbacks = kept
		}
	}
}

// WithSource fixes the random source, for reproducible picks.
func WithSource(src rand.Source) Option {
	return func(p *Policy) { p.source = src }
}

// WithRecorder sends every failure to r in addition to the log.
func WithRecorder(r incident.Recorder) Option {
	return func(p *Policy) { p.recorder = r }
}

func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		fallbacks: DefaultFallbacks,
		source:    rand.NewSource(time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fallbacks returns a copy of the fallback set.
func (p *Policy) Fallbacks() []string {
	return append([]string(nil), p.fallbacks...)
}

// Resolve returns the model text unchanged on success. On failure it records
// the error and returns a fallback; the error text never reaches the user.
func (p *Policy) Resolve(ctx context.Context, o Outcome) string {
	if o.Err == nil && o.Text != "" {
		return o.Text
	}

	err := o.Err
	if err == nil {
		err = errors.New("empty completion")
	}
	kind := "internal"
	var gwErr *llm.GatewayError
	if errors.As(err, &gwErr) {
		kind = string(gwErr.Kind)
	}

	logger.L.Error("completion failed; using fallback reply", "room", o.RoomID, "kind", kind, "error", err)
	if p.recorder != nil {
		p.recorder.Record(ctx, incident.Incident{RoomID: o.RoomID, Kind: kind, Detail: err.Error()})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return pie.Random(p.fallbacks, p.source)
}

package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/chatrooms/internal/chat"
	"github.com/comigor/chatrooms/internal/llm"
	"github.com/comigor/chatrooms/internal/persona"
	"github.com/comigor/chatrooms/internal/reply"
)

type fakeGateway struct {
	mu      sync.Mutex
	calls   [][]openai.ChatCompletionMessage
	reply   string
	err     error
	entered chan struct{} // receives once per call, if set
	release chan struct{} // call blocks until closed, if set
}

func (f *fakeGateway) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.reply, f.err
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestSession(gw *fakeGateway) *Session {
	return New(persona.Default(), gw, reply.NewPolicy(reply.WithSource(rand.NewSource(7))))
}

type sendResult struct {
	msg chat.Message
	err error
}

// sendAsync starts a send and waits until the gateway has been entered.
func sendAsync(t *testing.T, s *Session, gw *fakeGateway, text string) <-chan sendResult {
	t.Helper()
	done := make(chan sendResult, 1)
	go func() {
		msg, err := s.Send(context.Background(), text)
		done <- sendResult{msg, err}
	}()
	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("gateway was not called")
	}
	return done
}

func TestStart_EveryRoom(t *testing.T) {
	s := newTestSession(&fakeGateway{})
	for _, room := range persona.Default().List() {
		require.NoError(t, s.Start(room.ID))
		st := s.Snapshot()
		require.Equal(t, room.ID, st.ActiveRoomID)
		require.False(t, st.Pending)
		require.Len(t, st.Log, 1)
		require.Equal(t, chat.SenderAI, st.Log[0].Sender)
		require.Equal(t, room.WelcomeMessage, st.Log[0].Content)
	}
}

func TestStart_UnknownRoom(t *testing.T) {
	s := newTestSession(&fakeGateway{})
	err := s.Start("nowhere")
	require.ErrorIs(t, err, persona.ErrRoomNotFound)
	require.Equal(t, State{}, s.Snapshot())
}

func TestSend_DetectiveScenario(t *testing.T) {
	gw := &fakeGateway{reply: "好的，让我们仔细分析..."}
	s := newTestSession(gw)
	require.NoError(t, s.Start("detective-room"))
	require.Equal(t, "你好！我是江户川柯南，一个高中生侦探。有什么案件需要我帮忙分析吗？", s.Snapshot().Log[0].Content)

	msg, err := s.Send(context.Background(), "帮我分析一个案件")
	require.NoError(t, err)
	require.Equal(t, chat.SenderAI, msg.Sender)
	require.Equal(t, "好的，让我们仔细分析...", msg.Content)

	st := s.Snapshot()
	require.False(t, st.Pending)
	require.Len(t, st.Log, 3)
	require.Equal(t, chat.SenderAI, st.Log[0].Sender)
	require.Equal(t, chat.SenderUser, st.Log[1].Sender)
	require.Equal(t, "帮我分析一个案件", st.Log[1].Content)
	require.Equal(t, msg, st.Log[2])

	ids := map[string]bool{}
	for _, m := range st.Log {
		ids[m.ID] = true
	}
	require.Len(t, ids, 3)

	require.Equal(t, 1, gw.callCount())
	req := gw.calls[0]
	require.Len(t, req, 3)
	require.Equal(t, openai.ChatMessageRoleSystem, req[0].Role)
	room, _ := persona.Default().Get("detective-room")
	require.Equal(t, room.SystemPrompt, req[0].Content)
	require.Equal(t, openai.ChatMessageRoleAssistant, req[1].Role)
	require.Equal(t, openai.ChatMessageRoleUser, req[2].Role)
	require.Equal(t, "帮我分析一个案件", req[2].Content)
}

func TestSend_HistoryAccumulates(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	s := newTestSession(gw)
	require.NoError(t, s.Start("black-org"))

	for i := 0; i < 3; i++ {
		_, err := s.Send(context.Background(), "hello")
		require.NoError(t, err)
	}
	require.Len(t, s.Snapshot().Log, 7)
	// third request: system + 5 prior messages + new user turn
	require.Len(t, gw.calls[2], 7)
}

func TestSend_RejectsBlankText(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	s := newTestSession(gw)
	require.NoError(t, s.Start("detective-boys"))

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := s.Send(context.Background(), text)
		require.ErrorIs(t, err, ErrInvalidState)
	}
	require.Len(t, s.Snapshot().Log, 1)
	require.Zero(t, gw.callCount())
}

func TestSend_RejectsWithoutRoom(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	s := newTestSession(gw)

	_, err := s.Send(context.Background(), "hello")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Zero(t, gw.callCount())
	require.Empty(t, s.Snapshot().Log)
}

func TestSend_RejectsWhilePending(t *testing.T) {
	gw := &fakeGateway{reply: "done", entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := newTestSession(gw)
	require.NoError(t, s.Start("detective-room"))

	done := sendAsync(t, s, gw, "first")

	st := s.Snapshot()
	require.True(t, st.Pending)
	require.Len(t, st.Log, 2, "user message is visible before the reply")
	require.Equal(t, "first", st.Log[1].Content)

	_, err := s.Send(context.Background(), "second")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, st.Log, s.Snapshot().Log)

	close(gw.release)
	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, "done", res.msg.Content)

	st = s.Snapshot()
	require.False(t, st.Pending)
	require.Len(t, st.Log, 3)
	require.Equal(t, 1, gw.callCount())
}

func TestSend_TransportFailureFallsBack(t *testing.T) {
	gw := &fakeGateway{err: &llm.GatewayError{Kind: llm.KindTransport, Err: errors.New("dial tcp: connection refused")}}
	s := newTestSession(gw)
	require.NoError(t, s.Start("detective-room"))

	msg, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.NotEmpty(t, msg.Content)
	require.Contains(t, reply.DefaultFallbacks, msg.Content)

	st := s.Snapshot()
	require.False(t, st.Pending)
	require.Len(t, st.Log, 3)
	require.Equal(t, chat.SenderUser, st.Log[1].Sender)
	require.Equal(t, chat.SenderAI, st.Log[2].Sender)

	// the session is Ready again, so the user can retry
	gw.err, gw.reply = nil, "back online"
	msg, err = s.Send(context.Background(), "hello again")
	require.NoError(t, err)
	require.Equal(t, "back online", msg.Content)
}

func TestSend_CorruptLogFallsBackWithoutCall(t *testing.T) {
	gw := &fakeGateway{reply: "unused"}
	s := newTestSession(gw)
	require.NoError(t, s.Start("detective-room"))
	s.log = append(s.log, chat.Message{ID: "bad", Sender: "narrator", Content: "?"})

	msg, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.Contains(t, reply.DefaultFallbacks, msg.Content)
	require.Zero(t, gw.callCount())
	require.False(t, s.Snapshot().Pending)
}

func TestStaleResponse_AfterEnd(t *testing.T) {
	gw := &fakeGateway{reply: "too late", entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := newTestSession(gw)
	require.NoError(t, s.Start("detective-room"))

	done := sendAsync(t, s, gw, "hello")
	s.End()
	require.Equal(t, State{}, s.Snapshot())

	close(gw.release)
	res := <-done
	require.ErrorIs(t, res.err, ErrSuperseded)
	require.Equal(t, State{}, s.Snapshot())
}

func TestStaleResponse_AfterRestartInOtherRoom(t *testing.T) {
	gw := &fakeGateway{reply: "too late", entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := newTestSession(gw)
	require.NoError(t, s.Start("detective-room"))

	done := sendAsync(t, s, gw, "hello")
	require.NoError(t, s.Start("black-org"))

	st := s.Snapshot()
	require.False(t, st.Pending, "a fresh session accepts sends")
	require.Len(t, st.Log, 1)

	close(gw.release)
	res := <-done
	require.ErrorIs(t, res.err, ErrSuperseded)

	st = s.Snapshot()
	require.Equal(t, "black-org", st.ActiveRoomID)
	require.Len(t, st.Log, 1)
	require.Equal(t, chat.SenderAI, st.Log[0].Sender)
}

func TestStart_IsFullReset(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	s := newTestSession(gw)
	require.NoError(t, s.Start("detective-room"))
	_, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	first := s.Snapshot().Log[0]

	require.NoError(t, s.Start("detective-room"))
	st := s.Snapshot()
	require.Len(t, st.Log, 1)
	require.NotEqual(t, first.ID, st.Log[0].ID)
}

func TestEnd_Idempotent(t *testing.T) {
	s := newTestSession(&fakeGateway{})
	s.End()
	require.NoError(t, s.Start("detective-boys"))
	s.End()
	s.End()
	require.Equal(t, State{}, s.Snapshot())
	_, ok := s.Room()
	require.False(t, ok)
}

func TestManager(t *testing.T) {
	m := NewManager(persona.Default(), &fakeGateway{reply: "ok"}, reply.NewPolicy())
	a := m.Get("alice")
	require.Same(t, a, m.Get("alice"))
	require.NotSame(t, a, m.Get("bob"))

	require.NoError(t, a.Start("detective-room"))
	require.Empty(t, m.Get("bob").Snapshot().ActiveRoomID)

	m.Drop("alice")
	require.Empty(t, a.Snapshot().ActiveRoomID)
	require.NotSame(t, a, m.Get("alice"))
}

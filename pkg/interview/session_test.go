package interview

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsTestServer is an in-process interview server: it accepts one connection
// at a time and exposes the decoded frames it receives.
type wsTestServer struct {
	server *httptest.Server
	conns  chan *websocket.Conn
	frames chan Envelope
}

func startWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()

	ts := &wsTestServer{
		conns:  make(chan *websocket.Conn, 4),
		frames: make(chan Envelope, 64),
	}

	upgrader := websocket.Upgrader{}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.conns <- conn
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if env, decodeErr := Decode(frame); decodeErr == nil {
				ts.frames <- env
			}
		}
	}))
	t.Cleanup(ts.server.Close)

	return ts
}

func (ts *wsTestServer) config() *Config {
	return &Config{
		WsEndpoint:        "ws" + strings.TrimPrefix(ts.server.URL, "http"),
		Language:          "en-US",
		MonitorEnabled:    true,
		SampleInterval:    time.Hour,
		WarningVisibility: time.Second,
		RetryDelay:        10 * time.Millisecond,
		MaxTranscript:     50,
		LogLevel:          "ERROR",
		Headers:           map[string]string{},
	}
}

func (ts *wsTestServer) acceptConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ts.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a connection")
		return nil
	}
}

func (ts *wsTestServer) nextFrame(t *testing.T) Envelope {
	t.Helper()
	select {
	case env := <-ts.frames:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("server never received a frame")
		return Envelope{}
	}
}

func waitForState(t *testing.T, session *SessionController, want SessionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if session.State() == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want %s", session.State(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func sendToClient(t *testing.T, conn *websocket.Conn, env Envelope) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, Encode(env)); err != nil {
		t.Fatalf("server write failed: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	if session.State() != StateIdle {
		t.Fatalf("initial state = %s, want %s", session.State(), StateIdle)
	}

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn := ts.acceptConn(t)
	waitForState(t, session, StateActive)

	if err := session.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	frame := ts.nextFrame(t)
	if frame.Type != TypeUserResponse || frame.Text != "end interview" {
		t.Errorf("stop frame = %+v, want end-interview user response", frame)
	}
	waitForState(t, session, StateEnding)

	conn.Close()
	waitForState(t, session, StateTerminated)
}

func TestSessionRestartRejected(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	ts.acceptConn(t)
	waitForState(t, session, StateActive)

	if err := session.Start(); err == nil {
		t.Error("second Start must fail")
	}

	session.Close()
	waitForState(t, session, StateTerminated)
}

func TestBotResponseAppendsAndKeepsSessionActive(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn := ts.acceptConn(t)
	waitForState(t, session, StateActive)

	sendToClient(t, conn, Envelope{Type: TypeBotResponse, Text: "Walk me through your resume."})

	waitFor(t, "bot transcript entry", func() bool {
		last, ok := session.Transcript().Last()
		return ok && last.Role == RoleBot
	})
	if session.State() != StateActive {
		t.Errorf("state = %s after plain bot response, want %s", session.State(), StateActive)
	}

	session.Close()
}

func TestEndMarkerDisablesInput(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn := ts.acceptConn(t)
	waitForState(t, session, StateActive)

	sendToClient(t, conn, Envelope{
		Type: TypeBotResponse,
		Text: "Interview Feedback: strong on fundamentals, work on system design.",
	})
	waitForState(t, session, StateEnding)

	// The final message is still delivered.
	last, ok := session.Transcript().Last()
	if !ok || last.Role != RoleBot || !strings.Contains(last.Text, "Interview Feedback") {
		t.Errorf("final message missing from transcript: %+v", last)
	}

	err := session.SubmitText("wait, one more thing")
	if err == nil || !IsErrorCode(err.(*InterviewError), ErrCodeInputDisabled) {
		t.Errorf("SubmitText while ending = %v, want %s", err, ErrCodeInputDisabled)
	}

	conn.Close()
	waitForState(t, session, StateTerminated)
}

func TestMalformedFrameDoesNotCloseSession(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn := ts.acceptConn(t)
	waitForState(t, session, StateActive)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{{{ not json")); err != nil {
		t.Fatalf("server write failed: %v", err)
	}
	sendToClient(t, conn, Envelope{Type: TypeBotResponse, Text: "Still here?"})

	waitFor(t, "bot entry after malformed frame", func() bool {
		last, ok := session.Transcript().Last()
		return ok && last.Text == "Still here?"
	})
	if session.State() != StateActive {
		t.Errorf("state = %s after malformed frame, want %s", session.State(), StateActive)
	}

	session.Close()
}

func TestUnknownTypeIgnored(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn := ts.acceptConn(t)
	waitForState(t, session, StateActive)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)); err != nil {
		t.Fatalf("server write failed: %v", err)
	}
	sendToClient(t, conn, Envelope{Type: TypeBotResponse, Text: "Next question."})

	waitFor(t, "bot entry after unknown frame", func() bool {
		last, ok := session.Transcript().Last()
		return ok && last.Text == "Next question."
	})

	session.Close()
}

func TestSubmitTextSendsUserResponse(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	ts.acceptConn(t)
	waitForState(t, session, StateActive)

	if err := session.SubmitText("  I would shard by user id.  "); err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}

	frame := ts.nextFrame(t)
	if frame.Type != TypeUserResponse || frame.Text != "I would shard by user id." {
		t.Errorf("frame = %+v, want trimmed user response", frame)
	}

	last, ok := session.Transcript().Last()
	if !ok || last.Role != RoleUser {
		t.Errorf("transcript last = %+v, want user entry", last)
	}

	session.Close()
}

func TestSubmitTextBeforeStart(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	err := session.SubmitText("hello")
	if err == nil || !IsErrorCode(err.(*InterviewError), ErrCodeInputDisabled) {
		t.Errorf("SubmitText before start = %v, want %s", err, ErrCodeInputDisabled)
	}

	if err := session.SubmitText("   "); err != nil {
		t.Errorf("blank input must be silently ignored, got %v", err)
	}
}

func TestMonitorEnvelopesFlowThroughSession(t *testing.T) {
	ts := startWSTestServer(t)
	config := ts.config()
	session := NewSessionController(config, nil, nil)
	monitor := NewIntegrityMonitor(config, nil, nil, session)
	session.SetMonitor(monitor)

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	ts.acceptConn(t)
	waitForState(t, session, StateActive)

	session.RecordKeystroke("q")
	monitor.FlushTyping()

	frame := ts.nextFrame(t)
	if frame.Type != TypeTypingData {
		t.Fatalf("frame type = %s, want %s", frame.Type, TypeTypingData)
	}
	if len(frame.TypingData.Events) != 1 || frame.TypingData.Events[0].Key != "q" {
		t.Errorf("typing payload = %+v", frame.TypingData)
	}

	session.Close()
}

func TestServerDropSurfacesErrorAndTerminates(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	surfaced := make(chan *InterviewError, 1)
	session.AddErrorHandler(func(err *InterviewError) { surfaced <- err })

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn := ts.acceptConn(t)
	waitForState(t, session, StateActive)

	conn.Close() // abrupt drop, no close handshake

	waitForState(t, session, StateTerminated)
	select {
	case <-surfaced:
	case <-time.After(2 * time.Second):
		t.Fatal("connection loss was never surfaced")
	}

	last, ok := session.Transcript().Last()
	if !ok || last.Role != RoleError {
		t.Errorf("transcript last = %+v, want error entry", last)
	}
}

func TestDialFailureTerminates(t *testing.T) {
	config := &Config{
		WsEndpoint:        "ws://127.0.0.1:1/ws",
		MonitorEnabled:    false,
		SampleInterval:    time.Hour,
		WarningVisibility: time.Second,
		RetryDelay:        10 * time.Millisecond,
		MaxTranscript:     50,
		LogLevel:          "ERROR",
	}
	session := NewSessionController(config, nil, nil)

	if err := session.Start(); err == nil {
		t.Fatal("Start against a dead endpoint must fail")
	}
	waitForState(t, session, StateTerminated)

	last, ok := session.Transcript().Last()
	if !ok || last.Role != RoleError {
		t.Errorf("transcript last = %+v, want connection error entry", last)
	}
}

func TestCloseIdempotent(t *testing.T) {
	ts := startWSTestServer(t)
	session := NewSessionController(ts.config(), nil, nil)

	if err := session.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	ts.acceptConn(t)
	waitForState(t, session, StateActive)

	session.Close()
	waitForState(t, session, StateTerminated)
	session.Close()
	session.Close()

	if err := session.Stop(); err != nil {
		t.Errorf("Stop after termination = %v, want nil", err)
	}
}

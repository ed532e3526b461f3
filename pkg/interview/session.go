package interview

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EndOfInterviewMarker is the substring of a bot message that marks the
// terminal feedback message of an interview.
const EndOfInterviewMarker = "Interview Feedback"

// endInterviewPhrase is the user response that asks the server to wrap up.
const endInterviewPhrase = "end interview"

// SessionController owns the connection lifecycle and the session state
// machine, and wires the voice coordinator and integrity monitor to protocol
// events. Exactly one session is live per controller; a new attempt needs a
// new controller.
//
// States: Idle -> Connecting -> Active -> Ending -> Terminated. Transport
// errors never force a transition themselves; the resulting close event
// drives the single idempotent teardown path to Terminated.
type SessionController struct {
	id         string
	config     *Config
	voice      *VoiceCoordinator
	transcript *Transcript
	logger     *Logger

	tokenManager *TokenManager

	mu               sync.Mutex
	state            SessionState
	conn             *websocket.Conn
	monitor          *IntegrityMonitor
	lastBotMessageAt time.Time

	stateHandlers handlerRegistry[SessionState]
	errorHandlers handlerRegistry[*InterviewError]
}

func NewSessionController(config *Config, voice *VoiceCoordinator, transcript *Transcript) *SessionController {
	if config == nil {
		config = NewConfig()
	}
	if transcript == nil {
		transcript = NewTranscript(config.MaxTranscript)
	}

	var tokenManager *TokenManager
	if config.TokenEndpoint != "" {
		tokenManager = NewTokenManager(config.TokenEndpoint, config.Headers, 60.0)
	}

	s := &SessionController{
		id:           uuid.NewString(),
		config:       config,
		voice:        voice,
		transcript:   transcript,
		tokenManager: tokenManager,
		state:        StateIdle,
	}
	s.logger = GetGlobalLogger().WithComponent("SessionController").WithField("session_id", s.id)

	if voice != nil {
		voice.SetCallbacks(s.handleUtterance, s.handleSpeechDone)
	}

	return s
}

// SetMonitor attaches the integrity monitor whose sampling loop follows the
// session lifecycle. The monitor sends its envelopes through this controller.
func (s *SessionController) SetMonitor(monitor *IntegrityMonitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor = monitor
}

// ID returns the session identifier.
func (s *SessionController) ID() string {
	return s.id
}

// State returns the current session state.
func (s *SessionController) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the session transcript.
func (s *SessionController) Transcript() *Transcript {
	return s.transcript
}

// Start opens the duplex connection and, on success, enables input, starts
// capture and starts the sampling loop. A dial failure is surfaced once and
// the session terminates without reaching Active.
func (s *SessionController) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return NewInterviewError("session already started", ErrCodeInvalidState)
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	header := make(http.Header)
	if s.config.UseTokenAuth {
		token, err := s.authToken()
		if err != nil {
			s.surfaceError(err)
			s.teardown()
			return err
		}
		header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range s.config.Headers {
		header.Set(k, v)
	}

	conn, _, err := websocket.DefaultDialer.Dial(s.config.WsEndpoint, header)
	if err != nil {
		iErr := WrapError(err, ErrCodeConnectionFailed)
		s.transcript.Append(RoleError, "Connection Error: Failed to connect to interview server")
		s.surfaceError(iErr)
		s.teardown()
		return iErr
	}

	s.mu.Lock()
	s.conn = conn
	monitor := s.monitor
	s.setStateLocked(StateActive)
	s.mu.Unlock()

	s.logger.LogSessionEvent("connected", StateActive, map[string]interface{}{
		"endpoint": s.config.WsEndpoint,
	})

	if monitor != nil {
		monitor.Start()
	}
	if s.voice != nil {
		if err := s.voice.StartListening(); err != nil {
			s.logger.WithError(err).Warn("Voice capture unavailable at session start")
		}
	}

	go s.readLoop(conn)
	return nil
}

func (s *SessionController) authToken() (string, *InterviewError) {
	if s.tokenManager != nil {
		token, err := s.tokenManager.GetToken()
		if err != nil {
			return "", err
		}
		return token, nil
	}

	result := GenerateSessionToken()
	if !result.Success {
		return "", result.Error
	}
	return result.Data.Token, nil
}

func (s *SessionController) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(err)
			return
		}

		env, decodeErr := Decode(frame)
		if decodeErr != nil {
			// Malformed frames are dropped; the connection stays open.
			s.logger.WithField("reason", decodeErr.Reason).Warn("Dropped undecodable frame")
			continue
		}

		s.dispatch(env)
	}
}

func (s *SessionController) dispatch(env Envelope) {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.config.DebugWebsocket {
		s.logger.LogMessageEvent(env.Type, nil)
	}

	switch env.Type {
	case TypeBotResponse:
		if env.Text == "" {
			s.logger.Debug("Dropped bot response with empty text")
			return
		}
		s.handleBotResponse(env.Text)
	case TypeError:
		if env.Text != "" {
			s.transcript.Append(RoleError, env.Text)
		}
	default:
		s.logger.WithField("type", string(env.Type)).Debug("Ignored envelope")
	}
}

func (s *SessionController) handleBotResponse(text string) {
	s.mu.Lock()
	s.lastBotMessageAt = time.Now()
	ending := strings.Contains(text, EndOfInterviewMarker)
	if ending && s.state == StateActive {
		// Input is disabled immediately; the final message below is still
		// delivered and spoken.
		s.setStateLocked(StateEnding)
	}
	s.mu.Unlock()

	s.transcript.Append(RoleBot, text)

	if s.voice != nil {
		if err := s.voice.Speak(text); err != nil {
			s.logger.WithError(err).Warn("Playback failed for bot response")
		}
	}
}

// SubmitText classifies response speed, records the text and sends it as a
// user response. Input is accepted only while the session is Active.
func (s *SessionController) SubmitText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return NewInterviewError("input disabled", ErrCodeInputDisabled)
	}
	lastBot := s.lastBotMessageAt
	monitor := s.monitor
	s.mu.Unlock()

	if monitor != nil && !lastBot.IsZero() {
		monitor.CheckResponse(CountWords(text), time.Since(lastBot))
	}

	s.transcript.Append(RoleUser, text)
	return s.SendEnvelope(NewUserResponse(text))
}

// RecordKeystroke forwards one keystroke to the integrity monitor.
func (s *SessionController) RecordKeystroke(key string) {
	s.mu.Lock()
	monitor := s.monitor
	active := s.state == StateActive
	s.mu.Unlock()

	if monitor != nil && active {
		monitor.RecordKeystroke(key)
	}
}

// ToggleVoiceInput flips capture on or off while the session is Active.
func (s *SessionController) ToggleVoiceInput() {
	if s.voice == nil {
		return
	}
	if s.voice.IsListening() {
		s.voice.StopListening()
		return
	}
	if s.State() == StateActive {
		if err := s.voice.StartListening(); err != nil {
			s.logger.WithError(err).Warn("Failed to start voice capture")
		}
	}
}

// Stop asks the server to wrap up: the end-interview response is sent and
// input is disabled while the final feedback message is awaited. In any
// other state Stop tears the session down directly.
func (s *SessionController) Stop() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case StateActive:
		s.transcript.Append(RoleUser, endInterviewPhrase)
		if err := s.SendEnvelope(NewUserResponse(endInterviewPhrase)); err != nil {
			s.Close()
			return err
		}
		s.mu.Lock()
		if s.state == StateActive {
			s.setStateLocked(StateEnding)
		}
		s.mu.Unlock()
		return nil
	case StateIdle, StateTerminated:
		return nil
	default:
		s.Close()
		return nil
	}
}

// Close releases the connection and drives the session to Terminated. Safe
// to call from any state, any number of times.
func (s *SessionController) Close() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		// The read loop observes the close and runs the teardown path.
		conn.Close()
		return
	}
	s.teardown()
}

// SendEnvelope writes one envelope to the connection. It implements the
// EnvelopeSender interface used by the integrity monitor.
func (s *SessionController) SendEnvelope(env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.state == StateIdle || s.state == StateTerminated {
		return NewInterviewError("not connected", ErrCodeNotConnected)
	}

	if s.config.DebugWebsocket {
		s.logger.LogMessageEvent(env.Type, map[string]interface{}{"direction": "out"})
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, Encode(env)); err != nil {
		return WrapError(err, ErrCodeWebSocket)
	}
	return nil
}

func (s *SessionController) handleClose(err error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	unexpected := !websocket.IsCloseError(err,
		websocket.CloseNormalClosure, websocket.CloseGoingAway)
	if unexpected && (state == StateConnecting || state == StateActive) {
		s.transcript.Append(RoleError, "Connection Error: Interview connection lost")
		s.surfaceError(WrapError(err, ErrCodeWebSocket))
	}

	s.teardown()
}

// teardown is the single idempotent path to Terminated: it stops the
// sampling loop, stops capture, cancels playback and releases the
// connection. Cancellations are fire-and-forget; late callbacks from
// already-cancelled operations are no-ops.
func (s *SessionController) teardown() {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	monitor := s.monitor
	s.conn = nil
	s.setStateLocked(StateTerminated)
	s.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}
	if s.voice != nil {
		s.voice.StopListening()
		s.voice.CancelSpeech()
	}
	if conn != nil {
		conn.Close()
	}

	s.logger.LogSessionEvent("terminated", StateTerminated, nil)
}

func (s *SessionController) handleUtterance(text string) {
	if err := s.SubmitText(text); err != nil {
		s.logger.WithError(err).Debug("Dropped utterance")
	}
}

// handleSpeechDone resumes capture after a bot utterance, guarded on the
// session still being Active at the completion point.
func (s *SessionController) handleSpeechDone() {
	if s.State() != StateActive {
		return
	}
	if err := s.voice.StartListening(); err != nil {
		s.logger.WithError(err).Debug("Capture did not resume after playback")
	}
}

// setStateLocked transitions state and notifies handlers. Callers hold mu.
func (s *SessionController) setStateLocked(state SessionState) {
	if s.state == state {
		return
	}
	s.state = state
	for _, handler := range s.stateHandlers.snapshot() {
		go handler(state)
	}
}

func (s *SessionController) surfaceError(err *InterviewError) {
	s.logger.LogError(err)

	for _, h := range s.errorHandlers.snapshot() {
		h(err)
	}
}

// AddStateHandler registers a handler for state transitions.
func (s *SessionController) AddStateHandler(handler StateHandler) func() {
	return s.stateHandlers.add(handler)
}

// AddErrorHandler registers a handler for surfaced connection errors.
func (s *SessionController) AddErrorHandler(handler ErrorHandler) func() {
	return s.errorHandlers.add(handler)
}

package interview

// InterviewClient is the top-level facade: it wires the session controller,
// integrity monitor, voice coordinator and transcript into one object and
// exposes the operations a frontend needs.
//
// Sensor capabilities (face detection, raw audio, speech recognition and
// synthesis) are injected; absent ones degrade the corresponding feature
// rather than the client.
type InterviewClient struct {
	config     *Config
	session    *SessionController
	monitor    *IntegrityMonitor
	voice      *VoiceCoordinator
	transcript *Transcript
	logger     *Logger
}

// ClientCapabilities carries the injected sensor and voice implementations.
// Any field may be nil.
type ClientCapabilities struct {
	FaceDetector FaceDetector
	AudioSource  AudioSampleSource
	Recognizer   Recognizer
	Synthesizer  Synthesizer
}

func NewInterviewClient(config *Config, caps ClientCapabilities) *InterviewClient {
	if config == nil {
		config = NewConfig()
	}

	transcript := NewTranscript(config.MaxTranscript)

	var voice *VoiceCoordinator
	if caps.Recognizer != nil && caps.Synthesizer != nil {
		voice = NewVoiceCoordinator(config, caps.Recognizer, caps.Synthesizer)
	}

	session := NewSessionController(config, voice, transcript)
	monitor := NewIntegrityMonitor(config, caps.FaceDetector, caps.AudioSource, session)
	session.SetMonitor(monitor)

	return &InterviewClient{
		config:     config,
		session:    session,
		monitor:    monitor,
		voice:      voice,
		transcript: transcript,
		logger:     GetGlobalLogger().WithComponent("InterviewClient"),
	}
}

// Start begins the interview session.
func (c *InterviewClient) Start() error {
	issues := c.config.Validate()
	if len(issues) > 0 {
		return NewInterviewError(issues[0], ErrCodeConfigInvalid)
	}
	return c.session.Start()
}

// Stop requests a graceful end of the interview.
func (c *InterviewClient) Stop() error {
	return c.session.Stop()
}

// Close tears the session down immediately.
func (c *InterviewClient) Close() {
	c.session.Close()
}

// SubmitText sends a typed candidate response.
func (c *InterviewClient) SubmitText(text string) error {
	return c.session.SubmitText(text)
}

// RecordKeystroke feeds one keystroke into the typing channel.
func (c *InterviewClient) RecordKeystroke(key string) {
	c.session.RecordKeystroke(key)
}

// ToggleVoiceInput flips speech capture on or off.
func (c *InterviewClient) ToggleVoiceInput() {
	c.session.ToggleVoiceInput()
}

// State returns the current session state.
func (c *InterviewClient) State() SessionState {
	return c.session.State()
}

// SessionID returns the session identifier.
func (c *InterviewClient) SessionID() string {
	return c.session.ID()
}

// Transcript returns the conversation history.
func (c *InterviewClient) Transcript() []TranscriptEntry {
	return c.transcript.History()
}

// ChannelStatus returns the debounced level for a monitoring channel.
func (c *InterviewClient) ChannelStatus(channel Channel) Level {
	return c.monitor.Status(channel)
}

// MonitoringEnabled reports whether integrity monitoring is on.
func (c *InterviewClient) MonitoringEnabled() bool {
	return c.monitor.Enabled()
}

// AddTranscriptHandler registers a handler for new transcript entries.
func (c *InterviewClient) AddTranscriptHandler(handler TranscriptHandler) func() {
	return c.transcript.AddHandler(handler)
}

// AddSignalHandler registers a handler for debounced monitoring signals.
func (c *InterviewClient) AddSignalHandler(handler SignalHandler) func() {
	return c.monitor.AddSignalHandler(handler)
}

// AddWarningHandler registers a handler for raised warnings.
func (c *InterviewClient) AddWarningHandler(handler WarningHandler) func() {
	return c.monitor.AddWarningHandler(handler)
}

// AddDismissHandler registers a handler for expired warnings.
func (c *InterviewClient) AddDismissHandler(handler WarningHandler) func() {
	return c.monitor.AddDismissHandler(handler)
}

// AddStateHandler registers a handler for session state transitions.
func (c *InterviewClient) AddStateHandler(handler StateHandler) func() {
	return c.session.AddStateHandler(handler)
}

// AddErrorHandler registers a handler for surfaced errors from the session
// and the voice path.
func (c *InterviewClient) AddErrorHandler(handler ErrorHandler) func() {
	unsubSession := c.session.AddErrorHandler(handler)
	if c.voice == nil {
		return unsubSession
	}
	unsubVoice := c.voice.AddErrorHandler(handler)
	return func() {
		unsubSession()
		unsubVoice()
	}
}

package interview

import (
	"context"
	"sync"
	"time"
)

// FaceDetector is the injected face-detection capability. Implementations
// return every face found in the current camera frame.
type FaceDetector interface {
	DetectFaces() ([]FaceDetection, error)
}

// AudioSampleSource is the injected raw audio capability. Implementations
// return the most recent time-domain sample buffer.
type AudioSampleSource interface {
	ReadSamples() ([]float32, error)
}

// EnvelopeSender delivers envelopes to the interview server. The session
// controller implements it over the live connection.
type EnvelopeSender interface {
	SendEnvelope(env Envelope) error
}

// IntegrityMonitor runs the periodic sampling cadence, debounces per-channel
// status, raises warning events, and owns the keystroke rolling buffer.
//
// Statuses are debounced: a sample that re-produces the current level for its
// channel emits nothing. A level change always emits a signal, and a change
// into warning or error additionally raises a WarningEvent that auto-dismisses
// after the configured visibility window.
type IntegrityMonitor struct {
	detector FaceDetector
	audio    AudioSampleSource
	sender   EnvelopeSender
	logger   *Logger

	enabled           bool
	sampleInterval    time.Duration
	warningVisibility time.Duration

	mu              sync.Mutex
	running         bool
	cancel          context.CancelFunc
	status          map[Channel]Level
	keystrokes      []KeystrokeEvent
	lastKeystrokeAt time.Time
	lastVideoCheck  time.Time
	lastAudioCheck  time.Time

	signalHandlers  handlerRegistry[MonitorSignal]
	warningHandlers handlerRegistry[WarningEvent]
	dismissHandlers handlerRegistry[WarningEvent]
}

func NewIntegrityMonitor(config *Config, detector FaceDetector, audio AudioSampleSource, sender EnvelopeSender) *IntegrityMonitor {
	if config == nil {
		config = NewConfig()
	}
	return &IntegrityMonitor{
		detector:          detector,
		audio:             audio,
		sender:            sender,
		logger:            GetGlobalLogger().WithComponent("IntegrityMonitor"),
		enabled:           config.MonitorEnabled,
		sampleInterval:    config.SampleInterval,
		warningVisibility: config.WarningVisibility,
		status:            make(map[Channel]Level),
		keystrokes:        make([]KeystrokeEvent, 0),
		lastKeystrokeAt:   time.Now(),
	}
}

// Enabled reports whether monitoring is active as a capability.
func (m *IntegrityMonitor) Enabled() bool {
	return m.enabled
}

// Start launches the sampling loop. It is a no-op when monitoring is
// disabled or the loop is already running.
func (m *IntegrityMonitor) Start() {
	if !m.enabled {
		m.logger.Info("Monitoring disabled, sampling loop not started")
		return
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	go m.sampleLoop(ctx)
	m.logger.WithField("interval", m.sampleInterval.String()).Info("Sampling loop started")
}

// Stop cancels the sampling loop. Idempotent; already-scheduled callbacks
// become no-ops.
func (m *IntegrityMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	m.cancel()
	m.logger.Info("Sampling loop stopped")
}

func (m *IntegrityMonitor) sampleLoop(ctx context.Context) {
	ticker := time.NewTicker(m.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The loop's own ticks ARE the cadence; they bypass the
			// rate-limit guard so ticker jitter never drops a sample.
			m.checkVideo()
			m.checkAudio()
			m.FlushTyping()
		}
	}
}

// CheckVideo samples the face detector once. External calls arriving faster
// than the sampling cadence are no-ops; the loop's own ticks are never
// throttled. A detector failure degrades to an error-level face signal,
// never a crash.
func (m *IntegrityMonitor) CheckVideo() {
	m.mu.Lock()
	if time.Since(m.lastVideoCheck) < m.sampleInterval {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.checkVideo()
}

func (m *IntegrityMonitor) checkVideo() {
	if !m.enabled || m.detector == nil {
		return
	}

	m.mu.Lock()
	m.lastVideoCheck = time.Now()
	m.mu.Unlock()

	faces, err := m.detector.DetectFaces()
	if err != nil {
		m.logger.WithError(err).Error("Face detection failed")
		m.updateStatus(MonitorSignal{Channel: ChannelFace, Level: LevelError, Detail: DetailVideoFailure})
		return
	}

	m.updateStatus(ClassifyFace(faces))

	lookingAway := len(faces) > 0 && IsLookingAway(faces[0])
	m.send(NewVideoFrame(len(faces), lookingAway))
}

// CheckAudio samples the audio source once, with the same rate limiting and
// degradation rules as CheckVideo.
func (m *IntegrityMonitor) CheckAudio() {
	m.mu.Lock()
	if time.Since(m.lastAudioCheck) < m.sampleInterval {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.checkAudio()
}

func (m *IntegrityMonitor) checkAudio() {
	if !m.enabled || m.audio == nil {
		return
	}

	m.mu.Lock()
	m.lastAudioCheck = time.Now()
	m.mu.Unlock()

	samples, err := m.audio.ReadSamples()
	if err != nil {
		m.logger.WithError(err).Error("Audio sampling failed")
		m.updateStatus(MonitorSignal{Channel: ChannelAudio, Level: LevelError, Detail: DetailAudioFailure})
		return
	}

	m.updateStatus(ClassifyAudio(samples))
	m.send(NewAudioData(EstimateVoiceCount(samples), DetectBackgroundSpeech(samples)))
}

// RecordKeystroke appends one keystroke to the rolling buffer with its delta
// from the previous keystroke, and classifies the typing channel.
func (m *IntegrityMonitor) RecordKeystroke(key string) {
	if !m.enabled {
		return
	}

	now := time.Now()

	m.mu.Lock()
	delta := now.Sub(m.lastKeystrokeAt).Milliseconds()
	m.lastKeystrokeAt = now
	m.keystrokes = append(m.keystrokes, KeystrokeEvent{
		Key:         key,
		TimestampMs: now.UnixMilli(),
		DeltaMs:     delta,
	})
	buffer := append([]KeystrokeEvent(nil), m.keystrokes...)
	m.mu.Unlock()

	m.updateStatus(ClassifyTyping(delta, buffer))
}

// FlushTyping sends the whole keystroke buffer as one typing_data envelope
// and clears it. At most one flush happens per tick, never a partial one.
func (m *IntegrityMonitor) FlushTyping() {
	m.mu.Lock()
	if len(m.keystrokes) == 0 {
		m.mu.Unlock()
		return
	}
	events := m.keystrokes
	m.keystrokes = make([]KeystrokeEvent, 0)
	m.mu.Unlock()

	m.send(NewTypingData(events))
}

// CheckResponse classifies candidate response speed against the time elapsed
// since the last bot message.
func (m *IntegrityMonitor) CheckResponse(wordCount int, elapsed time.Duration) {
	if !m.enabled {
		return
	}
	m.updateStatus(ClassifyResponse(wordCount, elapsed))
}

// KeystrokeCount returns the current rolling-buffer length.
func (m *IntegrityMonitor) KeystrokeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keystrokes)
}

// Status returns the current debounced level for a channel. Channels that
// have not produced a signal yet report ok.
func (m *IntegrityMonitor) Status(channel Channel) Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	if level, ok := m.status[channel]; ok {
		return level
	}
	return LevelOK
}

func (m *IntegrityMonitor) updateStatus(signal MonitorSignal) {
	m.mu.Lock()
	if current, ok := m.status[signal.Channel]; ok && current == signal.Level {
		m.mu.Unlock()
		return
	}
	m.status[signal.Channel] = signal.Level
	m.mu.Unlock()

	m.logger.LogSignalEvent(signal)

	for _, h := range m.signalHandlers.snapshot() {
		h(signal)
	}

	if signal.Level == LevelWarning || signal.Level == LevelError {
		event := WarningEvent{
			Channel: signal.Channel,
			Level:   signal.Level,
			Message: signal.Detail,
			At:      time.Now(),
		}
		for _, h := range m.warningHandlers.snapshot() {
			h(event)
		}
		time.AfterFunc(m.warningVisibility, func() {
			m.dismissWarning(event)
		})
	}
}

func (m *IntegrityMonitor) dismissWarning(event WarningEvent) {
	for _, h := range m.dismissHandlers.snapshot() {
		h(event)
	}
}

func (m *IntegrityMonitor) send(env Envelope) {
	if m.sender == nil {
		return
	}
	if err := m.sender.SendEnvelope(env); err != nil {
		m.logger.WithError(err).Debug("Monitor envelope dropped")
	}
}

// AddSignalHandler registers a handler for debounced status changes.
func (m *IntegrityMonitor) AddSignalHandler(handler SignalHandler) func() {
	return m.signalHandlers.add(handler)
}

// AddWarningHandler registers a handler for newly raised warnings.
func (m *IntegrityMonitor) AddWarningHandler(handler WarningHandler) func() {
	return m.warningHandlers.add(handler)
}

// AddDismissHandler registers a handler invoked when a warning's display
// window elapses.
func (m *IntegrityMonitor) AddDismissHandler(handler WarningHandler) func() {
	return m.dismissHandlers.add(handler)
}

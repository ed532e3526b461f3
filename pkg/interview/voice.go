package interview

import (
	"sync"
	"time"
)

// Recognizer is the injected speech-capture capability. Start activates
// continuous capture with interim results; the implementation reports final
// transcripts, errors and unexpected capture end through the coordinator's
// Handle* methods.
type Recognizer interface {
	Start() error
	Stop()
}

// Synthesizer is the injected speech-playback capability. Cancel must
// suppress the completion event of the cancelled utterance; completion of a
// finished utterance is reported through HandleSpeechDone.
type Synthesizer interface {
	Speak(text string) error
	Cancel()
}

// VoiceCoordinator arbitrates exclusive access between speech capture and
// speech playback so the system never transcribes its own synthesized speech.
// The isListening flag is owned here; nothing outside this type mutates it.
type VoiceCoordinator struct {
	recognizer  Recognizer
	synthesizer Synthesizer
	retryDelay  time.Duration
	logger      *Logger

	mu           sync.Mutex
	isListening  bool
	isSpeaking   bool
	retryTimer   *time.Timer
	onUtterance  func(text string)
	onSpeechDone func()

	errorHandlers handlerRegistry[*InterviewError]
}

func NewVoiceCoordinator(config *Config, recognizer Recognizer, synthesizer Synthesizer) *VoiceCoordinator {
	if config == nil {
		config = NewConfig()
	}
	return &VoiceCoordinator{
		recognizer:  recognizer,
		synthesizer: synthesizer,
		retryDelay:  config.RetryDelay,
		logger:      GetGlobalLogger().WithComponent("VoiceCoordinator"),
	}
}

// SetCallbacks wires the session-facing events: a finalized utterance and
// playback completion.
func (v *VoiceCoordinator) SetCallbacks(onUtterance func(text string), onSpeechDone func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onUtterance = onUtterance
	v.onSpeechDone = onSpeechDone
}

// StartListening activates continuous capture. It fails if capture is
// already active or playback is in flight.
func (v *VoiceCoordinator) StartListening() error {
	v.mu.Lock()
	if v.isListening {
		v.mu.Unlock()
		return NewInterviewError("already listening", ErrCodeCaptureBusy)
	}
	if v.isSpeaking {
		v.mu.Unlock()
		return NewInterviewError("playback in progress", ErrCodeCaptureBusy)
	}
	v.isListening = true
	v.mu.Unlock()

	if err := v.recognizer.Start(); err != nil {
		v.mu.Lock()
		v.isListening = false
		v.mu.Unlock()
		return WrapError(err, ErrCodeRecognition)
	}

	v.logger.Debug("Listening started")
	return nil
}

// StopListening deactivates capture. Idempotent: repeated calls when already
// stopped produce no side effects.
func (v *VoiceCoordinator) StopListening() {
	v.mu.Lock()
	if !v.isListening {
		v.mu.Unlock()
		return
	}
	v.isListening = false
	if v.retryTimer != nil {
		v.retryTimer.Stop()
		v.retryTimer = nil
	}
	v.mu.Unlock()

	v.recognizer.Stop()
	v.logger.Debug("Listening stopped")
}

// IsListening reports whether capture is active.
func (v *VoiceCoordinator) IsListening() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isListening
}

// IsSpeaking reports whether playback is in flight.
func (v *VoiceCoordinator) IsSpeaking() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isSpeaking
}

// HandleFinalTranscript is called by the recognizer when an utterance is
// finalized. Capture stops and does not resume until the next bot utterance
// completes; the text is surfaced to the session.
func (v *VoiceCoordinator) HandleFinalTranscript(text string) {
	if text == "" {
		return
	}

	v.StopListening()

	v.mu.Lock()
	callback := v.onUtterance
	v.mu.Unlock()

	v.logger.WithField("text_length", len(text)).Debug("Utterance finalized")
	if callback != nil {
		callback(text)
	}
}

// HandleRecognitionError is called by the recognizer on a capture failure.
// Transient failures while listening schedule a silent capture retry after
// the configured delay; anything else stops listening and is surfaced.
func (v *VoiceCoordinator) HandleRecognitionError(err *InterviewError) {
	if err == nil {
		return
	}

	if IsTransientRecognitionError(err) {
		v.mu.Lock()
		if !v.isListening {
			v.mu.Unlock()
			return
		}
		if v.retryTimer != nil {
			v.retryTimer.Stop()
		}
		v.retryTimer = time.AfterFunc(v.retryDelay, v.retryCapture)
		v.mu.Unlock()

		v.logger.WithField("code", err.Code).Debug("Transient capture error, retry scheduled")
		return
	}

	v.logger.LogError(err)
	v.StopListening()
	v.surfaceError(err)
}

func (v *VoiceCoordinator) retryCapture() {
	v.mu.Lock()
	if !v.isListening {
		v.mu.Unlock()
		return
	}
	v.retryTimer = nil
	v.mu.Unlock()

	if err := v.recognizer.Start(); err != nil {
		v.logger.WithError(err).Debug("Capture retry failed")
	}
}

// HandleCaptureEnd is called when capture ends on its own. While the flag is
// still set this is a transient condition and capture restarts immediately.
func (v *VoiceCoordinator) HandleCaptureEnd() {
	v.mu.Lock()
	listening := v.isListening
	v.mu.Unlock()

	if !listening {
		return
	}
	if err := v.recognizer.Start(); err != nil {
		v.logger.WithError(err).Debug("Capture restart failed")
	}
}

// Speak cancels any in-flight playback, stops capture for the duration, and
// starts playback of text. A later utterance always preempts an earlier one;
// there is no queue.
func (v *VoiceCoordinator) Speak(text string) error {
	v.synthesizer.Cancel()
	v.StopListening()

	v.mu.Lock()
	v.isSpeaking = true
	v.mu.Unlock()

	if err := v.synthesizer.Speak(text); err != nil {
		v.mu.Lock()
		v.isSpeaking = false
		v.mu.Unlock()
		iErr := WrapError(err, ErrCodeSynthesis)
		v.surfaceError(iErr)
		return iErr
	}

	v.logger.WithField("text_length", len(text)).Debug("Playback started")
	return nil
}

// HandleSpeechDone is called by the synthesizer when playback of an
// uncancelled utterance completes. Completion events arriving after a cancel
// are no-ops.
func (v *VoiceCoordinator) HandleSpeechDone() {
	v.mu.Lock()
	if !v.isSpeaking {
		v.mu.Unlock()
		return
	}
	v.isSpeaking = false
	callback := v.onSpeechDone
	v.mu.Unlock()

	v.logger.Debug("Playback completed")
	if callback != nil {
		callback()
	}
}

// CancelSpeech stops in-flight playback without waiting. Used on teardown.
func (v *VoiceCoordinator) CancelSpeech() {
	v.mu.Lock()
	v.isSpeaking = false
	v.mu.Unlock()
	v.synthesizer.Cancel()
}

// AddErrorHandler registers a handler for surfaced capture/playback errors.
func (v *VoiceCoordinator) AddErrorHandler(handler ErrorHandler) func() {
	return v.errorHandlers.add(handler)
}

func (v *VoiceCoordinator) surfaceError(err *InterviewError) {
	for _, h := range v.errorHandlers.snapshot() {
		h(err)
	}
}

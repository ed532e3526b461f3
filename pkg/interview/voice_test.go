package interview

import (
	"sync"
	"testing"
	"time"
)

type fakeRecognizer struct {
	mu         sync.Mutex
	startCalls int
	stopCalls  int
	startErr   error
}

func (r *fakeRecognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startCalls++
	return r.startErr
}

func (r *fakeRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCalls++
}

func (r *fakeRecognizer) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startCalls, r.stopCalls
}

type fakeSynthesizer struct {
	mu          sync.Mutex
	spoken      []string
	cancelCalls int
	speakErr    error
}

func (s *fakeSynthesizer) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return s.speakErr
}

func (s *fakeSynthesizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCalls++
}

func voiceTestConfig() *Config {
	return &Config{RetryDelay: 10 * time.Millisecond}
}

func newTestCoordinator() (*VoiceCoordinator, *fakeRecognizer, *fakeSynthesizer) {
	recognizer := &fakeRecognizer{}
	synthesizer := &fakeSynthesizer{}
	return NewVoiceCoordinator(voiceTestConfig(), recognizer, synthesizer), recognizer, synthesizer
}

func TestStartListeningIsExclusive(t *testing.T) {
	voice, recognizer, _ := newTestCoordinator()

	if err := voice.StartListening(); err != nil {
		t.Fatalf("first StartListening failed: %v", err)
	}
	if !voice.IsListening() {
		t.Fatal("IsListening = false after start")
	}

	err := voice.StartListening()
	if err == nil || !IsErrorCode(err.(*InterviewError), ErrCodeCaptureBusy) {
		t.Errorf("second StartListening error = %v, want %s", err, ErrCodeCaptureBusy)
	}

	starts, _ := recognizer.counts()
	if starts != 1 {
		t.Errorf("recognizer started %d times, want 1", starts)
	}
}

func TestStopListeningIdempotent(t *testing.T) {
	voice, recognizer, _ := newTestCoordinator()

	if err := voice.StartListening(); err != nil {
		t.Fatalf("StartListening failed: %v", err)
	}
	voice.StopListening()
	voice.StopListening()
	voice.StopListening()

	_, stops := recognizer.counts()
	if stops != 1 {
		t.Errorf("recognizer stopped %d times, want 1", stops)
	}
	if voice.IsListening() {
		t.Error("IsListening = true after stop")
	}
}

func TestSpeakSuspendsCapture(t *testing.T) {
	voice, _, synthesizer := newTestCoordinator()

	if err := voice.StartListening(); err != nil {
		t.Fatalf("StartListening failed: %v", err)
	}
	if err := voice.Speak("Tell me about a project you are proud of."); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	if voice.IsListening() {
		t.Error("capture still active during playback")
	}
	if !voice.IsSpeaking() {
		t.Error("IsSpeaking = false during playback")
	}

	err := voice.StartListening()
	if err == nil || !IsErrorCode(err.(*InterviewError), ErrCodeCaptureBusy) {
		t.Errorf("StartListening during playback = %v, want %s", err, ErrCodeCaptureBusy)
	}

	synthesizer.mu.Lock()
	spoken := len(synthesizer.spoken)
	synthesizer.mu.Unlock()
	if spoken != 1 {
		t.Errorf("synthesizer spoke %d times, want 1", spoken)
	}
}

func TestSpeakPreemptsEarlierUtterance(t *testing.T) {
	voice, _, synthesizer := newTestCoordinator()

	if err := voice.Speak("first"); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if err := voice.Speak("second"); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	synthesizer.mu.Lock()
	cancels := synthesizer.cancelCalls
	synthesizer.mu.Unlock()
	if cancels < 2 {
		t.Errorf("cancel called %d times, want at least 2 (once per Speak)", cancels)
	}
}

func TestHandleSpeechDoneRunsCallbackOnce(t *testing.T) {
	voice, _, _ := newTestCoordinator()

	done := 0
	voice.SetCallbacks(nil, func() { done++ })

	if err := voice.Speak("question"); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	voice.HandleSpeechDone()
	voice.HandleSpeechDone() // stale completion is a no-op

	if done != 1 {
		t.Errorf("speech-done callback ran %d times, want 1", done)
	}
	if voice.IsSpeaking() {
		t.Error("IsSpeaking = true after completion")
	}
}

func TestCancelledSpeechSuppressesCompletion(t *testing.T) {
	voice, _, _ := newTestCoordinator()

	done := 0
	voice.SetCallbacks(nil, func() { done++ })

	if err := voice.Speak("question"); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	voice.CancelSpeech()
	voice.HandleSpeechDone()

	if done != 0 {
		t.Errorf("callback ran %d times after cancel, want 0", done)
	}
}

func TestFinalTranscriptStopsCaptureAndSurfacesText(t *testing.T) {
	voice, _, _ := newTestCoordinator()

	var utterances []string
	voice.SetCallbacks(func(text string) { utterances = append(utterances, text) }, nil)

	if err := voice.StartListening(); err != nil {
		t.Fatalf("StartListening failed: %v", err)
	}

	voice.HandleFinalTranscript("") // empty results are dropped
	voice.HandleFinalTranscript("I would start with the schema.")

	if voice.IsListening() {
		t.Error("capture still active after final transcript")
	}
	if len(utterances) != 1 || utterances[0] != "I would start with the schema." {
		t.Errorf("utterances = %v", utterances)
	}
}

func TestTransientRecognitionErrorRetries(t *testing.T) {
	voice, recognizer, _ := newTestCoordinator()

	if err := voice.StartListening(); err != nil {
		t.Fatalf("StartListening failed: %v", err)
	}

	voice.HandleRecognitionError(NewInterviewError("no speech", ErrCodeNoSpeech))

	if !voice.IsListening() {
		t.Fatal("transient error must not stop listening")
	}

	deadline := time.Now().Add(time.Second)
	for {
		starts, _ := recognizer.counts()
		if starts >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("capture was never retried after transient error")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNonTransientRecognitionErrorSurfaces(t *testing.T) {
	voice, _, _ := newTestCoordinator()

	surfaced := make(chan *InterviewError, 1)
	voice.AddErrorHandler(func(err *InterviewError) { surfaced <- err })

	if err := voice.StartListening(); err != nil {
		t.Fatalf("StartListening failed: %v", err)
	}

	voice.HandleRecognitionError(NewPermissionError("microphone denied"))

	if voice.IsListening() {
		t.Error("fatal recognition error must stop listening")
	}
	select {
	case err := <-surfaced:
		if !IsErrorCode(err, ErrCodePermission) {
			t.Errorf("surfaced code = %s, want %s", err.Code, ErrCodePermission)
		}
	case <-time.After(time.Second):
		t.Fatal("error was never surfaced")
	}
}

func TestRetryAfterStopIsNoop(t *testing.T) {
	voice, recognizer, _ := newTestCoordinator()

	if err := voice.StartListening(); err != nil {
		t.Fatalf("StartListening failed: %v", err)
	}

	voice.HandleRecognitionError(NewInterviewError("no speech", ErrCodeNoSpeech))
	voice.StopListening()

	time.Sleep(50 * time.Millisecond)

	starts, _ := recognizer.counts()
	if starts != 1 {
		t.Errorf("recognizer started %d times, want 1 (retry cancelled by stop)", starts)
	}
}

func TestCaptureEndRestartsWhileListening(t *testing.T) {
	voice, recognizer, _ := newTestCoordinator()

	if err := voice.StartListening(); err != nil {
		t.Fatalf("StartListening failed: %v", err)
	}

	voice.HandleCaptureEnd()

	starts, _ := recognizer.counts()
	if starts != 2 {
		t.Errorf("recognizer started %d times, want 2 (immediate restart)", starts)
	}

	voice.StopListening()
	voice.HandleCaptureEnd()

	starts, _ = recognizer.counts()
	if starts != 2 {
		t.Errorf("recognizer started %d times after stop, want 2", starts)
	}
}

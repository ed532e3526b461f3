package interview

import "time"

// Result types for error handling
type Result[T any] struct {
	Data    T
	Error   *InterviewError
	Success bool
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Data: data, Success: true}
}

func Err[T any](err *InterviewError) Result[T] {
	return Result[T]{Error: err, Success: false}
}

// ValidatedApiKey is a type alias for string
type ValidatedApiKey string

// SessionToken struct
type SessionToken struct {
	Token     string
	ExpiresAt int64 // Unix timestamp in milliseconds
}

// SessionState enum
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateConnecting SessionState = "connecting"
	StateActive     SessionState = "active"
	StateEnding     SessionState = "ending"
	StateTerminated SessionState = "terminated"
)

// Channel identifies one of the four monitored signal sources.
type Channel string

const (
	ChannelFace     Channel = "face"
	ChannelAudio    Channel = "audio"
	ChannelTyping   Channel = "typing"
	ChannelResponse Channel = "response"
)

// Level is the tri-level classification result for a channel.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// MonitorSignal is one classification result for one channel sample.
// It is ephemeral: produced by the classifiers, consumed by the monitor.
type MonitorSignal struct {
	Channel Channel
	Level   Level
	Detail  string
}

// KeystrokeEvent is one recorded keystroke with its inter-key delta.
type KeystrokeEvent struct {
	Key         string `json:"key"`
	TimestampMs int64  `json:"timestampMs"`
	DeltaMs     int64  `json:"deltaMsSincePrevious"`
}

// WarningEvent is the UI-facing event derived from a warning/error signal.
// Its display lifetime is independent of the signal that created it.
type WarningEvent struct {
	Channel Channel
	Level   Level
	Message string
	At      time.Time
}

// Box is a face bounding box in frame coordinates.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Point is one landmark position.
type Point struct {
	X float64
	Y float64
}

// FaceDetection is one detected face as returned by the face-detection
// capability: bounding box, landmark points and expression scores.
type FaceDetection struct {
	Box         Box
	Landmarks   []Point
	Expressions map[string]float64
}

// Role tags a transcript entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleBot   Role = "bot"
	RoleError Role = "error"
)

// TranscriptEntry is one line of the session transcript.
type TranscriptEntry struct {
	Role Role
	Text string
	At   time.Time
}

// InterviewError struct
type InterviewError struct {
	Message   string
	Code      string
	Timestamp float64
	err       error
	Details   map[string]interface{} // Additional details about the error
}

func (e *InterviewError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.Message
}

func NewInterviewError(message, code string) *InterviewError {
	return &InterviewError{
		Message:   message,
		Code:      code,
		Timestamp: float64(time.Now().UnixMilli()),
	}
}

// Handler types
type SignalHandler func(MonitorSignal)
type WarningHandler func(WarningEvent)
type TranscriptHandler func(TranscriptEntry)
type StateHandler func(SessionState)
type ErrorHandler func(*InterviewError)

package interview

// Error codes as constants
const (
	ErrCodeConnectionFailed = "CONNECTION_FAILED"
	ErrCodeWebSocket        = "WEBSOCKET_ERROR"
	ErrCodeDecode           = "DECODE_ERROR"
	ErrCodeNotConnected     = "NOT_CONNECTED"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeInputDisabled    = "INPUT_DISABLED"
	ErrCodeCaptureBusy      = "CAPTURE_BUSY"
	ErrCodeNoSpeech         = "RECOGNITION_NO_SPEECH"
	ErrCodeAudioCapture     = "RECOGNITION_AUDIO_CAPTURE"
	ErrCodeNetwork          = "RECOGNITION_NETWORK"
	ErrCodeRecognition      = "RECOGNITION_FAILED"
	ErrCodeSynthesis        = "SYNTHESIS_FAILED"
	ErrCodeSensorRead       = "SENSOR_READ_ERROR"
	ErrCodePermission       = "PERMISSION_DENIED"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeJSONParse        = "JSON_PARSE_ERROR"
	ErrCodeUnknown          = "UNKNOWN_ERROR"
	ErrCodeTimeout          = "TIMEOUT_ERROR"
)

// Specific error creators with common codes
func NewConnectionError(message string) *InterviewError {
	return NewInterviewError(message, ErrCodeConnectionFailed)
}

func NewWebSocketError(message string) *InterviewError {
	return NewInterviewError(message, ErrCodeWebSocket)
}

func NewRecognitionError(message, code string) *InterviewError {
	return NewInterviewError(message, code)
}

func NewSynthesisError(message string) *InterviewError {
	return NewInterviewError(message, ErrCodeSynthesis)
}

func NewSensorError(message string, channel Channel) *InterviewError {
	return NewInterviewError(message, ErrCodeSensorRead).AddDetail("channel", string(channel))
}

func NewPermissionError(message string) *InterviewError {
	return NewInterviewError(message, ErrCodePermission)
}

func NewConfigError(message string) *InterviewError {
	return NewInterviewError(message, ErrCodeConfigInvalid)
}

func NewAuthError(message string) *InterviewError {
	return NewInterviewError(message, ErrCodeAuthFailed)
}

// Helper to wrap any error as InterviewError
func WrapError(err error, code string) *InterviewError {
	if err == nil {
		return nil
	}
	iErr := NewInterviewError(err.Error(), code)
	iErr.AddDetail("original_error", err.Error())
	return iErr
}

// Helper to check if error has specific code
func IsErrorCode(err *InterviewError, code string) bool {
	if err == nil {
		return false
	}
	return err.Code == code
}

// Helper to add details to existing InterviewError
func (e *InterviewError) AddDetail(key string, value interface{}) *InterviewError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Helper to get error details
func (e *InterviewError) GetDetail(key string) (interface{}, bool) {
	if e.Details == nil {
		return nil, false
	}
	value, exists := e.Details[key]
	return value, exists
}

// IsTransientRecognitionError reports whether a recognition failure should be
// retried silently instead of being surfaced to the user.
func IsTransientRecognitionError(err *InterviewError) bool {
	if err == nil {
		return false
	}
	transientCodes := []string{
		ErrCodeNoSpeech,
		ErrCodeAudioCapture,
		ErrCodeNetwork,
	}
	for _, code := range transientCodes {
		if err.Code == code {
			return true
		}
	}
	return false
}

// IsFatalSessionError reports whether an error should end the session rather
// than be absorbed. Everything else degrades to signals or transcript entries.
func IsFatalSessionError(err *InterviewError) bool {
	if err == nil {
		return false
	}
	fatalCodes := []string{
		ErrCodePermission,
		ErrCodeAuthFailed,
		ErrCodeConfigInvalid,
	}
	for _, code := range fatalCodes {
		if err.Code == code {
			return true
		}
	}
	return false
}

package interview

import (
	"encoding/json"
	"fmt"
)

// MessageType enumerates the closed set of envelope types.
type MessageType string

const (
	TypeBotResponse  MessageType = "bot_response"
	TypeError        MessageType = "error"
	TypeUserResponse MessageType = "user_response"
	TypeVideoFrame   MessageType = "video_frame"
	TypeAudioData    MessageType = "audio_data"
	TypeTypingData   MessageType = "typing_data"
)

// VideoFramePayload summarizes one sampled camera frame.
type VideoFramePayload struct {
	FaceCount   int  `json:"face_count"`
	LookingAway bool `json:"looking_away"`
}

// AudioDataPayload summarizes one sampled microphone buffer.
type AudioDataPayload struct {
	VoiceCount       int  `json:"voice_count"`
	BackgroundSpeech bool `json:"background_speech"`
}

// TypingDataPayload carries one flushed keystroke buffer.
type TypingDataPayload struct {
	Events []KeystrokeEvent `json:"events"`
}

// Envelope is one typed message unit exchanged over the duplex connection.
// Text types carry Text; sensor types carry exactly one payload pointer.
// An envelope decoded from an unrecognized wire type has only Type set and
// Known() == false; the dispatcher drops it without closing the connection.
type Envelope struct {
	Type       MessageType
	Text       string
	VideoFrame *VideoFramePayload
	AudioData  *AudioDataPayload
	TypingData *TypingDataPayload
}

// Known reports whether the envelope type belongs to the closed set.
func (e Envelope) Known() bool {
	switch e.Type {
	case TypeBotResponse, TypeError, TypeUserResponse, TypeVideoFrame, TypeAudioData, TypeTypingData:
		return true
	}
	return false
}

// DecodeError describes a frame that could not be decoded. The caller must
// log and drop the frame; it never justifies closing the connection.
type DecodeError struct {
	Reason string
	Frame  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed: %s", e.Reason)
}

// wireEnvelope is the JSON shape on the wire: text messages carry a top-level
// "text" field, sensor messages nest their payload under "data".
type wireEnvelope struct {
	Type string          `json:"type"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode serializes an envelope to one wire frame. It cannot fail for the
// closed type set.
func Encode(env Envelope) []byte {
	wire := wireEnvelope{Type: string(env.Type)}

	switch env.Type {
	case TypeBotResponse, TypeError, TypeUserResponse:
		wire.Text = env.Text
	case TypeVideoFrame:
		if env.VideoFrame != nil {
			wire.Data, _ = json.Marshal(env.VideoFrame)
		}
	case TypeAudioData:
		if env.AudioData != nil {
			wire.Data, _ = json.Marshal(env.AudioData)
		}
	case TypeTypingData:
		if env.TypingData != nil {
			wire.Data, _ = json.Marshal(env.TypingData)
		}
	}

	data, _ := json.Marshal(wire)
	return data
}

// Decode parses one wire frame into an envelope. Malformed JSON or a
// malformed payload for a known type yields a DecodeError. An unrecognized
// type decodes successfully into an envelope the caller is expected to drop.
func Decode(frame []byte) (Envelope, *DecodeError) {
	var wire wireEnvelope
	if err := json.Unmarshal(frame, &wire); err != nil {
		return Envelope{}, &DecodeError{Reason: err.Error(), Frame: string(frame)}
	}
	if wire.Type == "" {
		return Envelope{}, &DecodeError{Reason: "missing type", Frame: string(frame)}
	}

	env := Envelope{Type: MessageType(wire.Type)}

	switch env.Type {
	case TypeBotResponse, TypeError, TypeUserResponse:
		env.Text = wire.Text
	case TypeVideoFrame:
		payload := &VideoFramePayload{}
		if err := unmarshalPayload(wire.Data, payload); err != nil {
			return Envelope{}, &DecodeError{Reason: err.Error(), Frame: string(frame)}
		}
		env.VideoFrame = payload
	case TypeAudioData:
		payload := &AudioDataPayload{}
		if err := unmarshalPayload(wire.Data, payload); err != nil {
			return Envelope{}, &DecodeError{Reason: err.Error(), Frame: string(frame)}
		}
		env.AudioData = payload
	case TypeTypingData:
		payload := &TypingDataPayload{}
		if err := unmarshalPayload(wire.Data, payload); err != nil {
			return Envelope{}, &DecodeError{Reason: err.Error(), Frame: string(frame)}
		}
		env.TypingData = payload
	default:
		// Forward-compatibility: unrecognized types are accepted and the
		// payload is discarded. The dispatcher ignores the envelope.
	}

	return env, nil
}

func unmarshalPayload(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("missing data payload")
	}
	return json.Unmarshal(data, v)
}

// Envelope constructors for the client-to-server types.

func NewUserResponse(text string) Envelope {
	return Envelope{Type: TypeUserResponse, Text: text}
}

func NewVideoFrame(faceCount int, lookingAway bool) Envelope {
	return Envelope{Type: TypeVideoFrame, VideoFrame: &VideoFramePayload{
		FaceCount:   faceCount,
		LookingAway: lookingAway,
	}}
}

func NewAudioData(voiceCount int, backgroundSpeech bool) Envelope {
	return Envelope{Type: TypeAudioData, AudioData: &AudioDataPayload{
		VoiceCount:       voiceCount,
		BackgroundSpeech: backgroundSpeech,
	}}
}

func NewTypingData(events []KeystrokeEvent) Envelope {
	return Envelope{Type: TypeTypingData, TypingData: &TypingDataPayload{Events: events}}
}

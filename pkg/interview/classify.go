package interview

import (
	"math"
	"strings"
	"time"
)

// Classification constants. These thresholds are design constants shared with
// the interview server; they are not tunable at runtime.
const (
	// Face/gaze: outer eye-corner landmark indices in the 68-point layout.
	leftEyeOuterLandmark  = 36
	rightEyeOuterLandmark = 45
	lookAwayRatio         = 0.2

	// Audio: amplitude gates and quantized-bucket thresholds.
	voiceAmplitudeGate      = 0.1
	backgroundAmplitudeGate = 0.05
	backgroundSampleRatio   = 0.3
	threeVoiceBuckets       = 200
	twoVoiceBuckets         = 100

	// Typing.
	fastKeystrokeMs   = 10
	pasteDeltaMs      = 20
	pasteBufferEvents = 50

	// Response latency (words per minute).
	fastResponseWPM  = 200
	quickResponseWPM = 100
)

// Signal detail strings, reproduced exactly for compatibility with the
// existing server and UI expectations.
const (
	DetailNoFace           = "No face detected"
	DetailMultipleFaces    = "Multiple faces detected"
	DetailLookingAway      = "Looking away from camera"
	DetailMultipleVoices   = "Multiple voices detected"
	DetailBackgroundSpeech = "Background conversation detected"
	DetailFastTyping       = "Unusually fast typing detected"
	DetailCopyPaste        = "Potential copy-paste detected"
	DetailFastResponse     = "Suspiciously fast response"
	DetailQuickResponse    = "Unusually quick response"
	DetailVideoFailure     = "Error analyzing video"
	DetailAudioFailure     = "Error analyzing audio"
)

// ClassifyFace classifies one sampled frame of face detections.
func ClassifyFace(faces []FaceDetection) MonitorSignal {
	switch {
	case len(faces) == 0:
		return MonitorSignal{Channel: ChannelFace, Level: LevelError, Detail: DetailNoFace}
	case len(faces) > 1:
		return MonitorSignal{Channel: ChannelFace, Level: LevelError, Detail: DetailMultipleFaces}
	case IsLookingAway(faces[0]):
		return MonitorSignal{Channel: ChannelFace, Level: LevelWarning, Detail: DetailLookingAway}
	}
	return MonitorSignal{Channel: ChannelFace, Level: LevelOK}
}

// IsLookingAway estimates gaze direction from the horizontal distance between
// the outer eye corners relative to face width. A compressed eye span means
// the head is turned away from the camera.
func IsLookingAway(face FaceDetection) bool {
	if len(face.Landmarks) <= rightEyeOuterLandmark {
		return false
	}
	leftEye := face.Landmarks[leftEyeOuterLandmark]
	rightEye := face.Landmarks[rightEyeOuterLandmark]
	ratio := math.Abs(rightEye.X-leftEye.X) / face.Box.Width
	return ratio < lookAwayRatio
}

// ClassifyAudio classifies one time-domain sample buffer.
func ClassifyAudio(samples []float32) MonitorSignal {
	if EstimateVoiceCount(samples) > 1 {
		return MonitorSignal{Channel: ChannelAudio, Level: LevelError, Detail: DetailMultipleVoices}
	}
	if DetectBackgroundSpeech(samples) {
		return MonitorSignal{Channel: ChannelAudio, Level: LevelWarning, Detail: DetailBackgroundSpeech}
	}
	return MonitorSignal{Channel: ChannelAudio, Level: LevelOK}
}

// EstimateVoiceCount counts distinct quantized-amplitude buckets as a crude
// proxy for the number of simultaneous voices in the buffer.
func EstimateVoiceCount(samples []float32) int {
	buckets := make(map[int]struct{})
	for _, s := range samples {
		if math.Abs(float64(s)) > voiceAmplitudeGate {
			buckets[int(math.Round(float64(s)*100))] = struct{}{}
		}
	}

	voices := 1
	if len(buckets) > twoVoiceBuckets {
		voices = 2
	}
	if len(buckets) > threeVoiceBuckets {
		voices = 3
	}
	return voices
}

// DetectBackgroundSpeech reports whether low-level activity covers enough of
// the buffer to suggest a conversation in the background.
func DetectBackgroundSpeech(samples []float32) bool {
	active := 0
	for _, s := range samples {
		if math.Abs(float64(s)) > backgroundAmplitudeGate {
			active++
		}
	}
	return float64(active) > float64(len(samples))*backgroundSampleRatio
}

// ClassifyTyping classifies the most recent inter-keystroke delta against the
// recent keystroke buffer. The buffer is inspected only for the copy-paste
// heuristic; the fast-typing check looks at the single latest delta.
func ClassifyTyping(deltaMs int64, buffer []KeystrokeEvent) MonitorSignal {
	if len(buffer) > pasteBufferEvents && allDeltasBelow(buffer, pasteDeltaMs) {
		return MonitorSignal{Channel: ChannelTyping, Level: LevelError, Detail: DetailCopyPaste}
	}
	if deltaMs < fastKeystrokeMs {
		return MonitorSignal{Channel: ChannelTyping, Level: LevelWarning, Detail: DetailFastTyping}
	}
	return MonitorSignal{Channel: ChannelTyping, Level: LevelOK}
}

func allDeltasBelow(buffer []KeystrokeEvent, limitMs int64) bool {
	for _, e := range buffer {
		if e.DeltaMs >= limitMs {
			return false
		}
	}
	return true
}

// ClassifyResponse classifies candidate response speed in words per minute,
// measured from the preceding bot message.
func ClassifyResponse(wordCount int, elapsed time.Duration) MonitorSignal {
	wpm := WordsPerMinute(wordCount, elapsed)
	switch {
	case wpm > fastResponseWPM:
		return MonitorSignal{Channel: ChannelResponse, Level: LevelError, Detail: DetailFastResponse}
	case wpm > quickResponseWPM:
		return MonitorSignal{Channel: ChannelResponse, Level: LevelWarning, Detail: DetailQuickResponse}
	}
	return MonitorSignal{Channel: ChannelResponse, Level: LevelOK}
}

// WordsPerMinute converts a word count over an elapsed duration to wpm.
func WordsPerMinute(wordCount int, elapsed time.Duration) float64 {
	return float64(wordCount) / elapsed.Seconds() * 60
}

// CountWords matches the response-speed word counting used by the server:
// a plain split on spaces, so consecutive spaces count as extra words.
func CountWords(text string) int {
	return len(strings.Split(text, " "))
}

package interview

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// MicConfig holds capture-stream settings for the microphone sample source.
type MicConfig struct {
	SampleRate int
	Channels   int
	BufferSize int
}

func NewMicConfig() *MicConfig {
	return &MicConfig{
		SampleRate: 24000,
		Channels:   1,
		BufferSize: 1024,
	}
}

// MicSource is a portaudio-backed AudioSampleSource. The capture callback
// keeps only the most recent buffer; ReadSamples hands that buffer to the
// integrity monitor's sampling cadence.
type MicSource struct {
	config *MicConfig
	logger *Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	latest  []float32
	running bool
}

func NewMicSource(config *MicConfig) *MicSource {
	if config == nil {
		config = NewMicConfig()
	}
	return &MicSource{
		config: config,
		logger: GetGlobalLogger().WithComponent("MicSource"),
	}
}

// Open initializes portaudio and starts the capture stream.
func (ms *MicSource) Open() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		ms.logger.WithError(err).Error("Failed to initialize PortAudio")
		return WrapError(err, ErrCodeAudioCapture)
	}

	stream, err := portaudio.OpenDefaultStream(ms.config.Channels, 0, float64(ms.config.SampleRate), ms.config.BufferSize, func(in []float32) {
		buf := append([]float32(nil), in...)
		ms.mu.Lock()
		ms.latest = buf
		ms.mu.Unlock()
	})
	if err != nil {
		portaudio.Terminate()
		ms.logger.WithError(err).Error("Failed to open capture stream")
		return WrapError(err, ErrCodeAudioCapture)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		ms.logger.WithError(err).Error("Failed to start capture stream")
		return WrapError(err, ErrCodeAudioCapture)
	}

	ms.stream = stream
	ms.running = true
	ms.logger.WithField("sample_rate", ms.config.SampleRate).Info("Microphone sampling started")
	return nil
}

// ReadSamples returns the most recent capture buffer. It implements the
// AudioSampleSource interface.
func (ms *MicSource) ReadSamples() ([]float32, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.running {
		return nil, NewInterviewError("microphone not open", ErrCodeSensorRead)
	}
	if ms.latest == nil {
		return []float32{}, nil
	}
	return ms.latest, nil
}

// Close stops the capture stream and releases portaudio. Idempotent.
func (ms *MicSource) Close() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.running {
		return
	}
	ms.running = false

	if ms.stream != nil {
		if err := ms.stream.Stop(); err != nil {
			ms.logger.WithError(err).Warn("Failed to stop capture stream")
		}
		if err := ms.stream.Close(); err != nil {
			ms.logger.WithError(err).Warn("Failed to close capture stream")
		}
		ms.stream = nil
	}
	ms.latest = nil

	portaudio.Terminate()
	ms.logger.Info("Microphone sampling stopped")
}

// CaptureDevice describes one audio input device.
type CaptureDevice struct {
	ID                int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// ListCaptureDevices enumerates available input devices.
func ListCaptureDevices() ([]CaptureDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, WrapError(err, ErrCodeAudioCapture)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, WrapError(err, ErrCodeSensorRead)
	}

	defaultInput, _ := portaudio.DefaultInputDevice()

	devices := make([]CaptureDevice, 0, len(infos))
	for i, info := range infos {
		if info.MaxInputChannels == 0 {
			continue
		}
		devices = append(devices, CaptureDevice{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			IsDefault:         defaultInput != nil && info.Name == defaultInput.Name,
		})
	}

	return devices, nil
}

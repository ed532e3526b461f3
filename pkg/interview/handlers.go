package interview

import (
	"fmt"
	"log"
	"time"
)

// Factory functions for common handlers
func CreateLoggingSignalHandler(verbose bool) SignalHandler {
	return func(signal MonitorSignal) {
		if verbose {
			log.Printf("Signal: channel=%s level=%s detail=%q at %s", signal.Channel, signal.Level, signal.Detail, time.Now().Format(time.RFC3339))
		} else {
			log.Printf("Signal: %s -> %s", signal.Channel, signal.Level)
		}
	}
}

func CreateWarningBannerHandler(callback func(WarningEvent)) WarningHandler {
	return func(event WarningEvent) {
		icon := "⚠"
		if event.Level == LevelError {
			icon = "✖"
		}
		fmt.Printf("%s  %s\n", icon, event.Message)
		if callback != nil {
			callback(event)
		}
	}
}

func CreateChannelFilterHandler(channel Channel, callback SignalHandler) SignalHandler {
	return func(signal MonitorSignal) {
		if signal.Channel == channel {
			callback(signal)
		}
	}
}

func CreateTranscriptPrinterHandler() TranscriptHandler {
	return func(entry TranscriptEntry) {
		switch entry.Role {
		case RoleBot:
			fmt.Printf("🤖 %s\n", entry.Text)
		case RoleUser:
			fmt.Printf("🗣  %s\n", entry.Text)
		default:
			fmt.Printf("‼  %s\n", entry.Text)
		}
	}
}

func CreateStateLoggingHandler(callback func(SessionState)) StateHandler {
	return func(state SessionState) {
		log.Printf("Session state changed to: %s at %s", state, time.Now().Format(time.RFC3339))
		if callback != nil {
			callback(state)
		}
	}
}

func CreateErrorLoggingHandler(prefix string) ErrorHandler {
	return func(err *InterviewError) {
		if err != nil {
			log.Printf("%s Error: %v", prefix, err.Error())
		}
	}
}

// CombineSignalHandlers runs several handlers as one.
func CombineSignalHandlers(handlers ...SignalHandler) SignalHandler {
	return func(signal MonitorSignal) {
		for _, h := range handlers {
			if h != nil {
				h(signal)
			}
		}
	}
}

// CombineWarningHandlers runs several handlers as one.
func CombineWarningHandlers(handlers ...WarningHandler) WarningHandler {
	return func(event WarningEvent) {
		for _, h := range handlers {
			if h != nil {
				h(event)
			}
		}
	}
}

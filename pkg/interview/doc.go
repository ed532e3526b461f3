// Package interview provides a Go SDK for running voice-driven interview
// sessions against an interview server over WebSocket.
//
// # Overview
//
// The Interview SDK Go provides a complete solution for:
//   - Duplex WebSocket sessions with a clean connect/end lifecycle
//   - Speech capture and playback arbitration (the system never hears itself)
//   - Integrity monitoring of face, audio, typing and response-speed channels
//   - Debounced signals and auto-dismissing warnings
//   - In-memory conversation transcripts
//   - Structured logging with Zerolog
//
// # Quick Start
//
// Basic usage example:
//
//	config := interview.NewConfig()
//	client := interview.NewInterviewClient(config, interview.ClientCapabilities{})
//
//	// Add handlers
//	client.AddTranscriptHandler(interview.CreateTranscriptPrinterHandler())
//	client.AddErrorHandler(interview.CreateErrorLoggingHandler("Main"))
//
//	if err := client.Start(); err != nil {
//		log.Fatal(err)
//	}
//
//	client.SubmitText("Hello, I'm ready to begin.")
//	client.Stop()
//
// # Configuration
//
// Config loads from INTERVIEW_* environment variables (optionally via .env)
// with defaults suitable for a local server:
//
//	config := interview.NewConfig()
//	config.WsEndpoint = "ws://127.0.0.1:5000/ws"
//	config.MonitorEnabled = true
//	config.SampleInterval = time.Second
//
// # Monitoring
//
// When monitoring is enabled the IntegrityMonitor samples the injected face
// detector and audio source once per interval, classifies the readings, sends
// the raw observations to the server, and raises warnings on level changes:
//
//	client.AddWarningHandler(interview.CreateWarningBannerHandler(nil))
//	client.AddSignalHandler(interview.CreateLoggingSignalHandler(true))
//
// # Voice
//
// Speech capture and playback are injected behind the Recognizer and
// Synthesizer interfaces. The VoiceCoordinator guarantees capture is off
// while the bot speaks and resumes it when playback of a bot message ends.
package interview

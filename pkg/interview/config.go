package interview

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds client-wide settings. Values load from the environment
// (INTERVIEW_* variables, optionally via a .env file) with sane defaults.
type Config struct {
	WsEndpoint        string            `json:"ws_endpoint"`
	TokenEndpoint     string            `json:"token_endpoint,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
	UseTokenAuth      bool              `json:"use_token_auth"`
	Language          string            `json:"language"`
	MonitorEnabled    bool              `json:"monitor_enabled"`
	SampleInterval    time.Duration     `json:"sample_interval"`
	WarningVisibility time.Duration     `json:"warning_visibility"`
	RetryDelay        time.Duration     `json:"retry_delay"`
	MaxTranscript     int               `json:"max_transcript"`
	DebugWebsocket    bool              `json:"debug_websocket"`
	LogLevel          string            `json:"log_level"`
	LogFile           string            `json:"log_file,omitempty"`
}

// NewConfig returns a config populated from defaults and the environment.
func NewConfig() *Config {
	c := &Config{
		WsEndpoint:        "ws://127.0.0.1:5000/ws",
		UseTokenAuth:      false,
		Language:          "en-US",
		MonitorEnabled:    true,
		SampleInterval:    time.Second,
		WarningVisibility: 5 * time.Second,
		RetryDelay:        500 * time.Millisecond,
		MaxTranscript:     200,
		LogLevel:          "INFO",
		Headers:           make(map[string]string),
	}

	c.loadFromEnv()

	return c
}

func (c *Config) loadFromEnv() {
	// Load .env if exists
	_ = godotenv.Load()

	if endpoint := os.Getenv("INTERVIEW_WS_ENDPOINT"); endpoint != "" {
		c.WsEndpoint = endpoint
	}

	if endpoint := os.Getenv("INTERVIEW_TOKEN_ENDPOINT"); endpoint != "" {
		c.TokenEndpoint = endpoint
	}

	c.UseTokenAuth = os.Getenv("INTERVIEW_USE_TOKEN_AUTH") == "true"

	if lang := os.Getenv("INTERVIEW_LANGUAGE"); lang != "" {
		c.Language = lang
	}

	// Monitoring is on unless explicitly disabled.
	c.MonitorEnabled = os.Getenv("INTERVIEW_MONITOR") != "false"

	if interval := os.Getenv("INTERVIEW_SAMPLE_INTERVAL_MS"); interval != "" {
		if val, err := strconv.Atoi(interval); err == nil && val > 0 {
			c.SampleInterval = time.Duration(val) * time.Millisecond
		}
	}

	if max := os.Getenv("INTERVIEW_MAX_TRANSCRIPT"); max != "" {
		if val, err := strconv.Atoi(max); err == nil && val > 0 {
			c.MaxTranscript = val
		}
	}

	if level := os.Getenv("INTERVIEW_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}

	c.LogFile = os.Getenv("INTERVIEW_LOG_FILE")
	c.DebugWebsocket = os.Getenv("INTERVIEW_DEBUG_WEBSOCKET") == "true"
}

// Validate returns list of issues
func (c *Config) Validate() []string {
	issues := []string{}

	if !strings.HasPrefix(c.WsEndpoint, "ws") {
		issues = append(issues, "Invalid WebSocket endpoint format")
	}

	if c.UseTokenAuth && c.TokenEndpoint == "" {
		apiKey := os.Getenv("INTERVIEW_API_KEY")
		if apiKey == "" {
			issues = append(issues, "INTERVIEW_API_KEY environment variable not set")
		} else if !strings.HasPrefix(apiKey, apiKeyPrefix) {
			issues = append(issues, fmt.Sprintf("Invalid API key format (should start with '%s')", apiKeyPrefix))
		}
	}

	validLevels := []string{"TRACE", "DEBUG", "INFO", "WARNING", "ERROR"}
	found := false
	for _, level := range validLevels {
		if level == c.LogLevel {
			found = true
			break
		}
	}
	if !found {
		issues = append(issues, fmt.Sprintf("Invalid log level: %s", c.LogLevel))
	}

	if c.SampleInterval <= 0 {
		issues = append(issues, "Sample interval must be positive")
	}
	if c.WarningVisibility <= 0 {
		issues = append(issues, "Warning visibility must be positive")
	}

	return issues
}

// LoggerLevel maps the configured level name to a LogLevel.
func (c *Config) LoggerLevel() LogLevel {
	switch c.LogLevel {
	case "TRACE":
		return TraceLevel
	case "DEBUG":
		return DebugLevel
	case "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (c *Config) PrintConfig() {
	fmt.Println("🎙  Interview SDK Configuration")
	fmt.Println("==================================================")
	fmt.Printf("WebSocket Endpoint: %s\n", c.WsEndpoint)
	if c.TokenEndpoint != "" {
		fmt.Printf("Token Endpoint: %s\n", c.TokenEndpoint)
	}
	fmt.Printf("Use Token Auth: %t\n", c.UseTokenAuth)
	fmt.Printf("Language: %s\n", c.Language)
	fmt.Printf("Monitoring Enabled: %t\n", c.MonitorEnabled)
	fmt.Printf("Sample Interval: %s\n", c.SampleInterval)
	fmt.Printf("Warning Visibility: %s\n", c.WarningVisibility)
	fmt.Printf("Capture Retry Delay: %s\n", c.RetryDelay)
	fmt.Printf("Max Transcript Entries: %d\n", c.MaxTranscript)
	fmt.Printf("Log Level: %s\n", c.LogLevel)
	if c.LogFile != "" {
		fmt.Printf("Log File: %s\n", c.LogFile)
	}
	fmt.Printf("Debug WebSocket: %t\n", c.DebugWebsocket)
}

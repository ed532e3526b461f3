package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rojolang/interview-sdk-go/pkg/interview"
)

var (
	verbose   bool
	endpoint  string
	noMonitor bool
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "interview",
		Short: "Interview SDK Go CLI",
		Long:  "A command-line interface for the Interview SDK Go library",
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "WebSocket endpoint URL")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(devicesCmd())

	if err := rootCmd.Execute(); err != nil {
		interview.GetGlobalLogger().WithError(err).Fatal("CLI execution failed")
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interview session",
		Long:  "Connect to the interview server and run a text-driven session from the terminal",
		Run: func(cmd *cobra.Command, args []string) {
			config := interview.NewConfig()
			if endpoint != "" {
				config.WsEndpoint = endpoint
			}
			if noMonitor {
				config.MonitorEnabled = false
			}
			if verbose {
				config.LogLevel = "DEBUG"
				config.DebugWebsocket = true
			}

			caps := interview.ClientCapabilities{}
			if config.MonitorEnabled {
				mic := interview.NewMicSource(nil)
				if err := mic.Open(); err != nil {
					interview.GetGlobalLogger().WithError(err).Warn("Microphone unavailable, audio channel disabled")
				} else {
					caps.AudioSource = mic
					defer mic.Close()
				}
			}

			client := interview.NewInterviewClient(config, caps)

			client.AddTranscriptHandler(interview.CreateTranscriptPrinterHandler())
			client.AddWarningHandler(interview.CreateWarningBannerHandler(nil))
			client.AddErrorHandler(interview.CreateErrorLoggingHandler("Session"))
			if verbose {
				client.AddSignalHandler(interview.CreateLoggingSignalHandler(true))
				client.AddStateHandler(interview.CreateStateLoggingHandler(nil))
			}

			if err := client.Start(); err != nil {
				interview.GetGlobalLogger().WithError(err).Fatal("Failed to start session")
			}
			fmt.Printf("Session %s started. Type responses, or /stop to end.\n", client.SessionID())

			done := make(chan struct{})
			var closeDone sync.Once
			finish := func() { closeDone.Do(func() { close(done) }) }

			go func() {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
				<-sig
				client.Close()
				finish()
			}()

			go func() {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line == "" {
						continue
					}
					if line == "/stop" {
						if err := client.Stop(); err != nil {
							interview.GetGlobalLogger().WithError(err).Warn("Stop failed")
						}
						continue
					}
					for _, r := range line {
						client.RecordKeystroke(string(r))
					}
					if err := client.SubmitText(line); err != nil {
						fmt.Printf("‼  %v\n", err)
					}
				}
			}()

			unsubscribe := client.AddStateHandler(func(state interview.SessionState) {
				if state == interview.StateTerminated {
					finish()
				}
			})
			defer unsubscribe()

			<-done
			fmt.Println("Session ended.")
		},
	}

	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "Disable integrity monitoring")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			config := interview.NewConfig()
			if endpoint != "" {
				config.WsEndpoint = endpoint
			}
			config.PrintConfig()

			issues := config.Validate()
			if len(issues) == 0 {
				fmt.Println("\nConfiguration OK")
				return
			}
			fmt.Println("\nIssues:")
			for _, issue := range issues {
				fmt.Printf("  - %s\n", issue)
			}
		},
	}
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		Run: func(cmd *cobra.Command, args []string) {
			devices, err := interview.ListCaptureDevices()
			if err != nil {
				interview.GetGlobalLogger().WithError(err).Fatal("Failed to list devices")
			}

			if len(devices) == 0 {
				fmt.Println("No capture devices found")
				return
			}

			for _, device := range devices {
				marker := " "
				if device.IsDefault {
					marker = "*"
				}
				fmt.Printf("%s [%d] %s (channels=%d, rate=%.0f)\n",
					marker, device.ID, device.Name, device.MaxInputChannels, device.DefaultSampleRate)
			}
		},
	}
}

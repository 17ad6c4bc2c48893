package testevents

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/mlunde/adventpace/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "webhook_test_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the webhook test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Adventpace Webhook Test Tool
============================

A concurrent tool for load-testing the webhook intake and
reconciliation path of a running adventpace service.

Usage:
  go run cmd/test-events/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -secret string
        Webhook signing secret; must match the service configuration
  -events int
        Number of webhook events to generate and submit (default 1000)
  -athletes int
        Number of distinct athlete ids to spread events over (default 25)
  -standings int
        Number of standings rows to fetch after the run (default 50)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated events (default: generated_events_TIMESTAMP.json)
  -log string
        Log file for test output (default: webhook_test_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings against a local service
  go run cmd/test-events/main.go -secret hunter2

  # Heavier run with custom parameters
  go run cmd/test-events/main.go -secret hunter2 -events 50000 -workers 16

  # Test with verbose output and a custom log file
  go run cmd/test-events/main.go -secret hunter2 -verbose -log my_test.log
`)
}

package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/mlunde/adventpace/internal/testevents"
)

// Default configuration constants.
const (
	defaultNumEvents   = 1000
	defaultNumAthletes = 25
	defaultStandings   = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		secret      = flag.String("secret", "", "Webhook signing secret")
		numEvents   = flag.Int("events", defaultNumEvents, "Number of webhook events to generate and submit")
		numAthletes = flag.Int("athletes", defaultNumAthletes, "Number of distinct athlete ids")
		standings   = flag.Int("standings", defaultStandings, "Number of standings rows to fetch")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for generated events (default: generated_events_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for test output (default: webhook_test_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if err := testevents.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testevents.Config{
		BaseURL:        *baseURL,
		Secret:         *secret,
		NumEvents:      *numEvents,
		NumAthletes:    *numAthletes,
		StandingsLimit: *standings,
		Workers:        *workers,
		Timeout:        *timeout,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if err := testevents.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}

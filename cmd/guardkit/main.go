package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guardkit/guardkit/internal/batch"
	"github.com/guardkit/guardkit/internal/config"
	"github.com/guardkit/guardkit/internal/hub"
	"github.com/guardkit/guardkit/internal/setup"
	setuplogger "github.com/guardkit/guardkit/internal/setup/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const usage = `Usage: guardkit <command> [options]

Commands:
  hub install <uri>   Install a validator from the hub registry
  remote enable       Enable remote inferencing as the global default
  remote disable      Disable remote inferencing
  validate            Validate a JSONL file of texts through the guard chain
`

func main() {
	log.Logger = setuplogger.New("guardkit", os.Getenv("LOG_LEVEL"))

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "hub":
		runHub(os.Args[2:])
	case "remote":
		runRemote(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}
}

func runHub(args []string) {
	if len(args) < 1 || args[0] != "install" {
		log.Fatal().Msg("usage: guardkit hub install <uri>")
	}

	fs := flag.NewFlagSet("hub install", flag.ExitOnError)
	installLocalModels := fs.Bool("install-local-models", false, "Download local model artifacts during install")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	fs.Parse(args[1:])

	if fs.NArg() != 1 {
		log.Fatal().Msg("usage: guardkit hub install <uri>")
	}
	uri := fs.Arg(0)

	registryURL := os.Getenv("GUARDKIT_REGISTRY_URL")
	if registryURL == "" {
		registryURL = "https://hub.guardkit.dev"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	installer := hub.NewInstaller(registryURL, &log.Logger)
	installed, err := installer.Install(ctx, uri, hub.InstallOptions{
		Quiet:              *quiet,
		InstallLocalModels: *installLocalModels,
	})
	if err != nil {
		log.Fatal().Err(err).Str("uri", uri).Msg("Install failed")
	}

	log.Info().
		Str("validator", installed.Name).
		Str("version", installed.Version).
		Bool("local_models", installed.LocalModels).
		Msg("Validator installed")
}

func runRemote(args []string) {
	if len(args) < 1 {
		log.Fatal().Msg("usage: guardkit remote enable|disable")
	}

	switch args[0] {
	case "enable":
		fs := flag.NewFlagSet("remote enable", flag.ExitOnError)
		endpoint := fs.String("endpoint", "", "Validation endpoint URL")
		apiKey := fs.String("api-key", "", "API key for the validation endpoint")
		fs.Parse(args[1:])

		// Endpoint and key stick in the rc file so plain enable/disable
		// toggles do not lose them.
		if *endpoint != "" || *apiKey != "" {
			rc, err := config.LoadRC()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load rc file")
			}
			if *endpoint != "" {
				rc.ValidationEndpoint = *endpoint
			}
			if *apiKey != "" {
				rc.APIKey = *apiKey
			}
			if err := rc.Save(); err != nil {
				log.Fatal().Err(err).Msg("Failed to save rc file")
			}
		}

		if err := config.EnableRemoteInferencing(); err != nil {
			log.Fatal().Err(err).Msg("Failed to enable remote inferencing")
		}
		log.Info().Msg("Remote inferencing enabled")

	case "disable":
		if err := config.DisableRemoteInferencing(); err != nil {
			log.Fatal().Err(err).Msg("Failed to disable remote inferencing")
		}
		log.Info().Msg("Remote inferencing disabled")

	default:
		log.Fatal().Str("command", args[0]).Msg("usage: guardkit remote enable|disable")
	}
}

func runValidate(args []string) {
	startTime := time.Now()

	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	input := fs.String("input", "", "Input JSONL file, or '-' for stdin")
	output := fs.String("output", "", "Output file (default: stdout)")
	format := fs.String("format", "jsonl", "Output format: 'jsonl' or 'summary'")
	workers := fs.Int("workers", 5, "Concurrent validation workers")
	continueOnError := fs.Bool("continue-on-error", true, "Continue on write failures")
	dryRun := fs.Bool("dry-run", false, "Validate input format without running the guard")
	fs.Parse(args)

	if *input == "" {
		log.Fatal().Msg("required flag -input not provided")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := setup.LoadConfig()

	deps, err := setup.Wire(ctx, cfg, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Open input file
	var inputFile io.Reader
	if *input == "-" {
		inputFile = os.Stdin
		log.Info().Msg("Reading from stdin")
	} else {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatal().Err(err).Str("file", *input).Msg("Failed to open input file")
		}
		defer f.Close()
		inputFile = f
		log.Info().Str("file", *input).Msg("Reading input file")
	}

	// Read records
	reader := batch.NewReader(inputFile, deps.Logger)
	var records []batch.InputRecord
	for record := range reader.ReadAll(ctx) {
		records = append(records, record)
	}

	log.Info().Int("total", len(records)).Msg("Input file parsed")

	if *dryRun {
		dryRunAndExit(records)
	}

	// Open output file
	var outputFile io.Writer
	if *output == "" {
		outputFile = os.Stdout
		log.Info().Msg("Writing to stdout")
	} else {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal().Err(err).Str("file", *output).Msg("Failed to create output file")
		}
		defer f.Close()
		outputFile = f
		log.Info().Str("file", *output).Msg("Writing to output file")
	}

	writer, err := batch.NewWriter(outputFile, *format, deps.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create writer")
	}
	defer writer.Close()

	// Process with worker pool
	processor := batch.NewProcessor(deps.Guard, *workers, deps.Logger)
	results := processor.Process(ctx, records)

	successCount := 0
	errorCount := 0

	for run := range results {
		if err := writer.Write(run); err != nil {
			log.Error().Err(err).Str("request_id", run.RequestID).Msg("Failed to write result")
			errorCount++

			if !*continueOnError {
				log.Fatal().Msg("Stopping due to write error")
			}
		} else {
			successCount++
		}
	}

	log.Info().
		Int("success", successCount).
		Int("errors", errorCount).
		Dur("duration", time.Since(startTime)).
		Msg("Processing complete")
}

func dryRunAndExit(records []batch.InputRecord) {
	errorCount := 0
	for _, record := range records {
		if record.Error != nil {
			log.Error().
				Int("line", record.LineNumber).
				Err(record.Error).
				Msg("Validation error")
			errorCount++
		}
	}

	if errorCount > 0 {
		log.Fatal().Int("errors", errorCount).Msg("Validation failed")
	}

	log.Info().Msg("Validation successful")
	os.Exit(0)
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/pathing/internal/config"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/security"
	"github.com/banshee-data/pathing/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "predict":
		err = handlePredict(args, os.Stdout)
	case "collide":
		err = handleCollide(args, os.Stdout)
	case "optimize":
		err = handleOptimize(args, os.Stdout)
	case "serve":
		err = handleServe(args)
	case "migrate":
		err = handleMigrate(args, os.Stdout)
	case "status":
		err = handleStatus(args, os.Stdout)
	case "stop":
		err = handleStop(args, os.Stdout)
	case "runs":
		err = handleRuns(args, os.Stdout)
	case "version":
		fmt.Printf("pathing version %s\n", version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pathing - Robot path timing, collision checks and optimisation

Usage: pathing <command> [options]

Commands:
  predict    Compute the motion timeline of a project
  collide    Report where the robot footprint hits obstacles
  optimize   Run the genetic optimiser on a project locally
  serve      Start the HTTP API (and optional gRPC health service)
  migrate    Apply or roll back database migrations (up, down, version)
  status     Show the optimiser state of a running server
  stop       Cancel the run on a running server
  runs       List stored runs on a running server, or show one with --id
  version    Show pathing version
  help       Show this help message

Common Flags:
  --config <file>      Configuration file (.json, .yaml or .yml)
  --project <file>     Project document, "-" reads stdin
  --server <url>       Server address for status, stop and runs
                       (default: http://localhost:8080)

Examples:
  # Timeline summary using robot limits from a config file
  pathing predict --config config/pathing.defaults.json --project field.json

  # Optimise locally, writing the best lines and a fitness plot
  pathing optimize --project field.json --out best.json --plot fitness.png

  # Serve the API with run history in ./pathing.db
  pathing serve --config config/pathing.defaults.json

  # Inspect the last five runs
  pathing runs --limit 5`)
}

// loadConfig reads path, or returns the built-in defaults when path is empty.
func loadConfig(path string) (*config.PathingConfig, error) {
	if path == "" {
		return config.EmptyPathingConfig(), nil
	}
	return config.LoadPathingConfig(path)
}

// readProject decodes and validates a project file. Settings missing from
// the document come from cfg.
func readProject(path string, stdin io.Reader, cfg *config.PathingConfig) (plan.Project, error) {
	if path == "" {
		return plan.Project{}, fmt.Errorf("--project is required")
	}
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return plan.Project{}, fmt.Errorf("open project: %w", err)
		}
		defer f.Close()
		r = f
	}
	p, err := plan.DecodeProjectWithDefaults(r, cfg.Settings())
	if err != nil {
		return plan.Project{}, err
	}
	if err := p.Validate(); err != nil {
		return plan.Project{}, fmt.Errorf("invalid project: %w", err)
	}
	return p, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// checkOutputs rejects output paths outside the working or temp directory.
// Empty paths are skipped.
func checkOutputs(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := security.ValidateOutputPath(p); err != nil {
			return err
		}
	}
	return nil
}

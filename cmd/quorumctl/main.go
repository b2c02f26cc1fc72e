package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/arnavshah/quorum-scheduler-api/pkg/auth"
	"github.com/arnavshah/quorum-scheduler-api/pkg/config"
	"github.com/arnavshah/quorum-scheduler-api/pkg/overflow"
)

func main() {
	config.LoadEnv()

	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// newApp builds the CLI. Command results go to out as JSON, logs go to errOut.
func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "quorumctl",
		Usage:     "Plan and evaluate quorum gatherings from the command line.",
		Writer:    out,
		ErrWriter: errOut,
		Commands: []*cli.Command{
			keygenCommand(),
			optionsCommand(),
			evaluateCommand(),
			workerCommand(),
		},
	}
}

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:      "keygen",
		Usage:     "Generate an HMAC API key for a client name.",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			if name == "" {
				return fmt.Errorf("a client name is required")
			}
			cfg := config.Load()
			if cfg.APIMasterSecret == "" {
				return fmt.Errorf("API_MASTER_SECRET is not set")
			}
			key := auth.NewService(cfg.JWTSecret, cfg.APIMasterSecret).GenerateHMACKey(name)
			return writeJSON(c.App.Writer, map[string]string{"name": name, "key": key})
		},
	}
}

func optionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "options",
		Usage:     "List the time slots and options of a plan file.",
		ArgsUsage: "<plan.json>",
		Action: func(c *cli.Context) error {
			f, err := openArg(c)
			if err != nil {
				return err
			}
			defer f.Close()
			return runOptions(f, c.App.Writer)
		},
	}
}

func evaluateCommand() *cli.Command {
	return &cli.Command{
		Name:      "evaluate",
		Usage:     "Replay a gathering's responses in order and print the decision.",
		ArgsUsage: "<gathering.json>",
		Action: func(c *cli.Context) error {
			f, err := openArg(c)
			if err != nil {
				return err
			}
			defer f.Close()
			logger := config.Load().NewLogger(c.App.ErrWriter)
			return runEvaluate(c.Context, f, c.App.Writer, logger)
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Consume overflow requests from the task queue.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "concurrency", Value: 4, Usage: "Number of tasks processed at once."},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if cfg.RedisAddr == "" {
				return fmt.Errorf("REDIS_ADDR is not set")
			}
			logger := cfg.NewLogger(c.App.ErrWriter)

			srv, mux := overflow.NewServer(cfg.RedisAddr, c.Int("concurrency"), logger)
			if err := srv.Start(mux); err != nil {
				return fmt.Errorf("start overflow worker: %w", err)
			}
			logger.Info("overflow worker started", "queue", overflow.Queue)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			srv.Shutdown()
			return nil
		},
	}
}

func openArg(c *cli.Context) (*os.File, error) {
	path := c.Args().First()
	if path == "" {
		return nil, fmt.Errorf("a JSON file argument is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

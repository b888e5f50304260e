// Package cli wires configuration, the agent backend, the audit trail and
// the terminal UI into a runnable session.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/asynkron/ember/internal/agent"
	"github.com/asynkron/ember/internal/audit"
	"github.com/asynkron/ember/internal/logging"
	"github.com/asynkron/ember/internal/termprobe"
	"github.com/asynkron/ember/internal/tui"
)

// Run executes the chat client with the provided CLI arguments. It returns a
// POSIX-style exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine, but other errors should be surfaced
		// to help with debugging.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(stderr, "failed to load .env: %v\n", err)
			return 1
		}
	}

	defaultModel := os.Getenv("OPENAI_MODEL")
	if defaultModel == "" {
		defaultModel = "gpt-4.1"
	}
	defaultBaseURL := os.Getenv("OPENAI_BASE_URL")
	defaultReasoning := os.Getenv("OPENAI_REASONING_EFFORT")

	flagSet := flag.NewFlagSet("ember", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	model := flagSet.String("model", defaultModel, "model identifier to use for responses")
	baseURL := flagSet.String("openai-base-url", defaultBaseURL, "override the OpenAI-compatible API base URL (optional)")
	reasoningEffort := flagSet.String("reasoning-effort", defaultReasoning, "reasoning effort hint (low, medium, high)")
	prompt := flagSet.String("prompt", "", "submit this prompt and stream the response without entering the TUI")
	logFile := flagSet.String("log-file", os.Getenv("EMBER_LOG_FILE"), "write structured logs to this file")
	logLevel := flagSet.String("log-level", os.Getenv("EMBER_LOG_LEVEL"), "minimum log level (debug, info, warn, error)")
	auditFile := flagSet.String("audit-log", os.Getenv("EMBER_AUDIT_LOG"), "append session events to this JSONL file")
	doctor := flagSet.Bool("doctor", false, "print detected terminal capabilities and exit")

	if err := flagSet.Parse(args); err != nil {
		return 2
	}

	probe := termprobe.Run(termprobe.NewContext())
	if *doctor {
		fmt.Fprintln(stdout, termprobe.FormatSummary(probe))
		return 0
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(stderr, "OPENAI_API_KEY must be set in the environment.")
		return 1
	}

	// The TUI owns stdout while it runs, so interactive logs go to a file or
	// nowhere.
	logger := logging.Logger(&logging.NoOpLogger{})
	if *logFile != "" {
		fileLogger, closeLog, err := logging.NewFileLogger(logging.ParseLevel(*logLevel), *logFile)
		if err != nil {
			fmt.Fprintf(stderr, "failed to open log file: %v\n", err)
			return 1
		}
		defer closeLog()
		logger = fileLogger
	}

	backend, err := agent.NewOpenAIAgent(agent.Options{
		APIKey:          apiKey,
		Model:           *model,
		BaseURL:         strings.TrimSpace(*baseURL),
		ReasoningEffort: *reasoningEffort,
		Logger:          logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to create agent: %v\n", err)
		return 1
	}

	sink := audit.Sink(audit.NewRing(0))
	if *auditFile != "" {
		f, err := os.OpenFile(*auditFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "failed to open audit log: %v\n", err)
			return 1
		}
		defer f.Close()
		sink = audit.Multi{sink, audit.NewJSONLWriter(f)}
	}

	if strings.TrimSpace(*prompt) != "" || !probe.Interactive() {
		return runHeadless(ctx, backend, sink, strings.TrimSpace(*prompt), stdout, stderr)
	}

	logger.Info(ctx, "terminal detected",
		logging.Field("term", probe.Term),
		logging.Field("colors", probe.ColorProfile),
		logging.Field("size", fmt.Sprintf("%dx%d", probe.Width, probe.Height)),
	)
	return runInteractive(ctx, backend, sink, logger, *model, stderr)
}

func runInteractive(ctx context.Context, backend agent.Handle, sink audit.Sink, logger logging.Logger, model string, stderr io.Writer) int {
	driver, err := tui.NewTermDriver(logger)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize terminal: %v\n", err)
		return 1
	}
	defer driver.Close()

	runner, err := tui.NewRunner(tui.RunnerOptions{
		Agent:    backend,
		Terminal: driver,
		Audit:    sink,
		App:      tui.NewApp(model, nil),
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to build session: %v\n", err)
		return 1
	}
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		driver.Close()
		fmt.Fprintf(stderr, "session error: %v\n", err)
		return 1
	}
	return 0
}

// runHeadless streams responses as plain lines: one prompt from the flag, or
// one per stdin line when no prompt is given.
func runHeadless(ctx context.Context, backend agent.Handle, sink audit.Sink, prompt string, stdout, stderr io.Writer) int {
	if prompt != "" {
		return streamOnce(ctx, backend, sink, prompt, stdout, stderr)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if code := streamOnce(ctx, backend, sink, line, stdout, stderr); code != 0 {
			return code
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}
	return 0
}

func streamOnce(ctx context.Context, backend agent.Handle, sink audit.Sink, text string, stdout, stderr io.Writer) int {
	if err := sink.Publish(audit.MessageReceived("user", text)); err != nil {
		fmt.Fprintf(stderr, "audit publish failed: %v\n", err)
	}
	chunks, err := backend.SendMessageStream(ctx, text)
	if err != nil {
		fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	for chunk := range chunks {
		if chunk.Err != nil {
			fmt.Fprintln(stdout)
			fmt.Fprintf(stderr, "stream failed: %v\n", chunk.Err)
			return 1
		}
		// Partial markdown renders poorly; stream deltas raw.
		fmt.Fprint(stdout, chunk.Delta)
		if chunk.ToolCall != nil {
			fmt.Fprintf(stdout, "\n[tool] %s(%s)\n", chunk.ToolCall.Name, chunk.ToolCall.Arguments)
		}
		if chunk.Done {
			fmt.Fprintln(stdout)
		}
	}
	return 0
}

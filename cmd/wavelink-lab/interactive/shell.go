// Package interactive provides the interactive command-line interface
// for wavelink-lab.
package interactive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/wavelink-protocol/wavelink-go/pkg/diaglog"
	"github.com/wavelink-protocol/wavelink-go/pkg/handshake"
	"github.com/wavelink-protocol/wavelink-go/pkg/racedetect"
	"github.com/wavelink-protocol/wavelink-go/pkg/timing"
)

// Shell handles interactive mode for wavelink-lab.
type Shell struct {
	env      timing.Environment
	profile  timing.Profile
	detector *racedetect.Detector
	logger   *slog.Logger
	diag     diaglog.Logger
	rl       *readline.Instance

	// Last coordinator driven by run, for status/history/validate.
	last *handshake.Coordinator
}

// New creates a new interactive shell.
func New(env timing.Environment, profile timing.Profile, detector *racedetect.Detector,
	logger *slog.Logger, diag diaglog.Logger) (*Shell, error) {

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "wavelink> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		env:      env,
		profile:  profile,
		detector: detector,
		logger:   logger,
		diag:     diag,
		rl:       rl,
	}, nil
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "run", "r":
			s.cmdRun(ctx, args)

		case "env", "e":
			s.cmdEnv(args)

		case "status", "st":
			s.cmdStatus()

		case "history", "h":
			s.cmdHistory()

		case "validate", "v":
			s.cmdValidate()

		case "patterns", "p":
			s.cmdPatterns(args)

		case "summary", "s":
			s.cmdSummary()

		case "clear":
			s.cmdClear(args)

		case "reset":
			s.cmdReset()

		case "replay":
			s.cmdReplay(args)

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
WAVELINK Lab Commands:
  Coordination:
    run [n]            - Coordinate n handshakes (default 1)
    env [name]         - Show or switch the environment
    status             - Show the last coordinator's state
    history            - Show the last coordinator's transition log
    validate           - Audit the last transition log

  Detector:
    patterns [type]    - List recorded patterns (optionally one type)
    summary            - Show the detector summary
    clear <hours>      - Clear patterns older than <hours>
    reset              - Clear all patterns

  Diagnostics:
    replay <file>      - Replay a diagnostic CBOR log

  General:
    help               - Show this help
    quit               - Exit`)
}

// cmdRun coordinates one or more handshakes against the current profile.
func (s *Shell) cmdRun(ctx context.Context, args []string) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			fmt.Fprintln(s.rl.Stdout(), "Usage: run [n]")
			return
		}
		n = v
	}

	succeeded := 0
	for i := 0; i < n; i++ {
		c := handshake.NewCoordinator(s.env,
			handshake.WithProfile(s.profile),
			handshake.WithDetector(s.detector),
			handshake.WithLogger(s.logger),
			handshake.WithDiagLogger(s.diag))
		s.last = c

		if c.CoordinateHandshake(ctx) {
			succeeded++
			d, _ := c.HandshakeDuration()
			fmt.Fprintf(s.rl.Stdout(), "[%d/%d] %s ready in %s\n",
				i+1, n, shortID(c.ConnectionID()), d.Round(time.Microsecond))
		} else {
			fmt.Fprintf(s.rl.Stdout(), "[%d/%d] %s FAILED (state: %s)\n",
				i+1, n, shortID(c.ConnectionID()), c.CurrentState())
		}
	}

	if n > 1 {
		fmt.Fprintf(s.rl.Stdout(), "%d/%d handshakes succeeded\n", succeeded, n)
	}
}

// cmdEnv shows or switches the environment. Switching replaces the
// profile and the detector; recorded patterns are per environment.
func (s *Shell) cmdEnv(args []string) {
	if len(args) == 0 {
		fmt.Fprintf(s.rl.Stdout(), "Environment: %s\n", s.env)
		fmt.Fprintf(s.rl.Stdout(), "  Handshake delay:     %s\n", s.profile.HandshakeDelay)
		fmt.Fprintf(s.rl.Stdout(), "  Stabilization delay: %s\n", s.profile.StabilizationDelay)
		fmt.Fprintf(s.rl.Stdout(), "  Message delay:       %s\n", s.profile.MessageDelay)
		fmt.Fprintf(s.rl.Stdout(), "  Handshake timeout:   %s\n", s.profile.HandshakeTimeout)
		return
	}

	env := timing.Environment(args[0]).Normalize()
	if string(env) != args[0] {
		fmt.Fprintf(s.rl.Stdout(), "Unknown environment %q, using %s\n", args[0], env)
	}

	s.env = env
	s.profile = timing.ProfileFor(env)
	s.detector = racedetect.NewDetector(env,
		racedetect.WithLogger(s.logger),
		racedetect.WithDiagLogger(s.diag))
	s.last = nil

	fmt.Fprintf(s.rl.Stdout(), "Switched to %s\n", env)
}

// cmdStatus shows the last coordinator's state.
func (s *Shell) cmdStatus() {
	if s.last == nil {
		fmt.Fprintln(s.rl.Stdout(), "No handshake yet (use 'run')")
		return
	}

	sum := s.last.CoordinationSummary()
	fmt.Fprintln(s.rl.Stdout(), "\nLast Coordination")
	fmt.Fprintln(s.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(s.rl.Stdout(), "  Connection:  %s\n", sum.ConnectionID)
	fmt.Fprintf(s.rl.Stdout(), "  Environment: %s\n", sum.Environment)
	fmt.Fprintf(s.rl.Stdout(), "  State:       %s\n", sum.State)
	fmt.Fprintf(s.rl.Stdout(), "  Ready:       %t\n", sum.Ready)
	fmt.Fprintf(s.rl.Stdout(), "  Duration:    %s\n", sum.Duration.Round(time.Microsecond))
	fmt.Fprintf(s.rl.Stdout(), "  Transitions: %d\n", sum.Transitions)
	fmt.Fprintln(s.rl.Stdout())
}

// cmdHistory shows the last coordinator's transition log.
func (s *Shell) cmdHistory() {
	if s.last == nil {
		fmt.Fprintln(s.rl.Stdout(), "No handshake yet (use 'run')")
		return
	}

	history := s.last.StateHistory()
	if len(history) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No transitions recorded")
		return
	}

	start := history[0].At
	for i, tr := range history {
		fmt.Fprintf(s.rl.Stdout(), "  %d. %-18s -> %-18s (+%s)\n",
			i+1, tr.From, tr.To, tr.At.Sub(start).Round(time.Microsecond))
	}
}

// cmdValidate audits the last transition log.
func (s *Shell) cmdValidate() {
	if s.last == nil {
		fmt.Fprintln(s.rl.Stdout(), "No handshake yet (use 'run')")
		return
	}

	if s.last.ValidateStateSequence() {
		fmt.Fprintln(s.rl.Stdout(), "Transition log is valid")
	} else {
		fmt.Fprintln(s.rl.Stdout(), "Transition log VIOLATES the allowed edge set")
	}
}

// cmdPatterns lists recorded patterns, optionally filtered by type.
func (s *Shell) cmdPatterns(args []string) {
	filter := racedetect.Filter{}
	if len(args) > 0 {
		filter.Type = args[0]
	}

	patterns := s.detector.Patterns(filter)
	if len(patterns) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No patterns recorded")
		return
	}

	fmt.Fprintf(s.rl.Stdout(), "\nPatterns (%d):\n", len(patterns))
	fmt.Fprintln(s.rl.Stdout(), "-------------------------------------------")
	for _, p := range patterns {
		fmt.Fprintf(s.rl.Stdout(), "  [%s] %s %s\n",
			p.DetectedAt.Format("15:04:05"), p.Severity, p.Type)
		for _, k := range sortedKeys(p.Details) {
			fmt.Fprintf(s.rl.Stdout(), "      %s: %v\n", k, p.Details[k])
		}
	}
	fmt.Fprintln(s.rl.Stdout())
}

// cmdSummary shows the detector summary.
func (s *Shell) cmdSummary() {
	sum := s.detector.Summary()

	fmt.Fprintln(s.rl.Stdout(), "\nDetector Summary")
	fmt.Fprintln(s.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(s.rl.Stdout(), "  Environment:     %s\n", sum.Environment)
	fmt.Fprintf(s.rl.Stdout(), "  Total patterns:  %d\n", sum.TotalPatterns)
	fmt.Fprintf(s.rl.Stdout(), "  Recent (5m):     %d\n", sum.RecentCount)
	for _, k := range sortedStringKeys(sum.CountsByType) {
		fmt.Fprintf(s.rl.Stdout(), "  By type:         %s = %d\n", k, sum.CountsByType[k])
	}
	for sev, count := range sum.CountsBySeverity {
		fmt.Fprintf(s.rl.Stdout(), "  By severity:     %s = %d\n", sev, count)
	}
	fmt.Fprintln(s.rl.Stdout())
}

// cmdClear clears patterns older than the given age in hours.
func (s *Shell) cmdClear(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: clear <hours>")
		return
	}

	hours, err := strconv.ParseFloat(args[0], 64)
	if err != nil || hours < 0 {
		fmt.Fprintf(s.rl.Stdout(), "Invalid hours: %s\n", args[0])
		return
	}

	removed := s.detector.ClearOldPatterns(time.Duration(hours * float64(time.Hour)))
	fmt.Fprintf(s.rl.Stdout(), "Removed %d patterns\n", removed)
}

// cmdReset clears all recorded patterns.
func (s *Shell) cmdReset() {
	s.detector.ResetPatterns()
	fmt.Fprintln(s.rl.Stdout(), "Patterns cleared")
}

// cmdReplay reads a diagnostic CBOR log and prints its events.
func (s *Shell) cmdReplay(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: replay <file>")
		return
	}

	reader, err := diaglog.NewReader(args[0])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Failed to open log: %v\n", err)
		return
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err != nil {
			break
		}
		count++
		s.printEvent(event)
	}
	fmt.Fprintf(s.rl.Stdout(), "%d events\n", count)
}

func (s *Shell) printEvent(event diaglog.Event) {
	ts := event.Timestamp.Format("15:04:05.000")
	conn := shortID(event.ConnectionID)

	switch event.Category {
	case diaglog.CategoryState:
		if event.StateChange != nil {
			fmt.Fprintf(s.rl.Stdout(), "  [%s] %s %s: %s -> %s (+%s)\n",
				ts, event.Environment, conn,
				event.StateChange.OldState, event.StateChange.NewState,
				event.StateChange.Elapsed.Round(time.Microsecond))
		}
	case diaglog.CategoryPattern:
		if event.Pattern != nil {
			fmt.Fprintf(s.rl.Stdout(), "  [%s] %s pattern: %s (%s)\n",
				ts, event.Environment, event.Pattern.Type, event.Pattern.Severity)
		}
	case diaglog.CategoryError:
		if event.Error != nil {
			fmt.Fprintf(s.rl.Stdout(), "  [%s] %s %s error: %s\n",
				ts, event.Environment, conn, event.Error.Message)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

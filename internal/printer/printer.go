// Package printer renders coloured CLI output for the companion commands.
package printer

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/dyluth/stratux-companion/internal/worker"
	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Out and Err are where normal and error output go. Tests replace them.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(Out, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(Out, format, a...)
}

// Warning prints a warning message in yellow with a warning prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(Out, msg)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(Out, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with title, explanation and suggestions to
// Err and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value context details, printed in key order
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(Err, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Err, "%s\n", explanation)
	}

	if len(context) > 0 {
		fmt.Fprintf(Err, "\n")
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(Err, "  %s: %s\n", k, context[k])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(Err, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(Err, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(Err, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(Err, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Workers prints one line per worker with its health and heartbeat age at now.
func Workers(statuses []worker.Status, now time.Time) {
	tw := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKER\tSTATE\tINTERVAL\tLAST HEARTBEAT")
	for _, s := range statuses {
		state := green.Sprint("healthy")
		if !s.Healthy {
			state = red.Sprint("stale")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, state, s.Interval, age(s.LastHeartbeat, now))
	}
	tw.Flush()
}

// Heartbeats prints the last heartbeat of each named worker, sorted by name.
func Heartbeats(heartbeats map[string]time.Time, now time.Time) {
	names := make([]string, 0, len(heartbeats))
	for name := range heartbeats {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKER\tLAST HEARTBEAT")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\n", name, age(heartbeats[name], now))
	}
	tw.Flush()
}

// Contacts prints a traffic table, nearest first as given.
func Contacts(contacts []traffic.Contact) {
	if len(contacts) == 0 {
		fmt.Fprintln(Out, "  (none)")
		return
	}

	tw := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ICAO\tNAME\tDIST (m)\tALT (m)\tBRG\tSPEED (km/h)")
	for _, c := range contacts {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", c.ICAO, c.Name(), c.DistanceM, c.AltitudeM, c.BearingDeg, c.SpeedKmh)
	}
	tw.Flush()
}

func age(at, now time.Time) string {
	if at.IsZero() {
		return "never"
	}
	return now.Sub(at).Round(time.Second).String() + " ago"
}

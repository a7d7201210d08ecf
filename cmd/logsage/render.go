package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/parser"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func parseOutput(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case outputText, outputJSON, outputYAML:
		return f, nil
	case "":
		return outputText, nil
	default:
		return "", fmt.Errorf("invalid output format %q: must be one of text, json, yaml", s)
	}
}

func writeStructured(w io.Writer, format outputFormat, v any) error {
	if format == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	faint   = color.New(color.Faint)
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed)
)

func confidenceColor(c core.Confidence) *color.Color {
	switch c {
	case core.ConfidenceHigh:
		return green
	case core.ConfidenceMedium:
		return yellow
	default:
		return red
	}
}

func printAnswer(w io.Writer, res *core.AnalysisResult) {
	heading.Fprintln(w, "Summary")
	fmt.Fprintf(w, "  %s\n", res.Summary)

	if res.RootCause != "" {
		fmt.Fprintln(w)
		heading.Fprintln(w, "Probable root cause")
		fmt.Fprintf(w, "  %s\n", res.RootCause)
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "Evidence")
	if len(res.Evidence) == 0 {
		faint.Fprintln(w, "  no matching log excerpts")
	}
	for i, e := range res.Evidence {
		var meta []string
		if e.Level != "" {
			meta = append(meta, e.Level)
		}
		if !e.Timestamp.IsZero() {
			meta = append(meta, e.Timestamp.Format(time.RFC3339))
		}
		meta = append(meta, fmt.Sprintf("score %.2f", e.Score))
		fmt.Fprintf(w, "  [%d] %s ", i+1, e.ChunkID)
		faint.Fprintf(w, "(%s)\n", strings.Join(meta, ", "))
		for _, line := range strings.Split(e.Quote, "\n") {
			fmt.Fprintf(w, "      %s\n", line)
		}
	}

	if len(res.NextSteps) > 0 {
		fmt.Fprintln(w)
		heading.Fprintln(w, "Next steps")
		for i, step := range res.NextSteps {
			fmt.Fprintf(w, "  %d. %s\n", i+1, step)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, "Confidence: ")
	confidenceColor(res.Confidence).Fprintln(w, res.Confidence.String())
}

func printIngestOutcome(w io.Writer, o fileOutcome) {
	if o.Error != "" {
		red.Fprintf(w, "✗ %s: %s\n", o.Path, o.Error)
		return
	}
	r := o.Result
	green.Fprintf(w, "✓ %s", o.Path)
	fmt.Fprintf(w, ": %d chunks from %d entries (%s) in %s\n",
		r.ChunksCreated, r.Stats.TotalEntries, r.Stats.Format, r.Elapsed.Round(time.Millisecond))
	if r.Stats.ErrorCount > 0 || r.Stats.WarnCount > 0 {
		fmt.Fprintf(w, "    %d errors, %d warnings\n", r.Stats.ErrorCount, r.Stats.WarnCount)
	}
	for _, warning := range r.Warnings {
		yellow.Fprintf(w, "    warning: %s\n", warning)
	}
}

func printStats(w io.Writer, name string, s parser.Stats) {
	heading.Fprintln(w, name)
	row := func(label, format string, args ...any) {
		fmt.Fprintf(w, "  %-12s "+format+"\n", append([]any{label + ":"}, args...)...)
	}
	row("format", "%s", s.Format)
	row("entries", "%d", s.TotalEntries)
	row("errors", "%d", s.ErrorCount)
	row("warnings", "%d", s.WarnCount)
	if !s.FirstTimestamp.IsZero() {
		row("first", "%s", s.FirstTimestamp.Format(time.RFC3339))
		row("last", "%s", s.LastTimestamp.Format(time.RFC3339))
	}
	levels := make([]string, 0, len(s.Levels))
	for _, level := range slices.Sorted(maps.Keys(s.Levels)) {
		levels = append(levels, fmt.Sprintf("%s=%d", level, s.Levels[level]))
	}
	row("levels", "%s", strings.Join(levels, " "))
	if len(s.Loggers) > 0 {
		row("loggers", "%s", strings.Join(s.Loggers, ", "))
	}
	row("trace ids", "%d", s.TraceIDs)
}

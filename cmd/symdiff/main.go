// symdiff compares two matcher configurations over a corpus snapshot and
// reports where their extracted events diverge.  It runs entirely offline
// from CSV snapshots; nothing it produces feeds back into the live pipeline.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/comparison"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/library"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/note"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
)

type options struct {
	libraryA string
	libraryB string
	notes    string

	nameA string
	nameB string

	negationWindowA int
	negationWindowB int
	dedupeA         string
	dedupeB         string

	top      int
	format   string
	out      string
	logLevel string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "symdiff",
		Short: "Compare two symptom matcher configurations over a note corpus",
		Long: "symdiff runs two matcher engines, each with its own library snapshot and\n" +
			"extraction settings, over the same clinical note corpus and reports the\n" +
			"per-note and aggregate divergence between their extracted events.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.libraryA, "library-a", "", "symptom library CSV for engine A (required)")
	f.StringVar(&opts.libraryB, "library-b", "", "symptom library CSV for engine B (defaults to --library-a)")
	f.StringVar(&opts.notes, "notes", "", "clinical notes CSV (required)")
	f.StringVar(&opts.nameA, "name-a", "baseline", "display name for engine A")
	f.StringVar(&opts.nameB, "name-b", "candidate", "display name for engine B")
	f.IntVar(&opts.negationWindowA, "negation-window-a", 0, "engine A negation window in tokens (0 = default)")
	f.IntVar(&opts.negationWindowB, "negation-window-b", 0, "engine B negation window in tokens (0 = default)")
	f.StringVar(&opts.dedupeA, "dedupe-a", "preserve", "engine A duplicate policy (preserve|dedupe)")
	f.StringVar(&opts.dedupeB, "dedupe-b", "preserve", "engine B duplicate policy (preserve|dedupe)")
	f.IntVar(&opts.top, "top", 0, "number of most divergent notes to include (0 = default)")
	f.StringVar(&opts.format, "format", "text", "output format (text|json)")
	f.StringVar(&opts.out, "out", "", "write the report to this file instead of stdout")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	_ = cmd.MarkFlagRequired("library-a")
	_ = cmd.MarkFlagRequired("notes")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	switch opts.format {
	case "text", "json":
	default:
		return fmt.Errorf("format %q must be text|json", opts.format)
	}
	if err := validateDedupe(opts.dedupeA); err != nil {
		return err
	}
	if err := validateDedupe(opts.dedupeB); err != nil {
		return err
	}
	if opts.libraryB == "" {
		opts.libraryB = opts.libraryA
	}

	logger, err := logging.NewLogger(logging.LogConfig{Level: opts.logLevel, Format: "console"})
	if err != nil {
		return err
	}

	engineA, err := buildEngine(ctx, opts.libraryA, opts.nameA, opts.negationWindowA, opts.dedupeA, logger)
	if err != nil {
		return fmt.Errorf("engine A: %w", err)
	}
	engineB, err := buildEngine(ctx, opts.libraryB, opts.nameB, opts.negationWindowB, opts.dedupeB, logger)
	if err != nil {
		return fmt.Errorf("engine B: %w", err)
	}

	notes, err := loadNotes(opts.notes)
	if err != nil {
		return err
	}

	harness := comparison.NewHarness(engineA, engineB, opts.top, logger)
	report, err := harness.Compare(ctx, notes)
	if err != nil {
		return err
	}

	out := os.Stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return writeSummary(out, report)
}

func validateDedupe(policy string) error {
	if policy != "preserve" && policy != "dedupe" {
		return fmt.Errorf("dedupe policy %q must be preserve|dedupe", policy)
	}
	return nil
}

// buildEngine loads one library snapshot and constructs a matcher over it.
func buildEngine(ctx context.Context, libraryPath, name string, negationWindow int, dedupe string, logger logging.Logger) (*extraction.Matcher, error) {
	loader := library.NewLoader(library.NewCSVSource(libraryPath), logger)
	lib, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return extraction.NewMatcher(lib, extraction.Options{
		Name:               name,
		NegationWindow:     negationWindow,
		PreserveDuplicates: dedupe != "dedupe",
	}), nil
}

// loadNotes reads a clinical notes CSV.  The header row names the fields;
// naming variants are canonicalized the same way the ingestion path does.
func loadNotes(path string) ([]note.ClinicalNote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open notes csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read notes csv header: %w", err)
	}

	var notes []note.ClinicalNote
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("notes csv read failed: %w", err)
		}
		raw := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(fields) {
				raw[h] = fields[i]
			}
		}
		notes = append(notes, note.FromRaw(raw))
	}
	return notes, nil
}

// writeSummary renders the report for human review.
func writeSummary(w io.Writer, report *atypes.ComparisonReport) error {
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	p("Matcher comparison: %s vs %s", report.EngineA, report.EngineB)
	p("")
	p("Notes compared:  %d", report.NotesCompared)
	p("Notes skipped:   %d", report.NotesSkipped)
	p("")
	p("%-24s %12s %12s", "", report.EngineA, report.EngineB)
	p("%-24s %12d %12d", "Total events", report.TotalEventsA, report.TotalEventsB)
	p("%-24s %12d %12d", "Duplicate events", report.TotalDuplicatesA, report.TotalDuplicatesB)
	p("%-24s %12d %12d", "Missed occurrences", report.MissedByA, report.MissedByB)

	printLabels(w, "Categories only in "+report.EngineA, report.CategoriesOnlyA)
	printLabels(w, "Categories only in "+report.EngineB, report.CategoriesOnlyB)
	printLabels(w, "Diagnoses only in "+report.EngineA, report.DiagnosesOnlyA)
	printLabels(w, "Diagnoses only in "+report.EngineB, report.DiagnosesOnlyB)

	if len(report.MostDivergent) > 0 {
		p("")
		p("Most divergent notes:")
		for _, d := range report.MostDivergent {
			p("  %s (patient %s): magnitude %d, events %d vs %d",
				d.NoteID, d.PatientID, d.DivergenceMag, d.EventCountA, d.EventCountB)
			if len(d.OnlyInA) > 0 {
				p("    only in %s: %s", report.EngineA, strings.Join(d.OnlyInA, ", "))
			}
			if len(d.OnlyInB) > 0 {
				p("    only in %s: %s", report.EngineB, strings.Join(d.OnlyInB, ", "))
			}
		}
	}
	return nil
}

func printLabels(w io.Writer, title string, labels []string) {
	if len(labels) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, l := range labels {
		fmt.Fprintf(w, "  %s\n", l)
	}
}

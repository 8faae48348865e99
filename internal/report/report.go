// Package report renders analysis results for humans and exports them
// for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/klauspost/compress/gzip"

	"vulnmap/internal/analyzer"
	"vulnmap/internal/metrics"
)

// topModules caps the centrality table in the text report.
const topModules = 10

// WriteJSON writes the result as JSON. pretty adds indentation.
func WriteJSON(result *analyzer.Result, w io.Writer, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

// ExportGzipJSON writes the result as gzip-compressed JSON to path.
func ExportGzipJSON(result *analyzer.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := WriteJSON(result, gz, false); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish export: %w", err)
	}
	return f.Close()
}

// RenderText writes the human-readable report.
func RenderText(result *analyzer.Result, w io.Writer) error {
	s := result.Summary

	fmt.Fprintln(w, "Analysis summary")
	fmt.Fprintf(w, "  Modules: %d   Edges: %d   External deps: %d\n", s.Modules, s.Edges, s.Externals)
	fmt.Fprintf(w, "  Entry points: %d   Attack paths: %d\n", s.EntryPoints, s.AttackPaths)
	fmt.Fprintf(w, "  Findings: %d (critical %d, high %d, medium %d)\n",
		s.TotalFindings, s.CriticalCount, s.HighCount, s.MediumCount)
	fmt.Fprintf(w, "  Cycles: %d   DAG: %v", s.Cycles, s.IsDAG)
	if s.CycleBoundHit {
		fmt.Fprint(w, "   (cycle enumeration saturated)")
	}
	fmt.Fprintln(w)
	if s.ScanFailures > 0 {
		fmt.Fprintf(w, "  Scan failures: %d\n", s.ScanFailures)
	}
	if s.Ambiguities > 0 {
		fmt.Fprintf(w, "  Ambiguous import resolutions: %d\n", s.Ambiguities)
	}

	if len(result.Metrics.Modules) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Most central modules")
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  MODULE\tIN\tOUT\tCENTRALITY\tBETWEENNESS")
		rows := metrics.SortByCentrality(result.Metrics.Modules)
		if len(rows) > topModules {
			rows = rows[:topModules]
		}
		for _, m := range rows {
			fmt.Fprintf(tw, "  %s\t%d\t%d\t%.3f\t%.3f\n",
				m.ID, m.InDegree, m.OutDegree, m.DegreeCentrality, m.Betweenness)
		}
		tw.Flush()
	}

	if result.Findings.Total() > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Findings")
		for _, f := range result.Findings.Findings {
			fmt.Fprintf(w, "  [%s] %s:%d %s", strings.ToUpper(string(f.Severity)), f.Module, f.Line, f.Rule)
			if f.Snippet != "" {
				fmt.Fprintf(w, "  %s", f.Snippet)
			}
			fmt.Fprintln(w)
		}
	}

	if len(result.Surface.Paths) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Attack paths")
		for _, p := range result.Surface.Paths {
			entry := p.Entry
			if p.Route != "" {
				entry = fmt.Sprintf("%s %s", p.Entry, p.Route)
			}
			distance := fmt.Sprintf("%d hops", p.Distance)
			if p.Distance < 0 {
				entry = "(unreachable)"
				distance = "-"
			}
			fmt.Fprintf(w, "  [%s] %s -> %s  %s  worst %s\n",
				strings.ToUpper(string(p.Risk)), entry, p.Module, distance, p.Severity)
		}
	}

	if len(result.Metrics.Cycles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Import cycles")
		for _, cycle := range result.Metrics.Cycles {
			fmt.Fprintf(w, "  %s -> %s\n", strings.Join(cycle, " -> "), cycle[0])
		}
	}

	if len(result.Externals) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "External dependencies: %s\n", strings.Join(result.Externals, ", "))
	}

	if len(result.ScanFailures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Scan failures")
		for _, sf := range result.ScanFailures {
			fmt.Fprintf(w, "  %s: %s\n", sf.Path, sf.Reason)
		}
	}

	return nil
}

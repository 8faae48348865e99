// Package analyzer runs the full analysis pipeline: scan, graph build,
// metrics, security findings, and attack surface mapping.
package analyzer

import (
	"context"
	"sort"
	"sync"

	"vulnmap/internal/attack"
	"vulnmap/internal/depgraph"
	"vulnmap/internal/errors"
	"vulnmap/internal/findings"
	"vulnmap/internal/logging"
	"vulnmap/internal/metrics"
	"vulnmap/internal/pyscan"
	"vulnmap/internal/rules"
	"vulnmap/internal/source"
)

// Options configures one analysis run. Zero values fall back to
// defaults.
type Options struct {
	Rules             *rules.RuleSet
	Workers           int
	MaxCycles         int
	MaxAttackDistance int
	Logger            *logging.Logger
}

const (
	defaultWorkers   = 4
	defaultMaxCycles = 100
)

// Summary holds the aggregate counts of a run.
type Summary struct {
	Modules        int            `json:"modules"`
	Edges          int            `json:"edges"`
	Externals      int            `json:"externals"`
	EntryPoints    int            `json:"entryPoints"`
	Cycles         int            `json:"cycles"`
	CycleBoundHit  bool           `json:"cycleBoundHit"`
	IsDAG          bool           `json:"isDag"`
	TotalFindings  int            `json:"totalFindings"`
	CriticalCount  int            `json:"criticalCount"`
	HighCount      int            `json:"highCount"`
	MediumCount    int            `json:"mediumCount"`
	AttackPaths    int            `json:"attackPaths"`
	ScanFailures   int            `json:"scanFailures"`
	Ambiguities    int            `json:"ambiguities"`
	RiskBreakdown  map[string]int `json:"riskBreakdown"`
}

// Result is the immutable aggregate handed to callers. Per-file scan
// failures ride alongside a successful partial result.
type Result struct {
	Graph        *depgraph.Graph      `json:"graph"`
	Externals    []string             `json:"externals"`
	Metrics      *metrics.Report      `json:"metrics"`
	Findings     *findings.Report     `json:"findings"`
	Surface      *attack.Surface      `json:"surface"`
	ScanFailures []pyscan.ScanFailure `json:"scanFailures"`
	Summary      Summary              `json:"summary"`
}

// Analyze runs the pipeline over a loaded source tree. It returns a
// Cancelled error once the context is done and discards any completed
// stage output; an empty tree is InvalidInput.
func Analyze(ctx context.Context, tree *source.Tree, opts Options) (*Result, error) {
	if tree.IsEmpty() {
		return nil, errors.New(errors.InvalidInput, "source tree contains no Python files", nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewSilent()
	}
	rs := opts.Rules
	if rs == nil {
		var err error
		rs, err = rules.Default()
		if err != nil {
			return nil, errors.New(errors.InternalError, "failed to load default rules", err)
		}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	maxCycles := opts.MaxCycles
	if maxCycles <= 0 {
		maxCycles = defaultMaxCycles
	}

	records, failures, err := scanStage(ctx, tree, rs, workers)
	if err != nil {
		return nil, err
	}
	logger.Debug("Scan stage complete", map[string]interface{}{
		"records":  len(records),
		"failures": len(failures),
	})

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	graphResult := depgraph.Build(records)

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	metricsReport := metrics.Compute(graphResult.Graph, maxCycles)

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	findingsReport := findings.Collect(records)

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	entries := attack.EntryPointsFromRecords(records)
	surface := attack.Map(graphResult.Graph, entries, findingsReport, opts.MaxAttackDistance)

	result := &Result{
		Graph:        graphResult.Graph,
		Externals:    graphResult.Externals,
		Metrics:      metricsReport,
		Findings:     findingsReport,
		Surface:      surface,
		ScanFailures: failures,
		Summary:      summarize(graphResult, metricsReport, findingsReport, surface, failures),
	}

	logger.Info("Analysis complete", map[string]interface{}{
		"modules":  result.Summary.Modules,
		"edges":    result.Summary.Edges,
		"findings": result.Summary.TotalFindings,
		"paths":    result.Summary.AttackPaths,
	})

	return result, nil
}

// scanStage runs the per-file scanner on a worker pool. Files are
// independent; results are re-sorted by module identifier afterwards
// so completion order does not leak into later stages.
func scanStage(ctx context.Context, tree *source.Tree, rs *rules.RuleSet, workers int) ([]*pyscan.FileRecord, []pyscan.ScanFailure, error) {
	type outcome struct {
		record  *pyscan.FileRecord
		failure *pyscan.ScanFailure
	}

	jobs := make(chan source.File, len(tree.Files))
	for _, f := range tree.Files {
		jobs <- f
	}
	close(jobs)

	outcomes := make(chan outcome, len(tree.Files))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanner := pyscan.NewScanner(rs)
			for f := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				record, failure := scanner.ScanFile(ctx, f.Path, f.Text)
				outcomes <- outcome{record: record, failure: failure}
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	if err := checkCancelled(ctx); err != nil {
		return nil, nil, err
	}

	var records []*pyscan.FileRecord
	var failures []pyscan.ScanFailure
	for o := range outcomes {
		if o.failure != nil {
			failures = append(failures, *o.failure)
			continue
		}
		if o.record != nil {
			records = append(records, o.record)
		}
	}

	pyscan.SortRecords(records)
	sortFailures(failures)

	return records, failures, nil
}

func sortFailures(failures []pyscan.ScanFailure) {
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Path < failures[j].Path
	})
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errors.New(errors.Cancelled, "analysis cancelled", ctx.Err())
	default:
		return nil
	}
}

func summarize(graphResult *depgraph.Result, metricsReport *metrics.Report, findingsReport *findings.Report, surface *attack.Surface, failures []pyscan.ScanFailure) Summary {
	risk := make(map[string]int)
	for _, p := range surface.Paths {
		risk[string(p.Risk)]++
	}

	return Summary{
		Modules:       graphResult.Graph.NodeCount(),
		Edges:         graphResult.Graph.EdgeCount(),
		Externals:     len(graphResult.Externals),
		EntryPoints:   len(surface.EntryPoints),
		Cycles:        len(metricsReport.Cycles),
		CycleBoundHit: metricsReport.CycleBoundHit,
		IsDAG:         metricsReport.IsDAG,
		TotalFindings: findingsReport.Total(),
		CriticalCount: findingsReport.CountBySeverity(rules.SeverityCritical),
		HighCount:     findingsReport.CountBySeverity(rules.SeverityHigh),
		MediumCount:   findingsReport.CountBySeverity(rules.SeverityMedium),
		AttackPaths:   len(surface.Paths),
		ScanFailures:  len(failures),
		Ambiguities:   graphResult.Ambiguities,
		RiskBreakdown: risk,
	}
}

package findings

import (
	"testing"

	"vulnmap/internal/pyscan"
	"vulnmap/internal/rules"
)

func testRecords() []*pyscan.FileRecord {
	return []*pyscan.FileRecord{
		{
			ModuleID: "util",
			Matches: []pyscan.PatternMatch{
				{Rule: "dynamic-exec", Kind: "call", Severity: rules.SeverityCritical, Line: 12, Snippet: "eval(x)"},
				{Rule: "input-capture", Kind: "call", Severity: rules.SeverityMedium, Line: 4, Snippet: "input()"},
			},
		},
		{
			ModuleID: "db",
			Matches: []pyscan.PatternMatch{
				{Rule: "sql-injection", Kind: "sql", Severity: rules.SeverityCritical, Line: 8},
			},
		},
		{ModuleID: "clean"},
	}
}

func TestCollectSortsFindings(t *testing.T) {
	report := Collect(testRecords())

	if report.Total() != 3 {
		t.Fatalf("Expected 3 findings, got %d", report.Total())
	}
	if report.Findings[0].Module != "db" {
		t.Errorf("Findings should be sorted by module, got %s first", report.Findings[0].Module)
	}
	if report.Findings[1].Module != "util" || report.Findings[1].Line != 4 {
		t.Errorf("Findings within a module should be sorted by line, got %+v", report.Findings[1])
	}
}

func TestWorstSeverity(t *testing.T) {
	report := Collect(testRecords())

	worst, ok := report.WorstSeverity("util")
	if !ok || worst != rules.SeverityCritical {
		t.Errorf("Expected critical worst severity for util, got %v (%v)", worst, ok)
	}
	if _, ok := report.WorstSeverity("clean"); ok {
		t.Error("Module without findings should report none")
	}
}

func TestSeverityCounts(t *testing.T) {
	report := Collect(testRecords())

	if got := report.CountBySeverity(rules.SeverityCritical); got != 2 {
		t.Errorf("Expected 2 critical findings, got %d", got)
	}
	if got := report.CountBySeverity(rules.SeverityMedium); got != 1 {
		t.Errorf("Expected 1 medium finding, got %d", got)
	}
	if got := report.CountBySeverity(rules.SeverityHigh); got != 0 {
		t.Errorf("Expected 0 high findings, got %d", got)
	}
}

func TestModulesWithFindings(t *testing.T) {
	report := Collect(testRecords())

	mods := report.Modules()
	if len(mods) != 2 || mods[0] != "db" || mods[1] != "util" {
		t.Errorf("Expected sorted [db util], got %v", mods)
	}
	if len(report.ForModule("clean")) != 0 {
		t.Error("clean module should have no findings")
	}
}

package depgraph

import (
	"reflect"
	"testing"

	"vulnmap/internal/pyscan"
)

func record(id, path string, imports ...pyscan.ImportDecl) *pyscan.FileRecord {
	return &pyscan.FileRecord{ModuleID: id, Path: path, Lines: 10, Imports: imports}
}

func abs(module string) pyscan.ImportDecl {
	return pyscan.ImportDecl{Module: module}
}

func TestBuildSimpleChain(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("app", "app.py", abs("core")),
		record("core", "core.py", abs("util")),
		record("util", "util.py"),
	})

	g := res.Graph
	if g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Fatalf("Expected 3 nodes and 2 edges, got %d and %d", g.NodeCount(), g.EdgeCount())
	}
	if got := g.OutNeighbors("app"); !reflect.DeepEqual(got, []string{"core"}) {
		t.Errorf("app should import core, got %v", got)
	}
	if got := g.InNeighbors("util"); !reflect.DeepEqual(got, []string{"core"}) {
		t.Errorf("util should be imported by core, got %v", got)
	}
	if len(res.Externals) != 0 {
		t.Errorf("Expected no externals, got %v", res.Externals)
	}
}

func TestUnresolvedImportTalliedAsExternal(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("app", "app.py", abs("numpy.linalg"), abs("numpy"), abs("requests")),
	})

	if res.Graph.EdgeCount() != 0 {
		t.Errorf("External imports should not create edges, got %v", res.Graph.Edges)
	}
	want := []string{"numpy", "requests"}
	if !reflect.DeepEqual(res.Externals, want) {
		t.Errorf("Expected externals %v, got %v", want, res.Externals)
	}
}

func TestSelfImportDiscarded(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("app", "app.py", abs("app")),
	})
	if res.Graph.EdgeCount() != 0 {
		t.Errorf("Self-import should not create an edge, got %v", res.Graph.Edges)
	}
}

func TestDuplicateEdgesCollapsed(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("app", "app.py", abs("core"), abs("core"), pyscan.ImportDecl{Module: "core", Alias: "c"}),
		record("core", "core.py"),
	})
	if res.Graph.EdgeCount() != 1 {
		t.Errorf("Expected 1 collapsed edge, got %v", res.Graph.Edges)
	}
}

func TestRelativeImportResolution(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("pkg.a", "pkg/a.py", pyscan.ImportDecl{Dots: 1, Names: []string{"b"}}),
		record("pkg.b", "pkg/b.py"),
	})

	if got := res.Graph.OutNeighbors("pkg.a"); !reflect.DeepEqual(got, []string{"pkg.b"}) {
		t.Errorf("Expected pkg.a -> pkg.b, got %v", got)
	}
	if res.Graph.Edges[0].Kind != EdgeRelative {
		t.Errorf("Expected relative edge kind, got %s", res.Graph.Edges[0].Kind)
	}
}

func TestRelativeImportClimbsPackages(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("a.b.c", "a/b/c.py", pyscan.ImportDecl{Dots: 2, Module: "shared"}),
		record("a.shared", "a/shared.py"),
	})

	if got := res.Graph.OutNeighbors("a.b.c"); !reflect.DeepEqual(got, []string{"a.shared"}) {
		t.Errorf("Expected a.b.c -> a.shared, got %v", got)
	}
}

func TestRelativeImportBeyondRootDropped(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("app", "app.py", pyscan.ImportDecl{Dots: 3, Module: "x"}),
	})
	if res.Graph.EdgeCount() != 0 || len(res.Externals) != 0 {
		t.Errorf("Over-deep relative import should be dropped, got edges %v externals %v",
			res.Graph.Edges, res.Externals)
	}
}

func TestPackageInitResolvesDirectoryImport(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("app", "app.py", abs("pkg")),
		record("pkg", "pkg/__init__.py"),
	})
	if got := res.Graph.OutNeighbors("app"); !reflect.DeepEqual(got, []string{"pkg"}) {
		t.Errorf("Expected app -> pkg via package init, got %v", got)
	}
}

func TestFirstSegmentFallbackMatch(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("app", "app.py", abs("pkg.nonexistent")),
		record("pkg", "pkg/__init__.py"),
	})
	if got := res.Graph.OutNeighbors("app"); !reflect.DeepEqual(got, []string{"pkg"}) {
		t.Errorf("Expected fallback to package root, got %v", got)
	}
}

func TestAmbiguityPrefersLongestMatch(t *testing.T) {
	res := Build([]*pyscan.FileRecord{
		record("app", "app.py", pyscan.ImportDecl{Module: "pkg", Names: []string{"helper"}}),
		record("pkg", "pkg/__init__.py"),
		record("pkg.helper", "pkg/helper.py"),
	})

	if got := res.Graph.OutNeighbors("app"); !reflect.DeepEqual(got, []string{"pkg.helper"}) {
		t.Errorf("Expected the most specific match, got %v", got)
	}
	if res.Ambiguities != 1 {
		t.Errorf("Expected 1 counted ambiguity, got %d", res.Ambiguities)
	}
}

func TestBuildDeterministicAcrossInputOrder(t *testing.T) {
	forward := []*pyscan.FileRecord{
		record("app", "app.py", abs("core"), abs("util")),
		record("core", "core.py", abs("util")),
		record("util", "util.py"),
	}
	reversed := []*pyscan.FileRecord{forward[2], forward[1], forward[0]}

	a := Build(forward)
	b := Build(reversed)

	if !reflect.DeepEqual(a.Graph.Edges, b.Graph.Edges) {
		t.Errorf("Edge sets differ across input order: %v vs %v", a.Graph.Edges, b.Graph.Edges)
	}
	if !reflect.DeepEqual(a.Graph.ModuleIDs(), b.Graph.ModuleIDs()) {
		t.Errorf("Node sets differ across input order")
	}
}

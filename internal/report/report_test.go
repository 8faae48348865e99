package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"vulnmap/internal/analyzer"
	"vulnmap/internal/source"
)

func fixtureResult(t *testing.T) *analyzer.Result {
	t.Helper()
	tree := source.FromFiles(map[string]string{
		"app.py": "" +
			"import core\n" +
			"@app.route(\"/run\")\n" +
			"def run():\n" +
			"    pass\n",
		"core.py": "import util\nimport requests\n",
		"util.py": "eval(x)\n",
	})
	result, err := analyzer.Analyze(context.Background(), tree, analyzer.Options{})
	if err != nil {
		t.Fatalf("Fixture analysis failed: %v", err)
	}
	return result
}

func TestRenderTextSections(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(fixtureResult(t), &buf); err != nil {
		t.Fatalf("RenderText failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Analysis summary",
		"Modules: 3",
		"Findings",
		"dynamic-exec",
		"Attack paths",
		"util",
		"External dependencies: requests",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(fixtureResult(t), &buf, true); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded analyzer.Result
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.Summary.Modules != 3 {
		t.Errorf("Summary did not survive encoding: %+v", decoded.Summary)
	}
}

func TestExportGzipJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json.gz")

	if err := ExportGzipJSON(fixtureResult(t), path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("Export is not valid gzip: %v", err)
	}
	defer gz.Close()

	var decoded analyzer.Result
	if err := json.NewDecoder(gz).Decode(&decoded); err != nil {
		t.Fatalf("Compressed payload is not valid JSON: %v", err)
	}
	if decoded.Summary.TotalFindings != 1 {
		t.Errorf("Unexpected decoded summary: %+v", decoded.Summary)
	}
}

package rules

import "testing"

func TestDefaultRulesLoad(t *testing.T) {
	rs, err := Default()
	if err != nil {
		t.Fatalf("Embedded rules should parse: %v", err)
	}
	if err := rs.Validate(); err != nil {
		t.Fatalf("Embedded rules should validate: %v", err)
	}
	if len(rs.Calls) == 0 || len(rs.Imports) == 0 || len(rs.Frameworks) == 0 {
		t.Fatal("Embedded rules should define call, import, and framework tables")
	}
}

func TestMatchCall(t *testing.T) {
	rs, _ := Default()

	tests := []struct {
		callee       string
		wantRule     string
		wantSeverity Severity
	}{
		{"eval", "dynamic-exec", SeverityCritical},
		{"exec", "dynamic-exec", SeverityCritical},
		{"compile", "dynamic-compile", SeverityHigh},
		{"__import__", "dynamic-compile", SeverityHigh},
		{"pickle.loads", "unsafe-deserialization", SeverityCritical},
		{"yaml.load", "unsafe-deserialization", SeverityCritical},
		{"os.system", "shell-exec", SeverityCritical},
		{"input", "input-capture", SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.callee, func(t *testing.T) {
			rule := rs.MatchCall(tt.callee)
			if rule == nil {
				t.Fatalf("Expected %s to match a rule", tt.callee)
			}
			if rule.Name != tt.wantRule {
				t.Errorf("Expected rule %s, got %s", tt.wantRule, rule.Name)
			}
			if rule.Severity != tt.wantSeverity {
				t.Errorf("Expected severity %s, got %s", tt.wantSeverity, rule.Severity)
			}
		})
	}

	if rs.MatchCall("print") != nil {
		t.Error("print should not match any rule")
	}
}

func TestMatchImport(t *testing.T) {
	rs, _ := Default()

	if rs.MatchImport("pickle") == nil {
		t.Error("pickle import should match")
	}
	if rs.MatchImport("pickle.tools") == nil {
		t.Error("Dotted import should match on its first segment")
	}
	if rs.MatchImport("json") != nil {
		t.Error("json import should not match")
	}
}

func TestMatchSQL(t *testing.T) {
	rs, _ := Default()

	if rs.MatchSQL("cursor.execute") == nil {
		t.Error("cursor.execute should match on last segment")
	}
	if rs.MatchSQL("executemany") == nil {
		t.Error("Bare executemany should match")
	}
	if rs.MatchSQL("cursor.fetchall") != nil {
		t.Error("fetchall should not match")
	}
}

func TestMatchSubprocess(t *testing.T) {
	rs, _ := Default()

	rule := rs.MatchSubprocess("subprocess.run")
	if rule == nil {
		t.Fatal("subprocess.run should match")
	}
	if rule.Severity != SeverityHigh {
		t.Errorf("Base subprocess severity should be high, got %s", rule.Severity)
	}
	if rule.ShellSeverity != SeverityCritical {
		t.Errorf("shell=True severity should be critical, got %s", rule.ShellSeverity)
	}
}

func TestMatchRouteDecorator(t *testing.T) {
	rs, _ := Default()

	tests := []struct {
		decorator     string
		wantFramework string
	}{
		{"app.route", "flask"},
		{"bp.route", "flask"},
		{"route", "flask"},
		{"app.get", "fastapi"},
		{"app.post", "fastapi"},
		{"api_view", "django-rest"},
	}

	for _, tt := range tests {
		t.Run(tt.decorator, func(t *testing.T) {
			fw := rs.MatchRouteDecorator(tt.decorator)
			if fw == nil {
				t.Fatalf("Expected %s to match a framework", tt.decorator)
			}
			if fw.Name != tt.wantFramework {
				t.Errorf("Expected framework %s, got %s", tt.wantFramework, fw.Name)
			}
		})
	}

	if rs.MatchRouteDecorator("staticmethod") != nil {
		t.Error("staticmethod should not match any framework")
	}
}

func TestSeverityWeightOrdering(t *testing.T) {
	if SeverityCritical.Weight() <= SeverityHigh.Weight() {
		t.Error("critical should outweigh high")
	}
	if SeverityHigh.Weight() <= SeverityMedium.Weight() {
		t.Error("high should outweigh medium")
	}
	if Severity("bogus").Valid() {
		t.Error("Unknown severity should not be valid")
	}
}

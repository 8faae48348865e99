package gitfetch

import "testing"

func TestRepoName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/example/project.git", "project"},
		{"https://github.com/example/project", "project"},
		{"git@github.com:example/project.git", "project"},
		{"https://gitlab.com/group/sub/project/", "project"},
		{"local-checkout", "local-checkout"},
	}
	for _, tt := range tests {
		if got := RepoName(tt.url); got != tt.want {
			t.Errorf("RepoName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

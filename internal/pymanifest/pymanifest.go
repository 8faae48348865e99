// Package pymanifest reads a Python project's declared dependencies so
// observed external imports can be cross-checked against them.
package pymanifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Manifest is the declared dependency set of a project.
type Manifest struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
	Source       string   `json:"source"`
}

type pyprojectFile struct {
	Project struct {
		Name         string   `toml:"name"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name         string                 `toml:"name"`
			Dependencies map[string]interface{} `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// Load reads pyproject.toml or requirements.txt from the project root.
// A project with neither yields an empty manifest, not an error.
func Load(root string) (*Manifest, error) {
	if m, err := loadPyproject(filepath.Join(root, "pyproject.toml")); err != nil {
		return nil, err
	} else if m != nil {
		return m, nil
	}

	if m, err := loadRequirements(filepath.Join(root, "requirements.txt")); err != nil {
		return nil, err
	} else if m != nil {
		return m, nil
	}

	return &Manifest{}, nil
}

func loadPyproject(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var file pyprojectFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	m := &Manifest{Name: file.Project.Name, Source: "pyproject.toml"}
	for _, dep := range file.Project.Dependencies {
		if name := requirementName(dep); name != "" {
			m.Dependencies = append(m.Dependencies, name)
		}
	}
	for dep := range file.Tool.Poetry.Dependencies {
		if strings.EqualFold(dep, "python") {
			continue
		}
		m.Dependencies = append(m.Dependencies, normalize(dep))
	}
	if m.Name == "" {
		m.Name = file.Tool.Poetry.Name
	}

	m.Dependencies = dedupe(m.Dependencies)
	return m, nil
}

func loadRequirements(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m := &Manifest{Source: "requirements.txt"}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if name := requirementName(line); name != "" {
			m.Dependencies = append(m.Dependencies, name)
		}
	}

	m.Dependencies = dedupe(m.Dependencies)
	return m, nil
}

// Declared reports whether a package name is in the manifest, treating
// hyphens and underscores as equivalent.
func (m *Manifest) Declared(name string) bool {
	want := normalize(name)
	for _, dep := range m.Dependencies {
		if dep == want {
			return true
		}
	}
	return false
}

// Undeclared returns the external import names missing from the
// manifest, sorted. Import names and distribution names do not always
// match, so this is a hint list rather than a verdict.
func (m *Manifest) Undeclared(externals []string) []string {
	var missing []string
	for _, ext := range externals {
		if !m.Declared(ext) {
			missing = append(missing, ext)
		}
	}
	sort.Strings(missing)
	return missing
}

// requirementName strips the version constraint from a requirement
// specifier, e.g. "requests[socks]>=2.0 ; python_version > '3'".
func requirementName(spec string) string {
	end := len(spec)
	for i, r := range spec {
		if strings.ContainsRune("=<>!~[;( ", r) {
			end = i
			break
		}
	}
	return normalize(spec[:end])
}

func normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"
)

// LoadDir loads every *.yaml, *.yml and *.star file in dir.
// A missing directory yields an empty registry.
func LoadDir(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry()
		}
		return nil, fmt.Errorf("failed to access metrics directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("metrics path is not a directory: %s", dir)
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.star"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan metrics directory: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	var all []Metric
	for _, f := range files {
		var ms []Metric
		var err error
		if filepath.Ext(f) == ".star" {
			ms, err = loadStarlark(f)
		} else {
			ms, err = loadYAML(f)
		}
		if err != nil {
			return nil, err
		}
		all = append(all, ms...)
	}
	return NewRegistry(all...)
}

type yamlFile struct {
	Metrics []Metric `yaml:"metrics"`
}

func loadYAML(path string) ([]Metric, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob within the metrics directory
	if err != nil {
		return nil, &LoadError{File: filepath.Base(path), Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	var f yamlFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, &LoadError{File: filepath.Base(path), Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	for i := range f.Metrics {
		f.Metrics[i].Source = filepath.Base(path)
	}
	return f.Metrics, nil
}

// loadStarlark executes a .star file with a predeclared metric() builtin:
//
//	metric(name = "revenue", table = "orders", formula = "SUM(amount)", synonyms = ["sales"])
func loadStarlark(path string) ([]Metric, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob within the metrics directory
	if err != nil {
		return nil, &LoadError{File: filepath.Base(path), Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	var collected []Metric
	predeclared := starlark.StringDict{
		"metric": metricBuiltin(filepath.Base(path), &collected),
	}
	thread := &starlark.Thread{
		Name:  "metrics:" + filepath.Base(path),
		Print: func(_ *starlark.Thread, _ string) {},
	}

	if _, err := starlark.ExecFile(thread, path, content, predeclared); err != nil { //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
		return nil, &LoadError{File: filepath.Base(path), Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}
	return collected, nil
}

func metricBuiltin(source string, collected *[]Metric) *starlark.Builtin {
	return starlark.NewBuiltin("metric", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			m        = Metric{Source: source}
			synonyms *starlark.List
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"name", &m.Name,
			"table", &m.Table,
			"formula", &m.Formula,
			"synonyms?", &synonyms,
			"time_column?", &m.TimeColumn,
			"description?", &m.Description,
		); err != nil {
			return nil, err
		}
		if synonyms != nil {
			for i := 0; i < synonyms.Len(); i++ {
				s, ok := starlark.AsString(synonyms.Index(i))
				if !ok {
					return nil, fmt.Errorf("%s: synonyms must be strings, got %s", b.Name(), synonyms.Index(i).Type())
				}
				m.Synonyms = append(m.Synonyms, s)
			}
		}
		*collected = append(*collected, m)
		return starlark.None, nil
	})
}

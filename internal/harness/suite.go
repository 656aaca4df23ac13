package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ScenarioNotFoundError is returned when a named scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// FindScenarios expands a path into scenario files. A file is returned as
// is; a directory is walked for .yaml and .yml files, in lexical order.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(p)
		if !fi.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, p)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// SuiteResult summarizes a batch of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Results  []*Result         `json:"results,omitempty"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Path   string   `json:"path"`
	Name   string   `json:"name,omitempty"`
	Errors []string `json:"errors"`
}

// RunSuite loads and runs every scenario in paths. A failing scenario is
// recorded and the suite continues; only context cancellation stops it.
//
// For each path:
// 1. Load the scenario (strict YAML)
// 2. Run it via RunContext
// 3. Collect pass/fail
func RunSuite(ctx context.Context, paths []string) (*SuiteResult, error) {
	suite := &SuiteResult{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return suite, err
		}
		suite.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.fail(path, "", fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		result, err := RunContext(ctx, scenario)
		if err != nil {
			suite.fail(path, scenario.Name, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}
		suite.Results = append(suite.Results, result)

		if !result.Pass {
			suite.fail(path, scenario.Name, result.Errors...)
			continue
		}
		suite.Passed++
	}

	return suite, nil
}

func (s *SuiteResult) fail(path, name string, errs ...string) {
	s.Failed++
	s.Failures = append(s.Failures, ScenarioFailure{Path: path, Name: name, Errors: errs})
}

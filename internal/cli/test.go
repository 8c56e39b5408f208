package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/harness"
	"github.com/roach88/qcase/internal/ir"
)

type TestOptions struct {
	*RootOptions
	Update bool
	Filter string // glob over scenario base names
}

type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult is the summary written by the test command.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test [schemas-dir] [scenarios-dir]",
		Short: "Run query scenarios",
		Long: `Run YAML query scenarios against the schemas.

Each scenario seeds a fresh in-memory database, runs its reads and writes,
and checks the rendered SQL, parameters and nested rows. Scenarios without
their own schema directory use the schemas given here. When a golden file
exists under <scenarios-dir>/golden the canonical output must match it.

Exits 1 when any scenario fails and 2 when a directory cannot be read.

Examples:
  qcase test ./schemas ./scenarios
  qcase test ./schemas ./scenarios --filter "post-*"
  qcase test ./schemas ./scenarios --update
  qcase test ./schemas ./scenarios --format json`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenariosDir := rootOpts.config().ScenariosDir
			if len(args) > 1 {
				scenariosDir = args[1]
			}
			return runTests(opts, rootOpts.schemasDir(args), scenariosDir, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, schemasDir, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(schemasDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("schemas directory not found: %s", schemasDir))
	}
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	r := &scenarioRunner{opts: opts, schemasDir: schemasDir, cmd: cmd, logger: opts.logger()}
	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	for _, file := range scenarioFiles {
		sr := r.run(file)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles lists the .yaml and .yml files under dir whose base name
// matches filter, skipping golden directories.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && path != dir && d.Name() == "golden":
			return filepath.SkipDir
		case d.IsDir():
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// scenarioRunner runs scenario files, compiling the shared schemas at most
// once.
type scenarioRunner struct {
	opts       *TestOptions
	schemasDir string
	cmd        *cobra.Command
	logger     *zap.Logger

	schema    *ir.Schema
	schemaErr error
	loaded    bool
}

func (r *scenarioRunner) sharedSchema() (*ir.Schema, error) {
	if !r.loaded {
		r.schema, r.schemaErr = loadSchema(r.schemasDir)
		r.loaded = true
	}
	return r.schema, r.schemaErr
}

// fail reports a failed scenario in text mode and returns its result.
func (r *scenarioRunner) fail(name string, errs ...string) ScenarioResult {
	if r.opts.Format != "json" {
		w := r.cmd.OutOrStdout()
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range errs {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return ScenarioResult{Name: name, Pass: false, Errors: errs}
}

func (r *scenarioRunner) pass(name, note string) ScenarioResult {
	if r.opts.Format != "json" {
		fmt.Fprintf(r.cmd.OutOrStdout(), "✓ %s%s\n", name, note)
	}
	return ScenarioResult{Name: name, Pass: true}
}

// run executes a single scenario file and returns the result.
func (r *scenarioRunner) run(scenarioFile string) ScenarioResult {
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return r.fail(filepath.Base(scenarioFile), fmt.Sprintf("failed to load scenario: %v", err))
	}

	var schema *ir.Schema
	if scenario.Schema == "" {
		if schema, err = r.sharedSchema(); err != nil {
			return r.fail(scenario.Name, fmt.Sprintf("failed to load schemas: %v", err))
		}
	}

	result, err := harness.Run(commandContext(r.cmd), scenario, schema, harness.WithLogger(r.logger))
	if err != nil {
		return r.fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	snapshot, err := harness.MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return r.fail(scenario.Name, fmt.Sprintf("failed to marshal result: %v", err))
	}

	goldenPath := goldenFilePath(scenarioFile)
	if r.opts.Update {
		if err := writeGoldenFile(goldenPath, snapshot); err != nil {
			return r.fail(scenario.Name, fmt.Sprintf("%s: failed to update golden file: %v", ErrCodeWriteFailed, err))
		}
		if !result.Pass {
			return r.fail(scenario.Name, result.Errors...)
		}
		return r.pass(scenario.Name, " (golden updated)")
	}

	if _, err := os.Stat(goldenPath); err == nil {
		golden, err := os.ReadFile(goldenPath)
		if err != nil {
			return r.fail(scenario.Name, fmt.Sprintf("failed to read golden file: %v", err))
		}
		if !bytes.Equal(bytes.TrimSpace(golden), snapshot) {
			return r.fail(scenario.Name, "output does not match golden file (run with --update to regenerate)")
		}
	}

	if !result.Pass {
		return r.fail(scenario.Name, result.Errors...)
	}
	return r.pass(scenario.Name, "")
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(scenarioFile string) string {
	name := strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGoldenFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// failure is the error the command exits with, or nil when all passed.
func (r TestResult) failure() error {
	if r.Failed == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", r.Failed))
}

func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	failure := result.failure()
	if failure != nil {
		response.Status = "error"
		response.Error = &CLIError{Code: "E_TEST_FAILED", Message: failure.Error()}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(response); err != nil {
		return err
	}
	return failure
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if err := result.failure(); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}

// commandContext returns the command's context, or a background context when
// the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Package evals checks how well an LLM picks MAST tools and fills in their
// arguments from natural language requests. Suites are JSON files shipped
// with the package; a ToolSelector (an LLM client or a mock) is scored
// against them.
package evals

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
)

// Suite file names
const (
	ToolSelectionFile = "tool_selection.json"
	ConfusionPairFile = "confusion_pairs.json"
	ArgumentFile      = "argument_correctness.json"
)

//go:embed *.json
var builtin embed.FS

// ToolSelectionTest is a single tool selection case
type ToolSelectionTest struct {
	ID           string         `json:"id"`
	Category     string         `json:"category"`
	Input        string         `json:"input"`
	ExpectedTool string         `json:"expected_tool"`
	ExpectedArgs map[string]any `json:"expected_args"`
	NotTools     []string       `json:"not_tools"`
}

// ToolSelectionSuite contains all tool selection tests
type ToolSelectionSuite struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Tests       []ToolSelectionTest `json:"tests"`
}

// ConfusionPairTest is a single disambiguation case
type ConfusionPairTest struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Reason   string `json:"reason"`
}

// ConfusionPair is a group of tools that are easily mistaken for each other
type ConfusionPair struct {
	ID             string              `json:"id"`
	Tools          []string            `json:"tools"`
	Disambiguation string              `json:"disambiguation"`
	Tests          []ConfusionPairTest `json:"tests"`
}

// ConfusionPairSuite contains all confusion pair tests
type ConfusionPairSuite struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Pairs       []ConfusionPair `json:"pairs"`
}

// ArgumentTest is a single argument correctness case
type ArgumentTest struct {
	ID            string         `json:"id"`
	Tool          string         `json:"tool"`
	Input         string         `json:"input"`
	RequiredArgs  []string       `json:"required_args"`
	ExpectedArgs  map[string]any `json:"expected_args"`
	ForbiddenArgs []string       `json:"forbidden_args"`
	ArgNotes      string         `json:"arg_notes,omitempty"`
}

// ArgumentRules documents how arguments are expected to be written
type ArgumentRules struct {
	RadiusFormat    string `json:"radius_format"`
	ObsIDsFormat    string `json:"obs_ids_format"`
	TargetFormat    string `json:"target_format"`
	BooleanHandling string `json:"boolean_handling"`
}

// ArgumentSuite contains all argument correctness tests
type ArgumentSuite struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Tests       []ArgumentTest `json:"tests"`
	Rules       ArgumentRules  `json:"rules"`
}

// ToolSelectionResult is the outcome of one tool selection case
type ToolSelectionResult struct {
	TestID       string
	Input        string
	ExpectedTool string
	ActualTool   string
	Passed       bool
	Errors       []string
}

// ConfusionPairResult is the outcome of one confusion pair case
type ConfusionPairResult struct {
	PairID       string
	TestInput    string
	ExpectedTool string
	ActualTool   string
	Reason       string
	Passed       bool
}

// ArgumentResult is the outcome of one argument case
type ArgumentResult struct {
	TestID       string
	Tool         string
	ActualTool   string
	Input        string
	Passed       bool
	MissingArgs  []string
	WrongArgs    map[string]string // arg -> "expected X, got Y"
	ForbiddenHit []string
}

// EvalMetrics aggregates the results of a run
type EvalMetrics struct {
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Accuracy      float64
	ByCategory    map[string]*CategoryMetrics
	ByTool        map[string]*ToolMetrics
	FailedDetails []string
}

// CategoryMetrics contains metrics per category
type CategoryMetrics struct {
	Total  int
	Passed int
	Failed int
}

// ToolMetrics contains metrics per tool
type ToolMetrics struct {
	ExpectedCount  int // times tool was expected
	SelectedCount  int // times tool was actually selected
	CorrectCount   int // times tool was correctly selected
	FalsePositives int // times it was selected instead of another tool
	FalseNegatives int // times another tool was selected instead of it
}

func newMetrics() *EvalMetrics {
	return &EvalMetrics{
		ByCategory: make(map[string]*CategoryMetrics),
		ByTool:     make(map[string]*ToolMetrics),
	}
}

func (m *EvalMetrics) category(name string) *CategoryMetrics {
	if m.ByCategory[name] == nil {
		m.ByCategory[name] = &CategoryMetrics{}
	}
	return m.ByCategory[name]
}

func (m *EvalMetrics) tool(name string) *ToolMetrics {
	if m.ByTool[name] == nil {
		m.ByTool[name] = &ToolMetrics{}
	}
	return m.ByTool[name]
}

// record counts one case outcome in the given category
func (m *EvalMetrics) record(category string, passed bool, detail string) {
	m.TotalTests++
	c := m.category(category)
	c.Total++
	if passed {
		m.PassedTests++
		c.Passed++
		return
	}
	m.FailedTests++
	c.Failed++
	m.FailedDetails = append(m.FailedDetails, detail)
}

func (m *EvalMetrics) finish() {
	if m.TotalTests > 0 {
		m.Accuracy = float64(m.PassedTests) / float64(m.TotalTests)
	}
}

func loadJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// LoadToolSelectionSuite loads tool selection tests from a JSON file
func LoadToolSelectionSuite(path string) (*ToolSelectionSuite, error) {
	var suite ToolSelectionSuite
	if err := loadJSON(os.DirFS(filepath.Dir(path)), filepath.Base(path), &suite); err != nil {
		return nil, err
	}
	return &suite, nil
}

// LoadConfusionPairSuite loads confusion pair tests from a JSON file
func LoadConfusionPairSuite(path string) (*ConfusionPairSuite, error) {
	var suite ConfusionPairSuite
	if err := loadJSON(os.DirFS(filepath.Dir(path)), filepath.Base(path), &suite); err != nil {
		return nil, err
	}
	return &suite, nil
}

// LoadArgumentSuite loads argument correctness tests from a JSON file
func LoadArgumentSuite(path string) (*ArgumentSuite, error) {
	var suite ArgumentSuite
	if err := loadJSON(os.DirFS(filepath.Dir(path)), filepath.Base(path), &suite); err != nil {
		return nil, err
	}
	return &suite, nil
}

// Suites bundles the three evaluation suites
type Suites struct {
	ToolSelection  *ToolSelectionSuite
	ConfusionPairs *ConfusionPairSuite
	Arguments      *ArgumentSuite
}

// LoadAllEvals loads all suites from a directory. An empty dir loads the
// suites built into the package.
func LoadAllEvals(dir string) (*Suites, error) {
	var fsys fs.FS = builtin
	if dir != "" {
		fsys = os.DirFS(dir)
	}

	s := &Suites{
		ToolSelection:  &ToolSelectionSuite{},
		ConfusionPairs: &ConfusionPairSuite{},
		Arguments:      &ArgumentSuite{},
	}
	if err := loadJSON(fsys, ToolSelectionFile, s.ToolSelection); err != nil {
		return nil, fmt.Errorf("loading tool selection: %w", err)
	}
	if err := loadJSON(fsys, ConfusionPairFile, s.ConfusionPairs); err != nil {
		return nil, fmt.Errorf("loading confusion pairs: %w", err)
	}
	if err := loadJSON(fsys, ArgumentFile, s.Arguments); err != nil {
		return nil, fmt.Errorf("loading arguments: %w", err)
	}
	return s, nil
}

// TotalTests counts the cases across all suites
func (s *Suites) TotalTests() int {
	total := len(s.ToolSelection.Tests) + len(s.Arguments.Tests)
	for _, pair := range s.ConfusionPairs.Pairs {
		total += len(pair.Tests)
	}
	return total
}

// ReferencedTools returns every tool name the suites mention, sorted
func (s *Suites) ReferencedTools() []string {
	seen := make(map[string]bool)
	for _, test := range s.ToolSelection.Tests {
		seen[test.ExpectedTool] = true
		for _, tool := range test.NotTools {
			seen[tool] = true
		}
	}
	for _, pair := range s.ConfusionPairs.Pairs {
		for _, tool := range pair.Tools {
			seen[tool] = true
		}
		for _, test := range pair.Tests {
			seen[test.Expected] = true
		}
	}
	for _, test := range s.Arguments.Tests {
		seen[test.Tool] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckTools compares the suites with the registered tool names. It returns
// the referenced tools that are not registered and the registered tools no
// case expects.
func (s *Suites) CheckTools(registered []string) (unknown, uncovered []string) {
	known := make(map[string]bool, len(registered))
	for _, name := range registered {
		known[name] = true
	}
	referenced := make(map[string]bool)
	for _, name := range s.ReferencedTools() {
		referenced[name] = true
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	for _, name := range registered {
		if !referenced[name] {
			uncovered = append(uncovered, name)
		}
	}
	return unknown, uncovered
}

// ToolSelector is implemented by an LLM client or a mock
type ToolSelector interface {
	// SelectTool returns the tool name and arguments for a natural language input
	SelectTool(input string) (toolName string, args map[string]any, err error)
}

// EvaluateToolSelection runs tool selection tests against a selector
func EvaluateToolSelection(suite *ToolSelectionSuite, selector ToolSelector) (*EvalMetrics, []ToolSelectionResult) {
	metrics := newMetrics()
	var results []ToolSelectionResult

	for _, test := range suite.Tests {
		metrics.tool(test.ExpectedTool).ExpectedCount++

		actualTool, actualArgs, err := selector.SelectTool(test.Input)
		metrics.tool(actualTool).SelectedCount++

		result := ToolSelectionResult{
			TestID:       test.ID,
			Input:        test.Input,
			ExpectedTool: test.ExpectedTool,
			ActualTool:   actualTool,
			Passed:       true,
		}
		fail := func(format string, a ...any) {
			result.Passed = false
			result.Errors = append(result.Errors, fmt.Sprintf(format, a...))
		}

		if err != nil {
			fail("selector error: %v", err)
		}

		if actualTool != test.ExpectedTool {
			fail("wrong tool: expected %s, got %s", test.ExpectedTool, actualTool)
			metrics.tool(test.ExpectedTool).FalseNegatives++
			metrics.tool(actualTool).FalsePositives++
		} else {
			metrics.tool(test.ExpectedTool).CorrectCount++
		}

		for _, forbidden := range test.NotTools {
			if actualTool == forbidden {
				fail("selected forbidden tool: %s", forbidden)
			}
		}

		for _, key := range sortedKeys(test.ExpectedArgs) {
			expected := test.ExpectedArgs[key]
			actual, ok := actualArgs[key]
			switch {
			case !ok:
				fail("missing arg %s (expected %v)", key, expected)
			case !compareValues(expected, actual):
				fail("wrong arg %s: expected %v, got %v", key, expected, actual)
			}
		}

		metrics.record(test.Category, result.Passed,
			fmt.Sprintf("[%s] %s: %s", test.ID, test.Input, strings.Join(result.Errors, "; ")))
		results = append(results, result)
	}

	metrics.finish()
	return metrics, results
}

// EvaluateConfusionPairs runs confusion pair tests against a selector
func EvaluateConfusionPairs(suite *ConfusionPairSuite, selector ToolSelector) (*EvalMetrics, []ConfusionPairResult) {
	metrics := newMetrics()
	var results []ConfusionPairResult

	for _, pair := range suite.Pairs {
		for _, test := range pair.Tests {
			metrics.tool(test.Expected).ExpectedCount++

			actualTool, _, err := selector.SelectTool(test.Input)
			metrics.tool(actualTool).SelectedCount++

			result := ConfusionPairResult{
				PairID:       pair.ID,
				TestInput:    test.Input,
				ExpectedTool: test.Expected,
				ActualTool:   actualTool,
				Reason:       test.Reason,
				Passed:       err == nil && actualTool == test.Expected,
			}

			if result.Passed {
				metrics.tool(test.Expected).CorrectCount++
			} else {
				metrics.tool(test.Expected).FalseNegatives++
				metrics.tool(actualTool).FalsePositives++
			}
			metrics.record(pair.ID, result.Passed,
				fmt.Sprintf("[%s] %s: expected %s, got %s (%s)",
					pair.ID, test.Input, test.Expected, actualTool, test.Reason))
			results = append(results, result)
		}
	}

	metrics.finish()
	return metrics, results
}

// EvaluateArguments runs argument correctness tests against a selector
func EvaluateArguments(suite *ArgumentSuite, selector ToolSelector) (*EvalMetrics, []ArgumentResult) {
	metrics := newMetrics()
	var results []ArgumentResult

	for _, test := range suite.Tests {
		actualTool, actualArgs, err := selector.SelectTool(test.Input)

		result := ArgumentResult{
			TestID:     test.ID,
			Tool:       test.Tool,
			ActualTool: actualTool,
			Input:      test.Input,
			Passed:     err == nil && actualTool == test.Tool,
			WrongArgs:  make(map[string]string),
		}

		// Arguments only mean something for the right tool
		if result.Passed {
			for _, req := range test.RequiredArgs {
				if _, ok := actualArgs[req]; !ok {
					result.MissingArgs = append(result.MissingArgs, req)
				}
			}
			for _, key := range sortedKeys(test.ExpectedArgs) {
				expected := test.ExpectedArgs[key]
				actual, ok := actualArgs[key]
				switch {
				case !ok:
					if !containsString(result.MissingArgs, key) {
						result.MissingArgs = append(result.MissingArgs, key)
					}
				case !compareValues(expected, actual):
					result.WrongArgs[key] = fmt.Sprintf("expected %v, got %v", expected, actual)
				}
			}
			for _, forbidden := range test.ForbiddenArgs {
				if _, ok := actualArgs[forbidden]; ok {
					result.ForbiddenHit = append(result.ForbiddenHit, forbidden)
				}
			}
			result.Passed = len(result.MissingArgs) == 0 && len(result.WrongArgs) == 0 && len(result.ForbiddenHit) == 0
		}

		metrics.record(test.Tool, result.Passed, argumentDetail(test, result, err))
		results = append(results, result)
	}

	metrics.finish()
	return metrics, results
}

func argumentDetail(test ArgumentTest, result ArgumentResult, err error) string {
	var details []string
	switch {
	case err != nil:
		details = append(details, fmt.Sprintf("selector error: %v", err))
	case result.ActualTool != test.Tool:
		details = append(details, fmt.Sprintf("wrong tool: %s", result.ActualTool))
	}
	if len(result.MissingArgs) > 0 {
		details = append(details, fmt.Sprintf("missing: %v", result.MissingArgs))
	}
	for _, k := range sortedKeys(result.WrongArgs) {
		details = append(details, fmt.Sprintf("%s: %s", k, result.WrongArgs[k]))
	}
	if len(result.ForbiddenHit) > 0 {
		details = append(details, fmt.Sprintf("forbidden: %v", result.ForbiddenHit))
	}
	return fmt.Sprintf("[%s] %s: %s", test.ID, test.Input, strings.Join(details, "; "))
}

// compareValues compares expected and actual values, tolerating the numeric
// type differences JSON decoding introduces
func compareValues(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	ev := reflect.ValueOf(expected)
	av := reflect.ValueOf(actual)

	if isNumber(ev) && isNumber(av) {
		return toFloat(ev) == toFloat(av)
	}

	if ev.Kind() == reflect.Slice && av.Kind() == reflect.Slice {
		if ev.Len() != av.Len() {
			return false
		}
		for i := 0; i < ev.Len(); i++ {
			if !compareValues(ev.Index(i).Interface(), av.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	if es, ok := expected.(string); ok {
		if as, ok := actual.(string); ok {
			return strings.EqualFold(strings.TrimSpace(es), strings.TrimSpace(as))
		}
	}

	return reflect.DeepEqual(expected, actual)
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FormatMetrics returns a human-readable summary of evaluation metrics
func FormatMetrics(metrics *EvalMetrics, suiteName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== %s ===\n", suiteName)
	fmt.Fprintf(&b, "Total: %d tests\n", metrics.TotalTests)
	fmt.Fprintf(&b, "Passed: %d (%.1f%%)\n", metrics.PassedTests, metrics.Accuracy*100)
	fmt.Fprintf(&b, "Failed: %d\n", metrics.FailedTests)

	if len(metrics.ByCategory) > 0 {
		b.WriteString("\nBy Category:\n")
		for _, cat := range sortedKeys(metrics.ByCategory) {
			m := metrics.ByCategory[cat]
			if m.Total > 0 {
				acc := float64(m.Passed) / float64(m.Total) * 100
				fmt.Fprintf(&b, "  %-35s: %d/%d (%.0f%%)\n", cat, m.Passed, m.Total, acc)
			}
		}
	}

	const maxShown = 10
	if n := len(metrics.FailedDetails); n > 0 {
		shown := metrics.FailedDetails
		if n > maxShown {
			fmt.Fprintf(&b, "\nFailed Tests (showing first %d of %d):\n", maxShown, n)
			shown = shown[:maxShown]
		} else {
			b.WriteString("\nFailed Tests:\n")
		}
		for _, detail := range shown {
			fmt.Fprintf(&b, "  - %s\n", detail)
		}
	}

	return b.String()
}

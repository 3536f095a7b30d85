package evals

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/olgasafonova/mast-mcp-server/tools"
)

// MockToolSelector implements ToolSelector for testing
type MockToolSelector struct {
	// Responses maps input strings to tool selections
	Responses map[string]mockResponse
	// DefaultTool is returned if input isn't in Responses
	DefaultTool string
	// Err is returned with every selection when set
	Err error
}

type mockResponse struct {
	Tool string
	Args map[string]any
}

func (m *MockToolSelector) SelectTool(input string) (string, map[string]any, error) {
	if resp, ok := m.Responses[input]; ok {
		return resp.Tool, resp.Args, m.Err
	}
	return m.DefaultTool, nil, m.Err
}

// PerfectToolSelector returns the expected answer for each known input
type PerfectToolSelector struct {
	suites *Suites
}

func (p *PerfectToolSelector) SelectTool(input string) (string, map[string]any, error) {
	for _, test := range p.suites.ToolSelection.Tests {
		if test.Input == input {
			return test.ExpectedTool, test.ExpectedArgs, nil
		}
	}
	for _, pair := range p.suites.ConfusionPairs.Pairs {
		for _, test := range pair.Tests {
			if test.Input == input {
				return test.Expected, nil, nil
			}
		}
	}
	for _, test := range p.suites.Arguments.Tests {
		if test.Input == input {
			return test.Tool, test.ExpectedArgs, nil
		}
	}
	return "", nil, nil
}

func loadBuiltin(t *testing.T) *Suites {
	t.Helper()
	suites, err := LoadAllEvals("")
	if err != nil {
		t.Fatalf("Failed to load built-in suites: %v", err)
	}
	return suites
}

func TestLoadToolSelectionSuite(t *testing.T) {
	suite, err := LoadToolSelectionSuite(filepath.Join(".", ToolSelectionFile))
	if err != nil {
		t.Fatalf("Failed to load tool selection suite: %v", err)
	}

	if suite.Name == "" {
		t.Error("Suite name should not be empty")
	}
	if len(suite.Tests) == 0 {
		t.Fatal("Suite should have tests")
	}

	for _, test := range suite.Tests {
		if test.ID == "" || test.Input == "" || test.ExpectedTool == "" {
			t.Errorf("Test %+v is missing required fields", test)
		}
	}
}

func TestLoadConfusionPairSuite(t *testing.T) {
	suite, err := LoadConfusionPairSuite(filepath.Join(".", ConfusionPairFile))
	if err != nil {
		t.Fatalf("Failed to load confusion pair suite: %v", err)
	}

	if len(suite.Pairs) == 0 {
		t.Fatal("Suite should have confusion pairs")
	}
	for _, pair := range suite.Pairs {
		if len(pair.Tools) < 2 {
			t.Errorf("Pair %s should have at least 2 tools", pair.ID)
		}
		for _, test := range pair.Tests {
			if !containsString(pair.Tools, test.Expected) {
				t.Errorf("Pair %s expects %s, which is not one of its tools", pair.ID, test.Expected)
			}
		}
	}
}

func TestLoadArgumentSuite(t *testing.T) {
	suite, err := LoadArgumentSuite(filepath.Join(".", ArgumentFile))
	if err != nil {
		t.Fatalf("Failed to load argument suite: %v", err)
	}

	if len(suite.Tests) == 0 {
		t.Fatal("Suite should have tests")
	}
	if suite.Rules.RadiusFormat == "" {
		t.Error("Radius format rule should be documented")
	}
	for _, test := range suite.Tests {
		for _, req := range test.RequiredArgs {
			if _, ok := test.ExpectedArgs[req]; !ok {
				t.Errorf("Test %s requires %s but does not give its expected value", test.ID, req)
			}
		}
	}
}

func TestLoadSuite_MissingFile(t *testing.T) {
	if _, err := LoadToolSelectionSuite(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := LoadAllEvals(t.TempDir()); err == nil {
		t.Error("Expected error for a directory without suites")
	}
}

func TestLoadAllEvals_DirectoryMatchesBuiltin(t *testing.T) {
	fromDir, err := LoadAllEvals(".")
	if err != nil {
		t.Fatalf("Failed to load suites from directory: %v", err)
	}
	builtin := loadBuiltin(t)

	if fromDir.TotalTests() != builtin.TotalTests() {
		t.Errorf("directory has %d tests, built-in has %d", fromDir.TotalTests(), builtin.TotalTests())
	}
}

func TestSuitesMatchRegisteredTools(t *testing.T) {
	suites := loadBuiltin(t)

	var registered []string
	for _, spec := range tools.AllTools {
		registered = append(registered, spec.Name)
	}

	unknown, uncovered := suites.CheckTools(registered)
	if len(unknown) > 0 {
		t.Errorf("Suites reference unregistered tools: %v", unknown)
	}
	if len(uncovered) > 0 {
		t.Errorf("Registered tools without eval cases: %v", uncovered)
	}
}

func TestCheckTools(t *testing.T) {
	suites := &Suites{
		ToolSelection: &ToolSelectionSuite{Tests: []ToolSelectionTest{
			{ExpectedTool: "a", NotTools: []string{"b"}},
		}},
		ConfusionPairs: &ConfusionPairSuite{Pairs: []ConfusionPair{
			{Tools: []string{"a", "gone"}},
		}},
		Arguments: &ArgumentSuite{},
	}

	unknown, uncovered := suites.CheckTools([]string{"a", "b", "c"})
	if strings.Join(unknown, ",") != "gone" {
		t.Errorf("unknown = %v, want [gone]", unknown)
	}
	if strings.Join(uncovered, ",") != "c" {
		t.Errorf("uncovered = %v, want [c]", uncovered)
	}
	if got := strings.Join(suites.ReferencedTools(), ","); got != "a,b,gone" {
		t.Errorf("ReferencedTools = %s", got)
	}
}

func TestEvaluateBuiltinSuites_PerfectSelector(t *testing.T) {
	suites := loadBuiltin(t)
	perfect := &PerfectToolSelector{suites: suites}

	metrics, results := EvaluateToolSelection(suites.ToolSelection, perfect)
	if metrics.Accuracy != 1.0 {
		t.Errorf("Tool selection accuracy = %.2f, want 1.0: %v", metrics.Accuracy, metrics.FailedDetails)
	}
	if len(results) != len(suites.ToolSelection.Tests) {
		t.Errorf("got %d results, want %d", len(results), len(suites.ToolSelection.Tests))
	}

	metrics, _ = EvaluateConfusionPairs(suites.ConfusionPairs, perfect)
	if metrics.Accuracy != 1.0 {
		t.Errorf("Confusion pair accuracy = %.2f, want 1.0: %v", metrics.Accuracy, metrics.FailedDetails)
	}

	metrics, _ = EvaluateArguments(suites.Arguments, perfect)
	if metrics.Accuracy != 1.0 {
		t.Errorf("Argument accuracy = %.2f, want 1.0: %v", metrics.Accuracy, metrics.FailedDetails)
	}
}

func TestEvaluateToolSelectionWithWrongAnswers(t *testing.T) {
	suite := &ToolSelectionSuite{
		Name: "Test Suite",
		Tests: []ToolSelectionTest{
			{
				ID:           "test-001",
				Category:     "search",
				Input:        "find JWST observations of TRAPPIST-1",
				ExpectedTool: "mast_observation_query",
				ExpectedArgs: map[string]any{"target": "TRAPPIST-1"},
				NotTools:     []string{"get_exoplanet_properties_by_name"},
			},
			{
				ID:           "test-002",
				Category:     "details",
				Input:        "show observation j8pu0y010",
				ExpectedTool: "mast_observation_details",
				ExpectedArgs: map[string]any{"obs_id": "j8pu0y010"},
			},
		},
	}

	wrongSelector := &MockToolSelector{DefaultTool: "get_exoplanet_properties_by_name"}
	metrics, results := EvaluateToolSelection(suite, wrongSelector)

	if metrics.PassedTests != 0 || metrics.FailedTests != 2 {
		t.Errorf("passed=%d failed=%d, want 0 and 2", metrics.PassedTests, metrics.FailedTests)
	}
	if metrics.Accuracy != 0 {
		t.Errorf("Wrong selector should have 0%% accuracy, got %.1f%%", metrics.Accuracy*100)
	}
	if got := metrics.ByTool["get_exoplanet_properties_by_name"].FalsePositives; got != 2 {
		t.Errorf("FalsePositives = %d, want 2", got)
	}
	if got := metrics.ByCategory["search"].Failed; got != 1 {
		t.Errorf("search failures = %d, want 1", got)
	}

	for _, result := range results {
		if result.Passed {
			t.Errorf("Test %s should not pass with wrong selector", result.TestID)
		}
	}
	if !strings.Contains(strings.Join(results[0].Errors, ";"), "forbidden tool") {
		t.Errorf("Expected forbidden tool error, got %v", results[0].Errors)
	}
}

func TestEvaluateToolSelection_SelectorError(t *testing.T) {
	suite := &ToolSelectionSuite{Tests: []ToolSelectionTest{
		{ID: "t", Category: "c", Input: "x", ExpectedTool: "list_mast_missions"},
	}}
	selector := &MockToolSelector{DefaultTool: "list_mast_missions", Err: errors.New("timeout")}

	metrics, results := EvaluateToolSelection(suite, selector)
	if metrics.PassedTests != 0 {
		t.Error("A selector error should fail the case")
	}
	if !strings.Contains(results[0].Errors[0], "timeout") {
		t.Errorf("Errors = %v", results[0].Errors)
	}
}

func TestEvaluateConfusionPairs(t *testing.T) {
	suite := &ConfusionPairSuite{
		Pairs: []ConfusionPair{
			{
				ID:    "by-name-vs-id",
				Tools: []string{"get_exoplanet_properties_by_name", "get_exoplanet_properties"},
				Tests: []ConfusionPairTest{
					{Input: "mass of WASP-39 b", Expected: "get_exoplanet_properties_by_name"},
					{Input: "properties of id 12", Expected: "get_exoplanet_properties"},
				},
			},
		},
	}

	selector := &MockToolSelector{
		Responses: map[string]mockResponse{
			"mass of WASP-39 b":   {Tool: "get_exoplanet_properties_by_name"},
			"properties of id 12": {Tool: "get_exoplanet_properties_by_name"},
		},
	}

	metrics, results := EvaluateConfusionPairs(suite, selector)

	if metrics.TotalTests != 2 || metrics.PassedTests != 1 {
		t.Errorf("total=%d passed=%d, want 2 and 1", metrics.TotalTests, metrics.PassedTests)
	}
	if metrics.Accuracy != 0.5 {
		t.Errorf("Accuracy = %.2f, want 0.5", metrics.Accuracy)
	}
	if results[1].Passed {
		t.Error("Second case picked the wrong tool and should fail")
	}
	if metrics.ByTool["get_exoplanet_properties"].FalseNegatives != 1 {
		t.Error("Expected a false negative for get_exoplanet_properties")
	}
}

func TestEvaluateArguments(t *testing.T) {
	suite := &ArgumentSuite{
		Tests: []ArgumentTest{
			{
				ID:            "args-001",
				Tool:          "get_mast_metadata",
				Input:         "first 25 product fields",
				RequiredArgs:  []string{"data_type"},
				ExpectedArgs:  map[string]any{"data_type": "products", "limit": float64(25)},
				ForbiddenArgs: []string{"obs_id"},
			},
		},
	}

	correct := &MockToolSelector{
		Responses: map[string]mockResponse{
			"first 25 product fields": {
				Tool: "get_mast_metadata",
				Args: map[string]any{"data_type": "Products", "limit": 25},
			},
		},
	}

	metrics, results := EvaluateArguments(suite, correct)
	if metrics.PassedTests != 1 {
		t.Errorf("Expected 1 passed test, got %d", metrics.PassedTests)
	}
	if len(results) != 1 || !results[0].Passed {
		t.Errorf("Test should pass: %+v", results)
	}
}

func TestEvaluateArguments_Failures(t *testing.T) {
	suite := &ArgumentSuite{
		Tests: []ArgumentTest{
			{
				ID:            "forbidden",
				Tool:          "get_exoplanet_properties_by_name",
				Input:         "properties of 55 Cnc e",
				RequiredArgs:  []string{"name"},
				ExpectedArgs:  map[string]any{"name": "55 Cnc e"},
				ForbiddenArgs: []string{"exoplanet_id"},
			},
			{
				ID:           "missing",
				Tool:         "mast_observation_query",
				Input:        "HST data of M31",
				RequiredArgs: []string{"target"},
				ExpectedArgs: map[string]any{"target": "M31", "mission_name": "HST"},
			},
			{
				ID:    "wrong tool",
				Tool:  "mast_product_list",
				Input: "files of obsid 1",
			},
		},
	}

	selector := &MockToolSelector{
		Responses: map[string]mockResponse{
			"properties of 55 Cnc e": {
				Tool: "get_exoplanet_properties_by_name",
				Args: map[string]any{"name": "55 Cnc e", "exoplanet_id": "7"},
			},
			"HST data of M31": {
				Tool: "mast_observation_query",
				Args: map[string]any{"mission_name": "JWST"},
			},
		},
		DefaultTool: "mast_observation_details",
	}

	metrics, results := EvaluateArguments(suite, selector)

	if metrics.PassedTests != 0 || len(results) != 3 {
		t.Fatalf("passed=%d results=%d, want 0 and 3", metrics.PassedTests, len(results))
	}
	if len(results[0].ForbiddenHit) != 1 {
		t.Error("Should flag forbidden arg usage")
	}
	if strings.Join(results[1].MissingArgs, ",") != "target" {
		t.Errorf("MissingArgs = %v, want [target]", results[1].MissingArgs)
	}
	if _, ok := results[1].WrongArgs["mission_name"]; !ok {
		t.Error("Should flag the wrong mission_name")
	}
	if results[2].ActualTool != "mast_observation_details" {
		t.Errorf("ActualTool = %s", results[2].ActualTool)
	}
	if !strings.Contains(metrics.FailedDetails[2], "wrong tool") {
		t.Errorf("detail = %s", metrics.FailedDetails[2])
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"equal strings", "M31", "M31", true},
		{"case and space insensitive strings", "infrared", " INFRARED", true},
		{"different strings", "HST", "JWST", false},
		{"int vs float64", 20, float64(20), true},
		{"float64 vs int", float64(3), 3, true},
		{"equal slices", []any{"1", "2"}, []string{"1", "2"}, true},
		{"different slices", []string{"1", "2"}, []string{"1", "3"}, false},
		{"different lengths", []string{"1"}, []string{"1", "2"}, false},
		{"nil values", nil, nil, true},
		{"nil vs value", nil, "test", false},
		{"equal bools", true, true, true},
		{"different bools", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareValues(tt.expected, tt.actual); got != tt.want {
				t.Errorf("compareValues(%v, %v) = %v, want %v", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}

func TestFormatMetrics(t *testing.T) {
	metrics := &EvalMetrics{
		TotalTests:  10,
		PassedTests: 8,
		FailedTests: 2,
		Accuracy:    0.8,
		ByCategory: map[string]*CategoryMetrics{
			"search":     {Total: 5, Passed: 4, Failed: 1},
			"exoplanets": {Total: 5, Passed: 4, Failed: 1},
		},
		FailedDetails: []string{
			"[test-1] input: error",
			"[test-2] input: error",
		},
	}

	output := FormatMetrics(metrics, "Test Suite")

	for _, want := range []string{"=== Test Suite ===", "80.0%", "search", "exoplanets", "Failed Tests:"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Index(output, "exoplanets") > strings.Index(output, "search") {
		t.Error("Categories should be sorted")
	}
}

func TestFormatMetrics_TruncatesFailures(t *testing.T) {
	metrics := &EvalMetrics{TotalTests: 12, FailedTests: 12}
	for i := 0; i < 12; i++ {
		metrics.FailedDetails = append(metrics.FailedDetails, "detail")
	}

	output := FormatMetrics(metrics, "Many Failures")
	if !strings.Contains(output, "showing first 10 of 12") {
		t.Errorf("Expected truncation notice:\n%s", output)
	}
	if n := strings.Count(output, "  - detail"); n != 10 {
		t.Errorf("showed %d failures, want 10", n)
	}
}

// internal/models/testcase.go
package models

const (
	DefaultPriority              = "Medium"
	DefaultEndToEnd              = "No"
	DefaultFunctionalIntegration = "Functional"
)

// TestCase is one normalized test case record. Every text field is present
// (possibly empty) once it has been through the normalizer.
type TestCase struct {
	Module                string   `json:"module"`
	ScenarioID            string   `json:"scenario_id"`
	TestScenario          string   `json:"test_scenario"`
	FunctionalIntegration string   `json:"functional_integration"`
	TestCaseID            string   `json:"testcase_id"`
	TestCaseTitle         string   `json:"testcase_title"`
	PreCondition          string   `json:"pre_condition"`
	TestData              string   `json:"test_data"`
	Steps                 []string `json:"steps"`
	ExpectedResult        string   `json:"expected_result"`
	ActualResult          string   `json:"actual_result"`
	Status                string   `json:"status"`
	Comments              string   `json:"comments"`
	Priority              string   `json:"priority"`
	PositiveNegative      string   `json:"positive_negative"`
	EndToEnd              string   `json:"end_to_end"`
}

// Clone returns a deep copy so callers never share the Steps slice.
func (tc TestCase) Clone() TestCase {
	out := tc
	if tc.Steps != nil {
		out.Steps = append([]string(nil), tc.Steps...)
	}
	return out
}

package normalize

import (
	"fmt"

	"story-workers/internal/models"
)

// TestCaseID formats a sequence number as TC_001.
func TestCaseID(n int) string {
	return fmt.Sprintf("TC_%03d", n)
}

// NormalizeTestCases turns decoded model output into complete test cases.
// Items without an identifier get TC_<n> from a counter that starts at
// start and advances once per accepted item. Items that are not mappings
// are skipped and do not consume a number.
func NormalizeTestCases(raw any, module string, start int) []models.TestCase {
	items := asList(raw)
	out := make([]models.TestCase, 0, len(items))
	seq := start

	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}

		tc := models.TestCase{
			Module:                field(item, "module", "module_name"),
			ScenarioID:            field(item, "scenario_id", "scenarioId"),
			TestScenario:          field(item, "test_scenario", "scenario"),
			FunctionalIntegration: field(item, "functional_integration", "functional/integration"),
			TestCaseID:            field(item, "testcase_id", "test_case_id", "test_id"),
			TestCaseTitle:         field(item, "testcase_title", "title"),
			PreCondition:          field(item, "pre_condition", "preconditions", "precondition"),
			TestData:              field(item, "test_data"),
			Steps:                 list(item, "steps", "steps_to_execute"),
			ExpectedResult:        field(item, "expected_result", "expected"),
			ActualResult:          field(item, "actual_result"),
			Status:                field(item, "status"),
			Comments:              field(item, "comments"),
			Priority:              field(item, "priority"),
			PositiveNegative:      field(item, "positive_negative", "positive/negative"),
			EndToEnd:              yesNo(item["end_to_end"]),
		}

		if tc.Module == "" {
			tc.Module = module
		}
		if tc.TestCaseID == "" {
			tc.TestCaseID = TestCaseID(seq)
		}
		if tc.TestCaseTitle == "" {
			tc.TestCaseTitle = tc.TestScenario
		}
		if tc.TestCaseTitle == "" {
			tc.TestCaseTitle = "Test " + tc.TestCaseID
		}
		if tc.FunctionalIntegration == "" {
			tc.FunctionalIntegration = models.DefaultFunctionalIntegration
		}
		if tc.Priority == "" {
			tc.Priority = models.DefaultPriority
		}
		if tc.EndToEnd == "" {
			tc.EndToEnd = models.DefaultEndToEnd
		}

		out = append(out, tc)
		seq++
	}
	return out
}

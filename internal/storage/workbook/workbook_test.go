package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-workers/internal/common/logger"
	"story-workers/internal/models"
)

func sampleCases() []models.TestCase {
	return []models.TestCase{
		{
			Module: "Login", TestScenario: "valid login", TestCaseTitle: "login ok",
			Steps: []string{"open page", "submit"}, ExpectedResult: "dashboard",
			Priority: "High", PositiveNegative: "Positive", EndToEnd: "No",
		},
		{
			Module: "Login", TestScenario: "invalid login", TestCaseTitle: "bad password",
			Steps: []string{"1. open page", "2. submit wrong password"}, ExpectedResult: "error shown",
		},
	}
}

func TestAppendTestCases_NewWorkbook(t *testing.T) {
	wb := New(t.TempDir(), logger.NewTestLogger(t))

	added, err := wb.AppendTestCases("shop", sampleCases())
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	rows, err := wb.ReadRows("shop")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])

	assert.Equal(t, "SC_001", rows[1][colScenarioID])
	assert.Equal(t, "TC_001", rows[1][colTestCaseID])
	assert.Equal(t, "Functional", rows[1][colFunctional])
	assert.Equal(t, "1. open page\n2. submit", rows[1][colSteps])

	assert.Equal(t, "SC_002", rows[2][colScenarioID])
	assert.Equal(t, "TC_002", rows[2][colTestCaseID])
	assert.Equal(t, "1. open page\n2. submit wrong password", rows[2][colSteps])
	// defaults for blank priority and end-to-end
	assert.Equal(t, "Medium", rows[2][13])
	assert.Equal(t, "No", rows[2][15])
}

func TestAppendTestCases_ContinuesNumberingAndSkipsDuplicates(t *testing.T) {
	wb := New(t.TempDir(), logger.NewNoOpLogger())

	_, err := wb.AppendTestCases("shop", sampleCases())
	require.NoError(t, err)

	more := append(sampleCases(), models.TestCase{
		Module: "Cart", TestScenario: "add item", TestCaseTitle: "add one", ExpectedResult: "cart has 1",
	})
	added, err := wb.AppendTestCases("shop", more)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	rows, err := wb.ReadRows("shop")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "SC_003", rows[3][colScenarioID])
	assert.Equal(t, "TC_003", rows[3][colTestCaseID])
	assert.Equal(t, "add one", rows[3][colTitle])
}

func TestAppendTestCases_DuplicatesWithinOneCall(t *testing.T) {
	wb := New(t.TempDir(), logger.NewNoOpLogger())

	cases := sampleCases()
	added, err := wb.AppendTestCases("shop", []models.TestCase{cases[0], cases[0]})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestFormatSteps(t *testing.T) {
	assert.Equal(t, "", FormatSteps(nil))
	assert.Equal(t, "1. a\n2. b", FormatSteps([]string{" a ", "", "b"}))
	assert.Equal(t, "1. a\n2. b", FormatSteps([]string{"1. a", "b"}))
}

func TestIDNumber(t *testing.T) {
	assert.Equal(t, 12, idNumber("TC_012", "TC_"))
	assert.Equal(t, 0, idNumber("TC_x", "TC_"))
	assert.Equal(t, 0, idNumber("SC_004", "TC_"))
}

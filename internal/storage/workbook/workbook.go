// Package workbook appends approved test cases to one spreadsheet per
// project, continuing scenario and test case numbering from the sheet and
// skipping rows that are already present.
package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"story-workers/internal/common/logger"
	"story-workers/internal/models"
)

const (
	FileName  = "testcases.xlsx"
	SheetName = "TestCases"

	stepsColumn = "I"
	stepsWidth  = 60
)

// Headers is the column order of the sheet.
var Headers = []string{
	"Scenario ID", "Module/Functionality", "TestScenario", "Functional/Integration",
	"Testcases ID", "TestCase Title", "Pre-Condition", "Test Data",
	"Steps to Execute", "Expected Result", "Actual Result", "Status",
	"Comments", "Priority", "Positive/Negative", "End to End Testing",
}

// column indexes into a row
const (
	colScenarioID = iota
	colModule
	colTestScenario
	colFunctional
	colTestCaseID
	colTitle
	colPreCondition
	colTestData
	colSteps
	colExpected
)

var numberedStep = regexp.MustCompile(`^\d+\.`)

// Workbook writes spreadsheets under root/<project>/testcases.xlsx.
type Workbook struct {
	root   string
	logger logger.Logger
	mu     sync.Mutex
}

func New(root string, log logger.Logger) *Workbook {
	return &Workbook{
		root:   root,
		logger: log.With(map[string]interface{}{"store": "workbook"}),
	}
}

// Path returns the spreadsheet location of a project.
func (w *Workbook) Path(project string) string {
	return filepath.Join(w.root, strings.TrimSpace(project), FileName)
}

// AppendTestCases adds the cases that are not already in the sheet and
// returns how many rows were written. New rows get SC_/TC_ numbers
// continuing from the highest in the sheet.
func (w *Workbook) AppendTestCases(project string, cases []models.TestCase) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := w.Path(project)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create project dir: %w", err)
	}

	f, sheet, err := openOrCreate(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	maxSC, maxTC := 0, 0
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		maxSC = max(maxSC, idNumber(cell(row, colScenarioID), "SC_"))
		maxTC = max(maxTC, idNumber(cell(row, colTestCaseID), "TC_"))
		seen[rowKey(cell(row, colTestScenario), cell(row, colTitle), cell(row, colSteps), cell(row, colExpected))] = struct{}{}
	}

	next := len(rows) + 1
	if len(rows) == 0 {
		if err := writeRow(f, sheet, 1, toCells(Headers)); err != nil {
			return 0, err
		}
		next = 2
	}

	added := 0
	for _, tc := range cases {
		steps := FormatSteps(tc.Steps)
		key := rowKey(tc.TestScenario, tc.TestCaseTitle, steps, tc.ExpectedResult)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		maxSC++
		maxTC++
		row := []interface{}{
			fmt.Sprintf("SC_%03d", maxSC),
			tc.Module,
			tc.TestScenario,
			orDefault(tc.FunctionalIntegration, models.DefaultFunctionalIntegration),
			fmt.Sprintf("TC_%03d", maxTC),
			tc.TestCaseTitle,
			tc.PreCondition,
			tc.TestData,
			steps,
			tc.ExpectedResult,
			tc.ActualResult,
			tc.Status,
			tc.Comments,
			orDefault(tc.Priority, models.DefaultPriority),
			tc.PositiveNegative,
			orDefault(tc.EndToEnd, models.DefaultEndToEnd),
		}
		if err := writeRow(f, sheet, next, row); err != nil {
			return added, err
		}
		next++
		added++
	}

	if err := formatSheet(f, sheet, next-1); err != nil {
		return added, err
	}
	if err := f.SaveAs(path); err != nil {
		return added, fmt.Errorf("save %s: %w", path, err)
	}

	w.logger.Info("workbook updated", map[string]interface{}{
		"project": project,
		"path":    path,
		"added":   added,
		"skipped": len(cases) - added,
	})
	return added, nil
}

// ReadRows returns every row of a project's sheet, header first.
func (w *Workbook) ReadRows(project string) ([][]string, error) {
	f, err := excelize.OpenFile(w.Path(project))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
}

// FormatSteps renders steps as numbered lines, keeping numbers the model
// already wrote.
func FormatSteps(steps []string) string {
	lines := make([]string, 0, len(steps))
	n := 0
	for _, s := range steps {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		n++
		if numberedStep.MatchString(s) {
			lines = append(lines, s)
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s", n, s))
	}
	return strings.Join(lines, "\n")
}

func openOrCreate(path string) (*excelize.File, string, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		f := excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
			f.Close()
			return nil, "", fmt.Errorf("name sheet: %w", err)
		}
		return f, SheetName, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	return f, f.GetSheetName(f.GetActiveSheetIndex()), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}

func formatSheet(f *excelize.File, sheet string, lastRow int) error {
	if err := f.SetColWidth(sheet, stepsColumn, stepsColumn, stepsWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if lastRow < 2 {
		return nil
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	return f.SetCellStyle(sheet, stepsColumn+"2", fmt.Sprintf("%s%d", stepsColumn, lastRow), wrap)
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func idNumber(value, prefix string) int {
	if !strings.HasPrefix(value, prefix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(value, prefix))
	if err != nil {
		return 0
	}
	return n
}

func rowKey(scenario, title, steps, expected string) string {
	return strings.Join([]string{scenario, title, steps, expected}, "\x1f")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

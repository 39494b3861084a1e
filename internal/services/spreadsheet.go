package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

const historySheet = "History"

var historyHeader = []interface{}{
	"Attempt ID", "Exam", "Category", "Scheduled", "Score", "Total Marks",
	"Percentage", "Correct", "Incorrect", "Unattempted", "Time Taken (s)", "Submitted At",
}

// ExportExamHistory writes the completed attempts as a single sheet workbook
func (s *userService) ExportExamHistory(ctx context.Context, userID string, category *models.ExamCategory, w io.Writer) error {
	entries, err := s.GetExamHistory(ctx, userID, category)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("failed to prepare workbook: %w", err)
	}
	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range entries {
		submitted := ""
		if e.EndTime != nil {
			submitted = e.EndTime.Format("2006-01-02 15:04:05")
		}
		row := []interface{}{
			e.AttemptID,
			e.Exam.Title,
			string(e.Exam.Category),
			e.Exam.ScheduledTime.Format("2006-01-02 15:04"),
			e.TotalScore,
			e.Exam.TotalMarks,
			e.Percentage,
			e.CorrectAnswers,
			e.IncorrectAnswers,
			e.Unattempted,
			e.TimeTaken,
			submitted,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam history exported",
		"user_id", userID,
		"rows", len(entries))
	return nil
}

// Import columns, by header name (case-insensitive)
const (
	colQuestionText  = "questiontext"
	colOptionA       = "optiona"
	colOptionB       = "optionb"
	colOptionC       = "optionc"
	colOptionD       = "optiond"
	colCorrectAnswer = "correctanswer"
	colExplanation   = "explanation"
	colCategory      = "category"
	colSubject       = "subject"
	colTopic         = "topic"
	colMarks         = "marks"
	colDifficulty    = "difficulty"
	colLanguage      = "language"
)

var requiredImportColumns = []string{
	colQuestionText, colOptionA, colOptionB, colOptionC, colOptionD,
	colCorrectAnswer, colCategory, colSubject,
}

type importRow struct {
	number int
	req    QuestionCreateRequest
}

// readQuestionRows parses the first sheet of a workbook into question requests.
// The first row holds the headers; empty rows are skipped.
func readQuestionRows(r io.Reader) ([]importRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewBusinessRuleError("import_format", "file is not a valid xlsx workbook", nil)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewBusinessRuleError("import_format", "workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, NewBusinessRuleError("import_format", "workbook has no question rows", nil)
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		index[key] = i
	}
	var missing []string
	for _, col := range requiredImportColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, NewBusinessRuleError("import_format",
			"missing columns: "+strings.Join(missing, ", "),
			map[string]interface{}{"missing": missing})
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	optional := func(row []string, col string) *string {
		if v := cell(row, col); v != "" {
			return &v
		}
		return nil
	}

	out := make([]importRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		req := QuestionCreateRequest{
			QuestionText: cell(row, colQuestionText),
			Options: QuestionOptions{
				{OptionLabel: models.OptionA, OptionText: cell(row, colOptionA)},
				{OptionLabel: models.OptionB, OptionText: cell(row, colOptionB)},
				{OptionLabel: models.OptionC, OptionText: cell(row, colOptionC)},
				{OptionLabel: models.OptionD, OptionText: cell(row, colOptionD)},
			},
			CorrectAnswer: strings.ToUpper(cell(row, colCorrectAnswer)),
			Explanation:   optional(row, colExplanation),
			Category:      models.ExamCategory(cell(row, colCategory)),
			Subject:       cell(row, colSubject),
			Topic:         optional(row, colTopic),
			Difficulty:    models.DifficultyLevel(cell(row, colDifficulty)),
			Language:      models.Language(cell(row, colLanguage)),
		}
		if v := cell(row, colMarks); v != "" {
			marks, err := strconv.ParseFloat(v, 64)
			if err != nil {
				marks = -1 // rejected by marks_range
			}
			req.Marks = &marks
		}
		out = append(out, importRow{number: i + 2, req: req})
	}
	return out, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

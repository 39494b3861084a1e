package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// QuestionOptions accepts the shapes clients send for a question's options: a JSON
// array, that array encoded as a string (multipart forms), or a label to text object.
type QuestionOptions []models.QuestionOption

func (o *QuestionOptions) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}

	switch data[0] {
	case '"':
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		if strings.TrimSpace(encoded) == "" {
			*o = nil
			return nil
		}
		return o.UnmarshalJSON([]byte(encoded))
	case '{':
		var byLabel map[string]string
		if err := json.Unmarshal(data, &byLabel); err != nil {
			return fmt.Errorf("options: %w", err)
		}
		opts := make(QuestionOptions, 0, len(byLabel))
		for label, text := range byLabel {
			opts = append(opts, models.QuestionOption{OptionLabel: strings.ToUpper(label), OptionText: text})
		}
		sort.Slice(opts, func(i, j int) bool { return opts[i].OptionLabel < opts[j].OptionLabel })
		*o = opts
		return nil
	default:
		var opts []models.QuestionOption
		if err := json.Unmarshal(data, &opts); err != nil {
			return fmt.Errorf("options: %w", err)
		}
		for i := range opts {
			opts[i].OptionLabel = strings.ToUpper(strings.TrimSpace(opts[i].OptionLabel))
		}
		*o = opts
		return nil
	}
}

// UnmarshalJSON takes the question reference as a number, a numeric string, or an
// object carrying an id, and treats an empty selection as no selection.
func (a *AnswerInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Question       json.RawMessage `json:"question"`
		QuestionID     json.RawMessage `json:"questionId"`
		SelectedAnswer *string         `json:"selectedAnswer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ref := raw.Question
	if len(ref) == 0 {
		ref = raw.QuestionID
	}
	id, err := parseQuestionRef(ref)
	if err != nil {
		return err
	}

	a.QuestionID = id
	a.SelectedAnswer = nil
	if raw.SelectedAnswer != nil {
		if sel := strings.ToUpper(strings.TrimSpace(*raw.SelectedAnswer)); sel != "" {
			a.SelectedAnswer = &sel
		}
	}
	return nil
}

func parseQuestionRef(ref json.RawMessage) (uint, error) {
	ref = bytes.TrimSpace(ref)
	if len(ref) == 0 || bytes.Equal(ref, []byte("null")) {
		return 0, nil
	}

	switch ref[0] {
	case '{':
		// populated question documents carry either id or _id
		var obj struct {
			ID    json.RawMessage `json:"id"`
			DocID json.RawMessage `json:"_id"`
		}
		if err := json.Unmarshal(ref, &obj); err != nil {
			return 0, fmt.Errorf("question: %w", err)
		}
		if len(obj.ID) == 0 {
			return parseQuestionRef(obj.DocID)
		}
		return parseQuestionRef(obj.ID)
	case '"':
		var s string
		if err := json.Unmarshal(ref, &s); err != nil {
			return 0, err
		}
		id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("question: invalid id %q", s)
		}
		return uint(id), nil
	default:
		var id uint
		if err := json.Unmarshal(ref, &id); err != nil {
			return 0, fmt.Errorf("question: %w", err)
		}
		return id, nil
	}
}

func (a *AnswerInput) toAttemptAnswer() models.AttemptAnswer {
	return models.AttemptAnswer{QuestionID: a.QuestionID, SelectedAnswer: a.SelectedAnswer}
}

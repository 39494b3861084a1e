package models

import "time"

type PaginatedResponse struct {
	Content          interface{} `json:"content"`
	TotalElements    int64       `json:"totalElements"`
	TotalPages       int         `json:"totalPages"`
	Size             int         `json:"size"`
	Page             int         `json:"page"`
	First            bool        `json:"first"`
	Last             bool        `json:"last"`
	NumberOfElements int         `json:"numberOfElements"`
	Empty            bool        `json:"empty"`
}

// NewPaginatedResponse builds the page envelope for a 1-based page number
func NewPaginatedResponse(content interface{}, count int, total int64, page, size int) PaginatedResponse {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return PaginatedResponse{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		Size:             size,
		Page:             page,
		First:            page <= 1,
		Last:             page >= totalPages,
		NumberOfElements: count,
		Empty:            count == 0,
	}
}

// ===== BULK OPERATIONS =====

type BulkDeleteRequest struct {
	QuestionIDs []uint `json:"questionIds" validate:"required,min=1,max=200"`
}

type BulkOperationResult struct {
	SuccessCount int                  `json:"successCount"`
	FailureCount int                  `json:"failureCount"`
	Errors       []BulkOperationError `json:"errors,omitempty"`
}

type BulkOperationError struct {
	Row   int    `json:"row,omitempty"`
	ID    uint   `json:"id,omitempty"`
	Error string `json:"error"`
}

// ===== SUMMARIES =====

type ExamSummary struct {
	ID            uint         `json:"id"`
	Title         string       `json:"title"`
	Category      ExamCategory `json:"category"`
	ScheduledTime time.Time    `json:"scheduledTime"`
	TotalMarks    float64      `json:"totalMarks"`
}

func (e *Exam) Summary() ExamSummary {
	return ExamSummary{
		ID:            e.ID,
		Title:         e.Title,
		Category:      e.Category,
		ScheduledTime: e.ScheduledTime,
		TotalMarks:    e.TotalMarks,
	}
}

package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern, logging instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

func ExamKey(examID uint) string {
	return fmt.Sprintf("id:%d", examID)
}

func ExamWithQuestionsKey(examID uint) string {
	return fmt.Sprintf("full:%d", examID)
}

func QuestionKey(questionID uint) string {
	return fmt.Sprintf("id:%d", questionID)
}

func UserStatsKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// InvalidateExamCache drops both cached shapes of an exam
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint) {
	SafeDelete(ctx, cm.Exam, ExamKey(examID), ExamWithQuestionsKey(examID))
}

// InvalidateQuestionCache drops a question and every hydrated exam, which may embed it
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID uint) {
	SafeDelete(ctx, cm.Question, QuestionKey(questionID))
	SafeInvalidatePattern(ctx, cm.Exam, "full:*")
}

func InvalidateUserStatsCache(ctx context.Context, cm *CacheManager, userID string) {
	SafeDelete(ctx, cm.Stats, UserStatsKey(userID))
}

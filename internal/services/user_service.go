package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

const (
	dashboardExamsLimit  = 10
	recentAttemptsLimit  = 10
	historyLimit         = 500
	analyticsAttemptsCap = 1000
)

// Analytics windows, counted back from now
var analyticsRanges = map[string]time.Duration{
	"week":    7 * 24 * time.Hour,
	"month":   30 * 24 * time.Hour,
	"quarter": 90 * 24 * time.Hour,
}

type userService struct {
	repo      repositories.Repository
	exams     ExamService
	quota     *QuotaTracker
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewUserService(repo repositories.Repository, exams ExamService, quota *QuotaTracker, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		exams:     exams,
		quota:     quota,
		logger:    logger,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnsureUser returns the local record of an authenticated identity, creating it with a
// fresh quota window on first sight.
func (s *userService) EnsureUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.LastWeekReset.IsZero() {
		user.LastWeekReset = s.now()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.SubscriptionFree
	}
	if user.PreferredLanguage == "" {
		user.PreferredLanguage = models.LanguageEnglish
	}

	stored, err := s.repo.User().FirstOrCreate(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}
	return stored, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.loadUser(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *ProfileUpdateRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = req.Email
	}
	if req.ExamPreparations != nil {
		user.ExamPreparations = dedupeCategories(req.ExamPreparations)
	}
	if req.PreferredLanguage != nil {
		user.PreferredLanguage = *req.PreferredLanguage
	}

	if err := s.repo.User().UpdateProfile(ctx, user); err != nil {
		if repositories.IsNotFoundError(err) || errors.Is(err, repositories.ErrStateConflict) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.InfoContext(ctx, "Profile updated",
		"user_id", userID,
		"exam_preparations", len(user.ExamPreparations))

	return user, nil
}

// GetExamHistory lists completed attempts, newest first
func (s *userService) GetExamHistory(ctx context.Context, userID string, category *models.ExamCategory) ([]*HistoryEntry, error) {
	completed := true
	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		UserID:      &userID,
		Category:    category,
		IsCompleted: &completed,
		Limit:       historyLimit,
		SortBy:      "end_time",
		SortOrder:   "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	entries := make([]*HistoryEntry, 0, len(attempts))
	for _, a := range attempts {
		entry := &HistoryEntry{
			AttemptID:        a.ID,
			TotalScore:       a.TotalScore,
			Percentage:       a.Percentage,
			CorrectAnswers:   a.CorrectAnswers,
			IncorrectAnswers: a.IncorrectAnswers,
			Unattempted:      a.Unattempted,
			TimeTaken:        a.TimeTaken,
			EndTime:          a.EndTime,
			CreatedAt:        a.CreatedAt,
		}
		if a.Exam != nil {
			entry.Exam = a.Exam.Summary()
		} else {
			entry.Exam = models.ExamSummary{ID: a.ExamID}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *userService) GetDashboardStats(ctx context.Context, userID string) (*DashboardStats, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.quota.CheckAndReset(ctx, s.repo.User(), user, now); err != nil {
		return nil, err
	}

	available, err := s.exams.ListAvailable(ctx, userID, dashboardExamsLimit)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.Attempt().GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		AvailableExams: available,
		Stats: DashboardCounters{
			TotalAttempts:        stats.TotalAttempts,
			AverageScore:         round2(stats.AverageScore),
			WeeklyExamsRemaining: s.quota.Remaining(user, now),
		},
		SubscriptionStatus: user.SubscriptionStatus,
	}, nil
}

func (s *userService) GetQuota(ctx context.Context, userID string) (*QuotaStatus, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.quota.CheckAndReset(ctx, s.repo.User(), user, now); err != nil {
		return nil, err
	}
	return s.quota.Status(user, now), nil
}

// GetAnalytics summarises completed attempts in the time range and compares them with
// the preceding window of the same length. Unknown ranges are treated as "all".
func (s *userService) GetAnalytics(ctx context.Context, userID string, timeRange string) (*Analytics, error) {
	now := s.now()
	window, bounded := analyticsRanges[timeRange]
	if !bounded {
		timeRange = "all"
	}

	var from *time.Time
	if bounded {
		start := now.Add(-window)
		from = &start
	}

	current, err := s.completedAttempts(ctx, userID, from, nil)
	if err != nil {
		return nil, err
	}

	analytics := &Analytics{
		TimeRange:           timeRange,
		Stats:               summarize(current),
		CategoryPerformance: categoryPerformance(current),
		RecentAttempts:      recentAttempts(current),
	}

	previousAverage := analytics.Stats.AverageScore
	var previousCount int
	if bounded {
		prevFrom := from.Add(-window)
		prevTo := from.Add(-time.Nanosecond)
		previous, err := s.completedAttempts(ctx, userID, &prevFrom, &prevTo)
		if err != nil {
			return nil, err
		}
		if previousCount = len(previous); previousCount > 0 {
			previousAverage = summarize(previous).AverageScore
		}
	}

	if previousAverage > 0 {
		analytics.Trends.ScoreChange = round2((analytics.Stats.AverageScore - previousAverage) / previousAverage * 100)
	}
	if previousCount > 0 {
		analytics.Trends.AttemptsChange = round2(float64(analytics.Stats.TotalAttempts-previousCount) / float64(previousCount) * 100)
	}
	analytics.Trends.ImprovementRate = improvementRate(current)

	return analytics, nil
}

func (s *userService) completedAttempts(ctx context.Context, userID string, from, to *time.Time) ([]*models.ExamAttempt, error) {
	completed := true
	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		UserID:      &userID,
		IsCompleted: &completed,
		DateFrom:    from,
		DateTo:      to,
		Limit:       analyticsAttemptsCap,
		SortBy:      "created_at",
		SortOrder:   "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (s *userService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ===== ANALYTICS HELPERS =====

func summarize(attempts []*models.ExamAttempt) AnalyticsSummary {
	summary := AnalyticsSummary{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return summary
	}

	var sum float64
	for _, a := range attempts {
		sum += a.Percentage
		if a.Percentage > summary.BestScore {
			summary.BestScore = a.Percentage
		}
	}
	summary.AverageScore = round2(sum / float64(len(attempts)))
	return summary
}

func categoryPerformance(attempts []*models.ExamAttempt) []CategoryPerformance {
	type acc struct {
		sum   float64
		best  float64
		count int
	}
	byCategory := make(map[models.ExamCategory]*acc)
	for _, a := range attempts {
		if a.Exam == nil {
			continue
		}
		c, ok := byCategory[a.Exam.Category]
		if !ok {
			c = &acc{}
			byCategory[a.Exam.Category] = c
		}
		c.sum += a.Percentage
		c.count++
		if a.Percentage > c.best {
			c.best = a.Percentage
		}
	}

	out := make([]CategoryPerformance, 0, len(byCategory))
	for category, c := range byCategory {
		out = append(out, CategoryPerformance{
			Category:     category,
			Attempts:     c.count,
			AverageScore: round2(c.sum / float64(c.count)),
			BestScore:    c.best,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageScore == out[j].AverageScore {
			return out[i].Category < out[j].Category
		}
		return out[i].AverageScore > out[j].AverageScore
	})
	return out
}

// recentAttempts expects attempts newest first
func recentAttempts(attempts []*models.ExamAttempt) []RecentAttempt {
	n := len(attempts)
	if n > recentAttemptsLimit {
		n = recentAttemptsLimit
	}

	out := make([]RecentAttempt, 0, n)
	for _, a := range attempts[:n] {
		recent := RecentAttempt{
			AttemptID:  a.ID,
			ExamTitle:  "Unknown",
			Score:      a.TotalScore,
			TotalMarks: a.TotalScore,
			Percentage: a.Percentage,
			Date:       a.CreatedAt,
		}
		if a.Exam != nil {
			recent.ExamTitle = a.Exam.Title
			recent.TotalMarks = a.Exam.TotalMarks
		}
		out = append(out, recent)
	}
	return out
}

// improvementRate compares the newer half of the attempts with the older half.
// attempts are newest first; with an odd count the middle one belongs to the older half.
func improvementRate(attempts []*models.ExamAttempt) float64 {
	mid := len(attempts) / 2
	newer, older := attempts[:mid], attempts[mid:]

	olderAvg := summarize(older).AverageScore
	if olderAvg <= 0 || len(newer) == 0 {
		return 0
	}
	newerAvg := summarize(newer).AverageScore
	return round2((newerAvg - olderAvg) / olderAvg * 100)
}

func dedupeCategories(in []models.ExamCategory) []models.ExamCategory {
	seen := make(map[models.ExamCategory]struct{}, len(in))
	out := make([]models.ExamCategory, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

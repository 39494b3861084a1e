package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

var testStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func fourOptions() []models.QuestionOption {
	return []models.QuestionOption{
		{OptionLabel: "A", OptionText: "4"},
		{OptionLabel: "B", OptionText: "5"},
		{OptionLabel: "C", OptionText: "6"},
		{OptionLabel: "D", OptionText: "7"},
	}
}

type attemptFixture struct {
	store     *memoryStore
	clock     *testClock
	publisher *events.MockEventPublisher
	svc       *attemptService
	exam      *models.Exam
	q1, q2    *models.Question
	user      *models.User
}

// newAttemptFixture seeds a started SSC exam with two questions (1 and 2 marks,
// answers A and C) and a free user preparing for SSC with an unused quota.
func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	store := newMemoryStore()
	clock := &testClock{now: testStart}

	q1 := store.addQuestion(models.Question{QuestionText: "2+2?", Options: fourOptions(), CorrectAnswer: "A", Category: models.CategorySSC, Subject: "Maths", Marks: 1})
	q2 := store.addQuestion(models.Question{QuestionText: "3+3?", Options: fourOptions(), CorrectAnswer: "C", Category: models.CategorySSC, Subject: "Maths", Marks: 2})
	exam := store.addExam(models.Exam{
		Title:         "SSC Mock 1",
		Category:      models.CategorySSC,
		ScheduledTime: testStart.Add(-time.Hour),
		Duration:      60,
		TotalMarks:    3,
		Status:        models.ExamStatusScheduled,
	}, q1.ID, q2.ID)
	user := store.addUser(models.User{
		ID:                 "user-1",
		Name:               "Asha",
		ExamPreparations:   []models.ExamCategory{models.CategorySSC},
		SubscriptionStatus: models.SubscriptionFree,
		LastWeekReset:      testStart.Add(-24 * time.Hour),
	})

	publisher := events.NewMockEventPublisher(discardLogger())
	svc := NewAttemptService(store.repo(), NewQuotaTracker(discardLogger()), publisher, discardLogger(), validator.New()).(*attemptService)
	svc.now = clock.Now

	return &attemptFixture{store: store, clock: clock, publisher: publisher, svc: svc, exam: exam, q1: q1, q2: q2, user: user}
}

func (f *attemptFixture) start(t *testing.T) *AttemptResponse {
	t.Helper()
	resp, err := f.svc.Start(context.Background(), f.exam.ID, f.user.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return resp
}

func answers(pairs ...interface{}) []AnswerInput {
	var out []AnswerInput
	for i := 0; i < len(pairs); i += 2 {
		in := AnswerInput{QuestionID: pairs[i].(uint)}
		if sel, ok := pairs[i+1].(string); ok {
			in.SelectedAnswer = &sel
		}
		out = append(out, in)
	}
	return out
}

func TestAttemptService_SubmitScoresTwoQuestionExam(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	resp := f.start(t)
	if resp.IsResumed || !resp.Created {
		t.Errorf("new attempt created = %v resumed = %v", resp.Created, resp.IsResumed)
	}
	if got := len(resp.Attempt.Answers); got != 2 {
		t.Fatalf("answer slots = %d, want 2", got)
	}
	for _, a := range resp.Attempt.Answers {
		if a.HasSelection() || a.IsCorrect || a.MarksObtained != 0 {
			t.Errorf("slot not empty: %+v", a)
		}
	}

	id := resp.Attempt.ID
	if _, err := f.svc.SaveAnswers(ctx, id, f.user.ID, &SaveAnswersRequest{Answers: answers(f.q1.ID, "A", f.q2.ID, "B")}); err != nil {
		t.Fatalf("SaveAnswers() error = %v", err)
	}

	f.clock.Advance(10 * time.Minute)
	result, err := f.svc.Submit(ctx, id, f.user.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if result.TotalScore != 1 || result.Percentage != 33.33 {
		t.Errorf("score = %v (%v%%), want 1 (33.33%%)", result.TotalScore, result.Percentage)
	}
	if result.CorrectAnswers != 1 || result.IncorrectAnswers != 1 || result.Unattempted != 0 {
		t.Errorf("counts = %d/%d/%d, want 1/1/0", result.CorrectAnswers, result.IncorrectAnswers, result.Unattempted)
	}
	if result.TotalMarks != 3 || result.TimeTaken != 600 {
		t.Errorf("totalMarks = %v timeTaken = %d", result.TotalMarks, result.TimeTaken)
	}

	stored := f.store.attempt(id)
	if !stored.IsCompleted || stored.EndTime == nil || !stored.EndTime.Equal(f.clock.now) {
		t.Errorf("stored attempt not completed at now: %+v", stored)
	}
	if len(f.publisher.EventsOfType(events.EventAttemptSubmitted)) != 1 {
		t.Error("expected one attempt.submitted event")
	}
}

func TestAttemptService_SubmitWithMissingAnswerSlot(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t).Attempt.ID

	// a full overwrite that drops q1 entirely
	if _, err := f.svc.SaveAnswers(ctx, id, f.user.ID, &SaveAnswersRequest{Answers: answers(f.q2.ID, "C")}); err != nil {
		t.Fatalf("SaveAnswers() error = %v", err)
	}
	result, err := f.svc.Submit(ctx, id, f.user.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.CorrectAnswers != 1 || result.Unattempted != 1 || result.TotalScore != 2 || result.Percentage != 66.67 {
		t.Errorf("result = %+v", result)
	}

	stored := f.store.attempt(id)
	if len(stored.Answers) != 2 || stored.Answers[0].QuestionID != f.q1.ID || stored.Answers[1].QuestionID != f.q2.ID {
		t.Errorf("stored answers not in exam order: %+v", stored.Answers)
	}
}

func TestAttemptService_StartIsIdempotent(t *testing.T) {
	f := newAttemptFixture(t)

	first := f.start(t)
	second := f.start(t)

	if first.Attempt.ID != second.Attempt.ID {
		t.Errorf("attempt ids differ: %d != %d", first.Attempt.ID, second.Attempt.ID)
	}
	if !first.Created {
		t.Error("first start should create the attempt")
	}
	if second.IsResumed || second.Created {
		t.Errorf("restarting an active attempt: created = %v resumed = %v", second.Created, second.IsResumed)
	}
	if got := f.store.user(f.user.ID).WeeklyExamsAttempted; got != 1 {
		t.Errorf("weekly counter = %d, want 1", got)
	}
	if got := len(f.publisher.EventsOfType(events.EventAttemptStarted)); got != 1 {
		t.Errorf("attempt.started events = %d, want 1", got)
	}
	if second.Exam == nil || len(second.Exam.Questions) != 2 || second.Exam.Questions[0].CorrectAnswer != "A" {
		t.Error("started attempt should carry full question detail")
	}
}

func TestAttemptService_QuotaExceededUntilWindowRolls(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	f.store.mu.Lock()
	u := f.store.users[f.user.ID]
	u.WeeklyExamsAttempted = 3
	u.LastWeekReset = testStart.Add(-2 * 24 * time.Hour)
	f.store.users[f.user.ID] = u
	f.store.mu.Unlock()

	if _, err := f.svc.Start(ctx, f.exam.ID, f.user.ID); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Start() error = %v, want ErrQuotaExceeded", err)
	}
	if f.store.attemptCount() != 0 {
		t.Fatal("attempt created despite quota")
	}

	// 6 days 23h59m after the reset: still the same window
	f.clock.Advance(5*24*time.Hour - time.Minute)
	if _, err := f.svc.Start(ctx, f.exam.ID, f.user.ID); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Start() before 7 days error = %v, want ErrQuotaExceeded", err)
	}

	f.clock.Advance(time.Minute)
	if _, err := f.svc.Start(ctx, f.exam.ID, f.user.ID); err != nil {
		t.Fatalf("Start() after 7 days error = %v", err)
	}

	got := f.store.user(f.user.ID)
	if got.WeeklyExamsAttempted != 1 {
		t.Errorf("weekly counter = %d, want 1", got.WeeklyExamsAttempted)
	}
	if !got.LastWeekReset.Equal(f.clock.now) {
		t.Errorf("lastWeekReset = %v, want %v", got.LastWeekReset, f.clock.now)
	}
}

func TestAttemptService_PremiumIgnoresQuota(t *testing.T) {
	f := newAttemptFixture(t)

	f.store.mu.Lock()
	u := f.store.users[f.user.ID]
	u.WeeklyExamsAttempted = 3
	u.SubscriptionStatus = models.SubscriptionPremium
	u.SubscriptionExpiry = ptr(testStart.Add(30 * 24 * time.Hour))
	f.store.users[f.user.ID] = u
	f.store.mu.Unlock()

	f.start(t)
	if got := f.store.user(f.user.ID).WeeklyExamsAttempted; got != 4 {
		t.Errorf("weekly counter = %d, want 4", got)
	}
}

func TestAttemptService_StartAvailability(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(e *models.Exam)
		wantReason NotAvailableReason
	}{
		{
			name:       "expired",
			mutate:     func(e *models.Exam) { e.ExpiresAt = ptr(testStart.Add(-time.Minute)) },
			wantReason: ReasonExpired,
		},
		{
			name:       "not started",
			mutate:     func(e *models.Exam) { e.ScheduledTime = testStart.Add(time.Hour) },
			wantReason: ReasonNotStarted,
		},
		{
			name:       "draft",
			mutate:     func(e *models.Exam) { e.Status = models.ExamStatusDraft },
			wantReason: ReasonNotStarted,
		},
		{
			name:       "other category",
			mutate:     func(e *models.Exam) { e.Category = models.CategoryBanking },
			wantReason: ReasonNotInPreparation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAttemptFixture(t)
			f.store.mu.Lock()
			e := f.store.exams[f.exam.ID]
			tt.mutate(&e)
			f.store.exams[f.exam.ID] = e
			f.store.mu.Unlock()

			_, err := f.svc.Start(context.Background(), f.exam.ID, f.user.ID)

			var notAvailable *NotAvailableError
			if !errors.As(err, &notAvailable) {
				t.Fatalf("Start() error = %v, want NotAvailableError", err)
			}
			if notAvailable.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", notAvailable.Reason, tt.wantReason)
			}
			if !errors.Is(err, ErrExamNotAvailable) {
				t.Error("NotAvailableError should match ErrExamNotAvailable")
			}
			if f.store.user(f.user.ID).WeeklyExamsAttempted != 0 {
				t.Error("quota consumed by a rejected start")
			}
		})
	}
}

func TestAttemptService_NoExpiryNeverExpires(t *testing.T) {
	f := newAttemptFixture(t)
	f.store.mu.Lock()
	e := f.store.exams[f.exam.ID]
	e.ScheduledTime = testStart.AddDate(-3, 0, 0)
	e.ExpiresAt = nil
	f.store.exams[f.exam.ID] = e
	f.store.mu.Unlock()

	f.start(t)
}

func TestAttemptService_PauseResumePreservesAnswers(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t).Attempt.ID

	if _, err := f.svc.SaveAnswers(ctx, id, f.user.ID, &SaveAnswersRequest{Answers: answers(f.q1.ID, "B", f.q2.ID, nil)}); err != nil {
		t.Fatalf("SaveAnswers() error = %v", err)
	}

	f.clock.Advance(90 * time.Second)
	paused, err := f.svc.Pause(ctx, id, f.user.ID, nil)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if !paused.IsPaused || paused.PausedAt == nil || !paused.PausedAt.Equal(f.clock.now) {
		t.Errorf("paused attempt = %+v", paused)
	}

	if _, err := f.svc.SaveAnswers(ctx, id, f.user.ID, &SaveAnswersRequest{Answers: answers(f.q1.ID, "A")}); !errors.Is(err, ErrAttemptRequiresResume) {
		t.Errorf("SaveAnswers() while paused error = %v", err)
	}
	if _, err := f.svc.Submit(ctx, id, f.user.ID); !errors.Is(err, ErrAttemptRequiresResume) {
		t.Errorf("Submit() while paused error = %v", err)
	}
	if _, err := f.svc.Pause(ctx, id, f.user.ID, nil); !errors.Is(err, ErrAttemptAlreadyPaused) {
		t.Errorf("Pause() while paused error = %v", err)
	}

	f.clock.Advance(45 * time.Second)
	resumed := f.start(t)
	if !resumed.IsResumed || resumed.Created || resumed.Attempt.ID != id {
		t.Fatalf("resume = %+v", resumed)
	}
	if resumed.Attempt.PausedDuration != 45 || resumed.Attempt.PausedAt != nil {
		t.Errorf("pausedDuration = %d pausedAt = %v", resumed.Attempt.PausedDuration, resumed.Attempt.PausedAt)
	}
	got := resumed.Attempt.Answers
	if len(got) != 2 || *got[0].SelectedAnswer != "B" || got[1].SelectedAnswer != nil {
		t.Errorf("answers changed across pause: %+v", got)
	}
	if f.store.user(f.user.ID).WeeklyExamsAttempted != 1 {
		t.Error("resume must not consume quota")
	}

	resumedEvents := f.publisher.EventsOfType(events.EventAttemptResumed)
	if len(resumedEvents) != 1 || resumedEvents[0].Data.(events.AttemptEvent).PausedSeconds != 45 {
		t.Errorf("attempt.resumed events = %+v", resumedEvents)
	}

	// pause with answers writes them, and paused time accumulates
	if _, err := f.svc.Pause(ctx, id, f.user.ID, &PauseAttemptRequest{Answers: answers(f.q2.ID, "C")}); err != nil {
		t.Fatalf("Pause() with answers error = %v", err)
	}
	f.clock.Advance(15 * time.Second)
	resumed = f.start(t)
	if resumed.Attempt.PausedDuration != 60 {
		t.Errorf("accumulated pausedDuration = %d, want 60", resumed.Attempt.PausedDuration)
	}
	if len(resumed.Attempt.Answers) != 1 || resumed.Attempt.Answers[0].QuestionID != f.q2.ID {
		t.Errorf("answers = %+v", resumed.Attempt.Answers)
	}
}

func TestAttemptService_TimeTakenIncludesPauses(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t).Attempt.ID

	f.clock.Advance(60 * time.Second)
	if _, err := f.svc.Pause(ctx, id, f.user.ID, nil); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	f.clock.Advance(40 * time.Second)
	f.start(t)
	f.clock.Advance(60 * time.Second)

	result, err := f.svc.Submit(ctx, id, f.user.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.TimeTaken != 160 {
		t.Errorf("timeTaken = %d, want 160", result.TimeTaken)
	}
	if got := f.store.attempt(id).PausedDuration; got != 40 {
		t.Errorf("pausedDuration = %d, want 40", got)
	}
}

func TestAttemptService_SecondSubmitFails(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t).Attempt.ID

	if _, err := f.svc.SaveAnswers(ctx, id, f.user.ID, &SaveAnswersRequest{Answers: answers(f.q1.ID, "A")}); err != nil {
		t.Fatalf("SaveAnswers() error = %v", err)
	}
	if _, err := f.svc.Submit(ctx, id, f.user.ID); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	first := f.store.attempt(id)

	f.clock.Advance(time.Hour)
	if _, err := f.svc.Submit(ctx, id, f.user.ID); !errors.Is(err, ErrAttemptAlreadySubmitted) {
		t.Fatalf("second Submit() error = %v, want ErrAttemptAlreadySubmitted", err)
	}

	again := f.store.attempt(id)
	if !again.EndTime.Equal(*first.EndTime) || again.TotalScore != first.TotalScore || again.TimeTaken != first.TimeTaken {
		t.Error("completed attempt was re-scored")
	}
	if got := len(f.publisher.EventsOfType(events.EventAttemptSubmitted)); got != 1 {
		t.Errorf("attempt.submitted events = %d, want 1", got)
	}

	if _, err := f.svc.Start(ctx, f.exam.ID, f.user.ID); !errors.Is(err, ErrAttemptAlreadyCompleted) {
		t.Errorf("Start() after submit error = %v", err)
	}
	if _, err := f.svc.SaveAnswers(ctx, id, f.user.ID, &SaveAnswersRequest{Answers: answers(f.q1.ID, "B")}); !errors.Is(err, ErrAttemptAlreadySubmitted) {
		t.Errorf("SaveAnswers() after submit error = %v", err)
	}
	if _, err := f.svc.Pause(ctx, id, f.user.ID, nil); !errors.Is(err, ErrAttemptAlreadySubmitted) {
		t.Errorf("Pause() after submit error = %v", err)
	}
}

func TestAttemptService_ConcurrentSubmitLosesRace(t *testing.T) {
	f := newAttemptFixture(t)
	id := f.start(t).Attempt.ID

	f.store.beforeAttemptComplete = func() {
		f.store.mu.Lock()
		defer f.store.mu.Unlock()
		a := f.store.attempts[id]
		a.IsCompleted = true
		f.store.attempts[id] = a
	}

	if _, err := f.svc.Submit(context.Background(), id, f.user.ID); !errors.Is(err, ErrAttemptAlreadySubmitted) {
		t.Fatalf("Submit() error = %v, want ErrAttemptAlreadySubmitted", err)
	}
	if len(f.publisher.EventsOfType(events.EventAttemptSubmitted)) != 0 {
		t.Error("losing submit published an event")
	}
}

func TestAttemptService_ConcurrentPauseWinsOverWrites(t *testing.T) {
	ctx := context.Background()
	pauseNow := func(f *attemptFixture, id uint) func() {
		return func() {
			f.store.mu.Lock()
			defer f.store.mu.Unlock()
			a := f.store.attempts[id]
			a.IsPaused = true
			pausedAt := testStart
			a.PausedAt = &pausedAt
			f.store.attempts[id] = a
		}
	}

	t.Run("save answers", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t).Attempt.ID
		f.store.beforeAttemptSave = pauseNow(f, id)

		_, err := f.svc.SaveAnswers(ctx, id, f.user.ID, &SaveAnswersRequest{Answers: answers(f.q1.ID, "A")})
		if !errors.Is(err, ErrAttemptRequiresResume) {
			t.Errorf("SaveAnswers() error = %v, want ErrAttemptRequiresResume", err)
		}
	})

	t.Run("submit", func(t *testing.T) {
		f := newAttemptFixture(t)
		id := f.start(t).Attempt.ID
		f.store.beforeAttemptComplete = pauseNow(f, id)

		if _, err := f.svc.Submit(ctx, id, f.user.ID); !errors.Is(err, ErrAttemptRequiresResume) {
			t.Errorf("Submit() error = %v, want ErrAttemptRequiresResume", err)
		}
		if f.store.attempt(id).IsCompleted {
			t.Error("attempt completed while paused")
		}
	})
}

func TestAttemptService_ConcurrentStartReturnsWinner(t *testing.T) {
	f := newAttemptFixture(t)

	var winner *models.ExamAttempt
	f.store.beforeTransaction = func() {
		winner = f.store.addAttempt(models.ExamAttempt{UserID: f.user.ID, ExamID: f.exam.ID, StartTime: testStart})
	}

	resp := f.start(t)
	if resp.Attempt.ID != winner.ID {
		t.Errorf("attempt id = %d, want winner %d", resp.Attempt.ID, winner.ID)
	}
	if f.store.attemptCount() != 1 {
		t.Errorf("attempts = %d, want 1", f.store.attemptCount())
	}
	// the losing transaction rolled back its quota increment
	if got := f.store.user(f.user.ID).WeeklyExamsAttempted; got != 0 {
		t.Errorf("weekly counter = %d, want 0", got)
	}
}

func TestAttemptService_OwnershipAndLookups(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t).Attempt.ID

	calls := map[string]func(userID string, attemptID uint) error{
		"save": func(u string, a uint) error {
			_, err := f.svc.SaveAnswers(ctx, a, u, &SaveAnswersRequest{Answers: answers(f.q1.ID, "A")})
			return err
		},
		"pause": func(u string, a uint) error {
			_, err := f.svc.Pause(ctx, a, u, nil)
			return err
		},
		"submit": func(u string, a uint) error {
			_, err := f.svc.Submit(ctx, a, u)
			return err
		},
		"result": func(u string, a uint) error {
			_, err := f.svc.GetResult(ctx, a, u)
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call("intruder", id)
			if !errors.Is(err, ErrForbidden) {
				t.Errorf("non-owner error = %v, want ErrForbidden", err)
			}
			var perr *PermissionError
			if !errors.As(err, &perr) || perr.ResourceID != id {
				t.Errorf("error %v is not a PermissionError for %d", err, id)
			}

			if err := call(f.user.ID, 987654); !errors.Is(err, ErrAttemptNotFound) {
				t.Errorf("missing attempt error = %v", err)
			}
		})
	}

	if _, err := f.svc.Start(ctx, 987654, f.user.ID); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("Start() unknown exam error = %v", err)
	}
	if _, err := f.svc.Start(ctx, f.exam.ID, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Start() unknown user error = %v", err)
	}
}

func TestAttemptService_SaveAnswersValidation(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t).Attempt.ID

	tests := []struct {
		name    string
		answers []AnswerInput
	}{
		{"unknown question", answers(uint(999999), "A")},
		{"duplicate question", answers(f.q1.ID, "A", f.q1.ID, "B")},
		{"bad label", answers(f.q1.ID, "E")},
		{"missing question", answers(uint(0), "A")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SaveAnswers(ctx, id, f.user.ID, &SaveAnswersRequest{Answers: tt.answers})
			var verrs ValidationErrors
			if !errors.As(err, &verrs) || len(verrs) == 0 {
				t.Fatalf("SaveAnswers() error = %v, want ValidationErrors", err)
			}
		})
	}

	if got := f.store.attempt(id).Answers; len(got) != 2 || got[0].HasSelection() {
		t.Errorf("rejected save changed answers: %+v", got)
	}
}

func TestAttemptService_PublishFailureIsNotFatal(t *testing.T) {
	f := newAttemptFixture(t)
	f.publisher.FailWith(errBroker)

	id := f.start(t).Attempt.ID
	if _, err := f.svc.Submit(context.Background(), id, f.user.ID); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !f.store.attempt(id).IsCompleted {
		t.Error("attempt not completed")
	}
}

func TestAttemptService_GetResult(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	id := f.start(t).Attempt.ID

	if _, err := f.svc.SaveAnswers(ctx, id, f.user.ID, &SaveAnswersRequest{Answers: answers(f.q1.ID, "A", f.q2.ID, "C")}); err != nil {
		t.Fatalf("SaveAnswers() error = %v", err)
	}
	if _, err := f.svc.Submit(ctx, id, f.user.ID); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, err := f.svc.GetResult(ctx, id, f.user.ID)
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}
	if result.Exam == nil || len(result.Exam.Questions) != 2 || result.Exam.Questions[1].CorrectAnswer != "C" {
		t.Fatalf("result exam = %+v", result.Exam)
	}
	if result.Percentage != 100 || !result.Answers[1].IsCorrect || result.Answers[1].MarksObtained != 2 {
		t.Errorf("result attempt = %+v", result)
	}
}

package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// memoryStore is an in-memory stand-in for postgres with the same conditional update
// and unique (user, exam) semantics. Values are copied in and out.
type memoryStore struct {
	mu sync.Mutex

	nextID        uint
	exams         map[uint]models.Exam
	examQuestions map[uint][]uint
	questions     map[uint]models.Question
	attempts      map[uint]models.ExamAttempt
	users         map[string]models.User

	// one-shot hooks simulating a concurrent request, run outside the lock
	beforeTransaction     func()
	beforeAttemptSave     func()
	beforeAttemptComplete func()

	pingErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:        100,
		exams:         map[uint]models.Exam{},
		examQuestions: map[uint][]uint{},
		questions:     map[uint]models.Question{},
		attempts:      map[uint]models.ExamAttempt{},
		users:         map[string]models.User{},
	}
}

func (s *memoryStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) repo() repositories.Repository { return &memoryRepository{s: s} }

// ===== seeding =====

func (s *memoryStore) addQuestion(q models.Question) *models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == 0 {
		q.ID = s.id()
	}
	s.questions[q.ID] = q
	return &q
}

func (s *memoryStore) addExam(e models.Exam, questionIDs ...uint) *models.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.id()
	}
	e.Questions = nil
	s.exams[e.ID] = e
	s.examQuestions[e.ID] = append([]uint(nil), questionIDs...)
	return &e
}

func (s *memoryStore) addUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return &u
}

func (s *memoryStore) addAttempt(a models.ExamAttempt) *models.ExamAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.id()
	}
	s.attempts[a.ID] = a
	return &a
}

func (s *memoryStore) user(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *memoryStore) attempt(id uint) models.ExamAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[id]
}

func (s *memoryStore) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

type memorySnapshot struct {
	nextID        uint
	exams         map[uint]models.Exam
	examQuestions map[uint][]uint
	questions     map[uint]models.Question
	attempts      map[uint]models.ExamAttempt
	users         map[string]models.User
}

func (s *memoryStore) snapshot() memorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memorySnapshot{
		nextID:        s.nextID,
		exams:         make(map[uint]models.Exam, len(s.exams)),
		examQuestions: make(map[uint][]uint, len(s.examQuestions)),
		questions:     make(map[uint]models.Question, len(s.questions)),
		attempts:      make(map[uint]models.ExamAttempt, len(s.attempts)),
		users:         make(map[string]models.User, len(s.users)),
	}
	for k, v := range s.exams {
		snap.exams[k] = v
	}
	for k, v := range s.examQuestions {
		snap.examQuestions[k] = append([]uint(nil), v...)
	}
	for k, v := range s.questions {
		snap.questions[k] = v
	}
	for k, v := range s.attempts {
		snap.attempts[k] = v
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	return snap
}

func (s *memoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.exams = snap.exams
	s.examQuestions = snap.examQuestions
	s.questions = snap.questions
	s.attempts = snap.attempts
	s.users = snap.users
}

// ===== Repository =====

type memoryRepository struct{ s *memoryStore }

func (r *memoryRepository) Exam() repositories.ExamRepository         { return memoryExams{r.s} }
func (r *memoryRepository) Question() repositories.QuestionRepository { return memoryQuestions{r.s} }
func (r *memoryRepository) Attempt() repositories.AttemptRepository   { return memoryAttempts{r.s} }
func (r *memoryRepository) User() repositories.UserRepository         { return memoryUsers{r.s} }
func (r *memoryRepository) Ping(ctx context.Context) error            { return r.s.pingErr }
func (r *memoryRepository) Close() error                              { return nil }

// WithTransaction rolls every write back when fn fails
func (r *memoryRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if hook := r.s.beforeTransaction; hook != nil {
		r.s.beforeTransaction = nil
		hook()
	}
	snap := r.s.snapshot()
	if err := fn(r); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

// ===== exams =====

type memoryExams struct{ s *memoryStore }

func (m memoryExams) Create(ctx context.Context, exam *models.Exam) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	exam.ID = m.s.id()
	exam.CreatedAt = time.Now()
	stored := *exam
	stored.Questions = nil
	m.s.exams[exam.ID] = stored
	return nil
}

func (m memoryExams) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.exams[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

func (m memoryExams) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.exams[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	e.Questions = make([]models.Question, 0, len(m.s.examQuestions[id]))
	for _, qid := range m.s.examQuestions[id] {
		e.Questions = append(e.Questions, m.s.questions[qid])
	}
	return &e, nil
}

func (m memoryExams) Update(ctx context.Context, exam *models.Exam) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.exams[exam.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *exam
	stored.Questions = nil
	m.s.exams[exam.ID] = stored
	return nil
}

func (m memoryExams) Delete(ctx context.Context, id uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.exams[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.s.exams, id)
	delete(m.s.examQuestions, id)
	return nil
}

func (m memoryExams) List(ctx context.Context, f repositories.ExamFilters) ([]*models.Exam, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []*models.Exam
	for _, e := range m.s.exams {
		e := e
		if len(f.Categories) > 0 && !containsCategory(f.Categories, e.Category) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, e.Status) {
			continue
		}
		if f.ScheduledBefore != nil && e.ScheduledTime.After(*f.ScheduledBefore) {
			continue
		}
		if f.NotExpiredAt != nil && e.ExpiresAt != nil && e.ExpiresAt.Before(*f.NotExpiredAt) {
			continue
		}
		if f.CreatedBy != nil && e.CreatedBy != *f.CreatedBy {
			continue
		}
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.SortBy == "scheduled_time" {
			return out[i].ScheduledTime.After(out[j].ScheduledTime)
		}
		return out[i].ID > out[j].ID
	})
	total := int64(len(out))
	return paginate(out, f.Limit, f.Offset), total, nil
}

func (m memoryExams) ReplaceQuestions(ctx context.Context, examID uint, questionIDs []uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.examQuestions[examID] = append([]uint(nil), questionIDs...)
	return nil
}

func (m memoryExams) CountQuestions(ctx context.Context, examID uint) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return int64(len(m.s.examQuestions[examID])), nil
}

func (m memoryExams) CountQuestionsByExams(ctx context.Context, examIDs []uint) (map[uint]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[uint]int64, len(examIDs))
	for _, id := range examIDs {
		if n := len(m.s.examQuestions[id]); n > 0 {
			counts[id] = int64(n)
		}
	}
	return counts, nil
}

// ===== questions =====

type memoryQuestions struct{ s *memoryStore }

func (m memoryQuestions) Create(ctx context.Context, q *models.Question) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	q.ID = m.s.id()
	m.s.questions[q.ID] = *q
	return nil
}

func (m memoryQuestions) CreateBatch(ctx context.Context, qs []*models.Question) error {
	for _, q := range qs {
		if err := m.Create(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (m memoryQuestions) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	q, ok := m.s.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &q, nil
}

func (m memoryQuestions) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.Question
	for _, id := range ids {
		if q, ok := m.s.questions[id]; ok {
			q := q
			out = append(out, &q)
		}
	}
	return out, nil
}

func (m memoryQuestions) Update(ctx context.Context, q *models.Question) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.questions[q.ID] = *q
	return nil
}

func (m memoryQuestions) Delete(ctx context.Context, id uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.questions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.s.questions, id)
	return nil
}

func (m memoryQuestions) DeleteBatch(ctx context.Context, ids []uint) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.s.questions[id]; ok {
			delete(m.s.questions, id)
			n++
		}
	}
	return n, nil
}

func (m memoryQuestions) matching(f repositories.QuestionFilters) []*models.Question {
	var out []*models.Question
	for _, q := range m.s.questions {
		q := q
		if f.Category != nil && q.Category != *f.Category {
			continue
		}
		if len(f.Subjects) > 0 && !containsString(f.Subjects, q.Subject) {
			continue
		}
		if f.Difficulty != nil && q.Difficulty != *f.Difficulty {
			continue
		}
		if f.Language != nil && *f.Language != models.LanguageBoth &&
			q.Language != *f.Language && q.Language != models.LanguageBoth {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(q.QuestionText), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m memoryQuestions) List(ctx context.Context, f repositories.QuestionFilters) ([]*models.Question, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := m.matching(f)
	return paginate(out, f.Limit, f.Offset), int64(len(out)), nil
}

// GetRandomIDs is deterministic here: lowest ids first
func (m memoryQuestions) GetRandomIDs(ctx context.Context, f repositories.QuestionFilters, count int) ([]uint, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var ids []uint
	for _, q := range paginate(m.matching(f), count, 0) {
		ids = append(ids, q.ID)
	}
	return ids, nil
}

func (m memoryQuestions) IsUsedInExams(ctx context.Context, id uint) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, qids := range m.s.examQuestions {
		for _, qid := range qids {
			if qid == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m memoryQuestions) ListSubjectTopics(ctx context.Context, category *models.ExamCategory) ([]repositories.SubjectTopicUsage, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := map[repositories.SubjectTopicUsage]int64{}
	for _, q := range m.s.questions {
		if category != nil && q.Category != *category {
			continue
		}
		key := repositories.SubjectTopicUsage{Category: q.Category, Subject: q.Subject}
		if q.Topic != nil {
			key.Topic = *q.Topic
		}
		counts[key]++
	}
	out := make([]repositories.SubjectTopicUsage, 0, len(counts))
	for k, n := range counts {
		k.Count = n
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Topic < out[j].Topic
	})
	return out, nil
}

// ===== attempts =====

type memoryAttempts struct{ s *memoryStore }

func (m memoryAttempts) Create(ctx context.Context, a *models.ExamAttempt) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.attempts {
		if existing.UserID == a.UserID && existing.ExamID == a.ExamID {
			return repositories.ErrDuplicate
		}
	}
	a.ID = m.s.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = a.StartTime
	}
	stored := *a
	stored.Answers = append(stored.Answers[:0:0], a.Answers...)
	m.s.attempts[a.ID] = stored
	return nil
}

func (m memoryAttempts) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (m memoryAttempts) GetByUserAndExam(ctx context.Context, userID string, examID uint) (*models.ExamAttempt, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, a := range m.s.attempts {
		if a.UserID == userID && a.ExamID == examID {
			return &a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m memoryAttempts) List(ctx context.Context, f repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []*models.ExamAttempt
	for _, a := range m.s.attempts {
		a := a
		if f.UserID != nil && a.UserID != *f.UserID {
			continue
		}
		if len(f.ExamIDs) > 0 && !containsUint(f.ExamIDs, a.ExamID) {
			continue
		}
		if f.IsCompleted != nil && a.IsCompleted != *f.IsCompleted {
			continue
		}
		if f.DateFrom != nil && a.CreatedAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && a.CreatedAt.After(*f.DateTo) {
			continue
		}
		exam, ok := m.s.exams[a.ExamID]
		if f.Category != nil && (!ok || exam.Category != *f.Category) {
			continue
		}
		if ok {
			a.Exam = &exam
		}
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	total := int64(len(out))
	return paginate(out, f.Limit, f.Offset), total, nil
}

// update applies fn when the stored attempt is in one of the expected states
func (m memoryAttempts) update(id uint, want models.AttemptState, fn func(a *models.ExamAttempt)) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.attempts[id]
	if !ok || a.State() != want {
		return repositories.ErrStateConflict
	}
	fn(&a)
	m.s.attempts[id] = a
	return nil
}

func (m memoryAttempts) SaveAnswers(ctx context.Context, id uint, answers []models.AttemptAnswer) error {
	if hook := m.s.beforeAttemptSave; hook != nil {
		m.s.beforeAttemptSave = nil
		hook()
	}
	return m.update(id, models.AttemptActive, func(a *models.ExamAttempt) {
		a.Answers = append(answers[:0:0], answers...)
	})
}

func (m memoryAttempts) Pause(ctx context.Context, id uint, answers []models.AttemptAnswer, pausedAt time.Time) error {
	return m.update(id, models.AttemptActive, func(a *models.ExamAttempt) {
		if answers != nil {
			a.Answers = append(answers[:0:0], answers...)
		}
		a.IsPaused = true
		a.PausedAt = &pausedAt
	})
}

func (m memoryAttempts) Resume(ctx context.Context, id uint, pausedSeconds int64, resumedAt time.Time) error {
	return m.update(id, models.AttemptPaused, func(a *models.ExamAttempt) {
		a.IsPaused = false
		a.PausedAt = nil
		a.PausedDuration += pausedSeconds
		a.LastResumedAt = &resumedAt
	})
}

func (m memoryAttempts) Complete(ctx context.Context, attempt *models.ExamAttempt) error {
	if hook := m.s.beforeAttemptComplete; hook != nil {
		m.s.beforeAttemptComplete = nil
		hook()
	}
	return m.update(attempt.ID, models.AttemptActive, func(a *models.ExamAttempt) {
		a.Answers = append(attempt.Answers[:0:0], attempt.Answers...)
		a.TotalScore = attempt.TotalScore
		a.CorrectAnswers = attempt.CorrectAnswers
		a.IncorrectAnswers = attempt.IncorrectAnswers
		a.Unattempted = attempt.Unattempted
		a.Percentage = attempt.Percentage
		a.EndTime = attempt.EndTime
		a.TimeTaken = attempt.TimeTaken
		a.IsCompleted = true
	})
}

func (m memoryAttempts) GetUserStats(ctx context.Context, userID string) (*repositories.UserAttemptStats, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stats := &repositories.UserAttemptStats{}
	var sum float64
	for _, a := range m.s.attempts {
		if a.UserID != userID || !a.IsCompleted {
			continue
		}
		stats.TotalAttempts++
		sum += a.Percentage
		if a.Percentage > stats.BestPercentage {
			stats.BestPercentage = a.Percentage
		}
	}
	if stats.TotalAttempts > 0 {
		stats.AverageScore = sum / float64(stats.TotalAttempts)
	}
	return stats, nil
}

// ===== users =====

type memoryUsers struct{ s *memoryStore }

func (m memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (m memoryUsers) FirstOrCreate(ctx context.Context, user *models.User) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[user.ID]; ok {
		return &u, nil
	}
	m.s.users[user.ID] = *user
	out := *user
	return &out, nil
}

func (m memoryUsers) UpdateProfile(ctx context.Context, user *models.User) error {
	return m.update(user.ID, func(u *models.User) bool {
		u.Name = user.Name
		u.Email = user.Email
		u.ExamPreparations = user.ExamPreparations
		u.PreferredLanguage = user.PreferredLanguage
		return true
	})
}

func (m memoryUsers) ResetWeeklyQuota(ctx context.Context, id string, now time.Time) error {
	return m.update(id, func(u *models.User) bool {
		u.WeeklyExamsAttempted = 0
		u.LastWeekReset = now
		return true
	})
}

func (m memoryUsers) IncrementWeeklyAttempts(ctx context.Context, id string, limit int, premium bool) error {
	return m.update(id, func(u *models.User) bool {
		if !premium && u.WeeklyExamsAttempted >= limit {
			return false
		}
		u.WeeklyExamsAttempted++
		return true
	})
}

func (m memoryUsers) UpdateSubscription(ctx context.Context, id string, status models.SubscriptionStatus, expiry *time.Time) error {
	return m.update(id, func(u *models.User) bool {
		u.SubscriptionStatus = status
		u.SubscriptionExpiry = expiry
		return true
	})
}

func (m memoryUsers) List(ctx context.Context, f repositories.UserFilters) ([]*models.User, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.User
	for _, u := range m.s.users {
		u := u
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.SubscriptionStatus != nil && u.SubscriptionStatus != *f.SubscriptionStatus {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	return paginate(out, f.Limit, f.Offset), total, nil
}

func (m memoryUsers) update(id string, fn func(u *models.User) bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if !fn(&u) {
		return repositories.ErrStateConflict
	}
	m.s.users[id] = u
	return nil
}

// ===== helpers =====

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsCategory(list []models.ExamCategory, v models.ExamCategory) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}

func containsStatus(list []models.ExamStatus, v models.ExamStatus) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}

func containsUint(list []uint, v uint) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}

var errBroker = errors.New("broker unavailable")

package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RubachokBoss/edujury/internal/models"
)

var errBackend = errors.New("backend down")

// In-memory stand-ins for the postgres repositories. Reads return copies so
// services cannot mutate stored state without saving it.

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	fail     error
}

func newFakeProfileRepo(profiles ...models.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: map[string]models.Profile{}}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *fakeProfileRepo) Create(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.profiles[p.ID] = *p
	return nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	for _, p := range r.profiles {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakeProfileRepo) GetAll(_ context.Context, role string, limit, offset int) ([]models.Profile, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, 0, r.fail
	}
	var all []models.Profile
	for _, p := range r.profiles {
		if p.IsActive && (role == "" || string(p.Role) == role) {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *fakeProfileRepo) Update(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = *p
	return nil
}

func (r *fakeProfileRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[id]
	p.IsActive = false
	r.profiles[id] = p
	return nil
}

type fakeTokenRepo struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{revoked: map[string]time.Time{}}
}

func (r *fakeTokenRepo) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = expiresAt
	return nil
}

func (r *fakeTokenRepo) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[jti]
	return ok, nil
}

func (r *fakeTokenRepo) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for jti, exp := range r.revoked {
		if exp.Before(now) {
			delete(r.revoked, jti)
			n++
		}
	}
	return n, nil
}

type fakeRubricRepo struct {
	mu         sync.Mutex
	rubrics    map[string]*models.Rubric
	openCount  map[string]int
	referenced map[string]bool
}

func newFakeRubricRepo() *fakeRubricRepo {
	return &fakeRubricRepo{
		rubrics:    map[string]*models.Rubric{},
		openCount:  map[string]int{},
		referenced: map[string]bool{},
	}
}

func cloneRubric(r *models.Rubric) *models.Rubric {
	c := *r
	c.Criteria = make([]models.Criterion, len(r.Criteria))
	for i, cr := range r.Criteria {
		cr.Levels = append([]models.Level(nil), cr.Levels...)
		c.Criteria[i] = cr
	}
	return &c
}

func (r *fakeRubricRepo) Create(_ context.Context, rubric *models.Rubric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rubrics[rubric.ID] = cloneRubric(rubric)
	return nil
}

func (r *fakeRubricRepo) GetByID(_ context.Context, id string) (*models.Rubric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rubric, ok := r.rubrics[id]
	if !ok {
		return nil, nil
	}
	return cloneRubric(rubric), nil
}

func (r *fakeRubricRepo) GetAll(_ context.Context, limit, offset int) ([]models.Rubric, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Rubric
	for _, rubric := range r.rubrics {
		if rubric.IsActive {
			all = append(all, *cloneRubric(rubric))
		}
	}
	return all, len(all), nil
}

func (r *fakeRubricRepo) Update(_ context.Context, rubric *models.Rubric) error {
	return r.Create(context.Background(), rubric)
}

func (r *fakeRubricRepo) SaveCriteria(_ context.Context, rubric *models.Rubric) error {
	return r.Create(context.Background(), rubric)
}

func (r *fakeRubricRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rubrics[id].IsActive = false
	return nil
}

func (r *fakeRubricRepo) CountOpenSessions(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openCount[id], nil
}

func (r *fakeRubricRepo) IsReferenced(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.referenced[id], nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*models.Session{}}
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	c.Participants = append([]models.Participant(nil), s.Participants...)
	c.Students = append([]models.Student(nil), s.Students...)
	return &c
}

func (r *fakeSessionRepo) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *fakeSessionRepo) GetAll(_ context.Context, filter models.SessionFilter, limit, offset int) ([]models.Session, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Session
	for _, s := range r.sessions {
		if !s.IsActive {
			continue
		}
		if filter.Status != "" && string(s.Status) != filter.Status {
			continue
		}
		if filter.JuryID != "" {
			found := false
			for _, p := range s.Participants {
				found = found || p.JuryID == filter.JuryID
			}
			if !found {
				continue
			}
		}
		all = append(all, *cloneSession(s))
	}
	return all, len(all), nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.sessions[s.ID]
	c := cloneSession(s)
	c.Participants = stored.Participants
	c.Students = stored.Students
	r.sessions[s.ID] = c
	return nil
}

func (r *fakeSessionRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id].IsActive = false
	return nil
}

func (r *fakeSessionRepo) AddStudent(_ context.Context, st *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[st.SessionID]
	if len(s.Students) >= s.MaxStudents {
		return models.ErrCapacityExceeded
	}
	s.Students = append(s.Students, *st)
	return nil
}

func (r *fakeSessionRepo) UpdateStudent(_ context.Context, st *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[st.SessionID]
	for i := range s.Students {
		if s.Students[i].ID == st.ID {
			s.Students[i] = *st
		}
	}
	return nil
}

func (r *fakeSessionRepo) RemoveStudent(_ context.Context, sessionID, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[sessionID]
	for i := range s.Students {
		if s.Students[i].ID == studentID {
			s.Students = append(s.Students[:i], s.Students[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeSessionRepo) AddParticipant(_ context.Context, p *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[p.SessionID]
	s.Participants = append(s.Participants, *p)
	return nil
}

func (r *fakeSessionRepo) UpdateParticipant(_ context.Context, p *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[p.SessionID]
	for i := range s.Participants {
		if s.Participants[i].ID == p.ID {
			s.Participants[i] = *p
		}
	}
	return nil
}

type fakeEvaluationRepo struct {
	mu       sync.Mutex
	evals    map[string]*models.Evaluation
	sessions *fakeSessionRepo
	saves    int
	failSave error
}

// newFakeEvaluationRepo resolves student results through sessions, the way
// the SQL joins enrollments to their profile.
func newFakeEvaluationRepo(sessions *fakeSessionRepo) *fakeEvaluationRepo {
	return &fakeEvaluationRepo{evals: map[string]*models.Evaluation{}, sessions: sessions}
}

func cloneEvaluation(e *models.Evaluation) *models.Evaluation {
	c := *e
	c.Scores = append([]models.EvaluationScore(nil), e.Scores...)
	return &c
}

func (r *fakeEvaluationRepo) Create(_ context.Context, e *models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evals[e.ID] = cloneEvaluation(e)
	return nil
}

func (r *fakeEvaluationRepo) GetByID(_ context.Context, id string) (*models.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.evals[id]
	if !ok {
		return nil, nil
	}
	return cloneEvaluation(e), nil
}

func (r *fakeEvaluationRepo) GetByKey(_ context.Context, sessionID, studentID, juryID string) (*models.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.evals {
		if e.SessionID == sessionID && e.StudentID == studentID && e.JuryID == juryID {
			return cloneEvaluation(e), nil
		}
	}
	return nil, nil
}

func (r *fakeEvaluationRepo) Save(_ context.Context, e *models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	r.saves++
	r.evals[e.ID] = cloneEvaluation(e)
	return nil
}

func (r *fakeEvaluationRepo) ListBySession(_ context.Context, sessionID string) ([]models.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Evaluation
	for _, e := range r.evals {
		if e.SessionID == sessionID {
			out = append(out, *cloneEvaluation(e))
		}
	}
	return out, nil
}

func (r *fakeEvaluationRepo) ListByJury(_ context.Context, juryID string, limit, offset int) ([]models.Evaluation, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Evaluation
	for _, e := range r.evals {
		if e.JuryID == juryID {
			out = append(out, *cloneEvaluation(e))
		}
	}
	return out, len(out), nil
}

func (r *fakeEvaluationRepo) CountCompletedBySession(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.evals {
		if e.SessionID == sessionID && e.Status == models.EvaluationCompleted {
			n++
		}
	}
	return n, nil
}

func (r *fakeEvaluationRepo) ListResultsByStudentProfile(_ context.Context, profileID string) ([]models.StudentResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions.mu.Lock()
	defer r.sessions.mu.Unlock()

	var out []models.StudentResult
	for _, e := range r.evals {
		if e.Status != models.EvaluationCompleted {
			continue
		}
		session := r.sessions.sessions[e.SessionID]
		if session == nil {
			continue
		}
		for _, st := range session.Students {
			if st.ID == e.StudentID && st.ProfileID != nil && *st.ProfileID == profileID {
				out = append(out, models.StudentResult{
					EvaluationID:    e.ID,
					SessionID:       e.SessionID,
					SessionTitle:    session.Title,
					TotalScore:      e.TotalScore,
					MaxScore:        e.MaxScore,
					WrittenFeedback: e.WrittenFeedback,
					SubmittedAt:     e.SubmittedAt,
				})
			}
		}
	}
	return out, nil
}

type fakeArtifacts struct {
	objects map[string]int64
	fail    error
}

func (a *fakeArtifacts) Upload(_ context.Context, key string, body io.Reader, size int64, _ string) (string, error) {
	if a.fail != nil {
		return "", a.fail
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	a.objects[key] = size
	return "http://storage.test/edujury-feedback/" + key, nil
}

func (a *fakeArtifacts) Delete(_ context.Context, key string) error {
	delete(a.objects, key)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	statuses  []models.SessionStatusChangedEvent
	completed []models.EvaluationCompletedEvent
	fail      error
}

func (p *fakePublisher) PublishSessionStatusChanged(_ context.Context, e *models.SessionStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.statuses = append(p.statuses, *e)
	return nil
}

func (p *fakePublisher) PublishEvaluationCompleted(_ context.Context, e *models.EvaluationCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.completed = append(p.completed, *e)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

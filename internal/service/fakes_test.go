package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
)

type fakeTx struct {
	mu    sync.Mutex
	modes []db.TxMode
}

func (f *fakeTx) WithinTx(ctx context.Context, mode db.TxMode, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	return fn(ctx)
}

type fakeAssignmentRepo struct {
	mu      sync.Mutex
	items   map[string]domain.Assignment
	missing []domain.MissingResultEntry
}

func newFakeAssignmentRepo(items ...domain.Assignment) *fakeAssignmentRepo {
	r := &fakeAssignmentRepo{items: make(map[string]domain.Assignment)}
	for _, a := range items {
		r.items[a.ID] = a
	}
	return r
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id string) (domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.Status == domain.AssignmentDeleted {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	return a, nil
}

func (r *fakeAssignmentRepo) LockByID(ctx context.Context, id string) (domain.Assignment, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeAssignmentRepo) ListByUser(_ context.Context, userID, assessmentType string) ([]domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Assignment
	for _, a := range r.items {
		if a.UserID == userID && a.AssessmentType == assessmentType && a.Status != domain.AssignmentDeleted {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].Status == domain.AssignmentCompleted, out[j].Status == domain.AssignmentCompleted
		if ci != cj {
			return ci
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *fakeAssignmentRepo) MarkCompleted(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.items[id]
	if a.Status == domain.AssignmentCompleted {
		return nil
	}
	a.Status = domain.AssignmentCompleted
	a.CompletedAt = &at
	a.UpdatedAt = at
	r.items[id] = a
	return nil
}

func (r *fakeAssignmentRepo) SetConfig(_ context.Context, id, configID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return domain.ErrAssignmentNotFound
	}
	a.ConfigID = &configID
	r.items[id] = a
	return nil
}

func (r *fakeAssignmentRepo) ListCompletedWithoutConfig(_ context.Context, tenantID string) ([]domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Assignment
	for _, a := range r.items {
		if a.TenantID == tenantID && a.Status == domain.AssignmentCompleted && !a.HasConfigSnapshot() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAssignmentRepo) ListCompletedWithoutResult(context.Context, string) ([]domain.MissingResultEntry, error) {
	return r.missing, nil
}

func (r *fakeAssignmentRepo) get(id string) domain.Assignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id]
}

type fakeResponseRepo struct {
	mu        sync.Mutex
	questions map[string]domain.Question
	items     map[string][]domain.ScoredResponse
}

func newFakeResponseRepo(questions []domain.Question) *fakeResponseRepo {
	r := &fakeResponseRepo{questions: make(map[string]domain.Question), items: make(map[string][]domain.ScoredResponse)}
	for _, q := range questions {
		r.questions[q.ID] = q
	}
	return r
}

func (r *fakeResponseRepo) answer(assignmentID string, values map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, qid := range ids {
		r.items[assignmentID] = append(r.items[assignmentID], domain.ScoredResponse{
			Response: domain.Response{ID: assignmentID + "-" + qid, AssignmentID: assignmentID, QuestionID: qid, Value: values[qid]},
			Question: r.questions[qid],
		})
	}
}

func (r *fakeResponseRepo) ListScored(_ context.Context, assignmentID string) ([]domain.ScoredResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ScoredResponse(nil), r.items[assignmentID]...), nil
}

func (r *fakeResponseRepo) Count(_ context.Context, assignmentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items[assignmentID]), nil
}

func (r *fakeResponseRepo) Replace(_ context.Context, assignmentID string, answers []domain.Answer, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[assignmentID] = nil
	for _, a := range answers {
		r.items[assignmentID] = append(r.items[assignmentID], domain.ScoredResponse{
			Response: domain.Response{AssignmentID: assignmentID, QuestionID: a.QuestionID, Value: a.Value, CreatedAt: at},
			Question: r.questions[a.QuestionID],
		})
	}
	return nil
}

type fakeQuestionRepo struct {
	items []domain.Question
}

func (r *fakeQuestionRepo) ListByModel(_ context.Context, modelID string) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range r.items {
		if q.AssessmentModelID == modelID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) Upsert(_ context.Context, q domain.Question) error {
	for i, existing := range r.items {
		if existing.ID == q.ID {
			r.items[i] = q
			return nil
		}
	}
	r.items = append(r.items, q)
	return nil
}

type fakeResultRepo struct {
	mu      sync.Mutex
	items   map[string]domain.ScoredResult
	upserts int
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{items: make(map[string]domain.ScoredResult)}
}

func (r *fakeResultRepo) GetByAssignment(_ context.Context, assignmentID string) (domain.ScoredResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[assignmentID]
	if !ok {
		return domain.ScoredResult{}, domain.ErrResultNotFound
	}
	return res, nil
}

func (r *fakeResultRepo) Upsert(_ context.Context, result domain.ScoredResult) (domain.ScoredResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	if existing, ok := r.items[result.AssignmentID]; ok {
		result.ID = existing.ID
		result.CreatedAt = existing.CreatedAt
	}
	r.items[result.AssignmentID] = result
	return result, nil
}

func (r *fakeResultRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeConfigRepo struct {
	mu       sync.Mutex
	items    map[string]domain.ScoringConfiguration
	texts    []domain.InterpretiveText
	recs     []domain.Recommendation
	textsErr error
	recsErr  error
}

func newFakeConfigRepo(cfgs ...domain.ScoringConfiguration) *fakeConfigRepo {
	r := &fakeConfigRepo{items: make(map[string]domain.ScoringConfiguration)}
	for _, c := range cfgs {
		r.texts = append(r.texts, c.Texts...)
		r.recs = append(r.recs, c.Recommendations...)
		c.Texts, c.Recommendations = nil, nil
		r.items[c.ID] = c
	}
	return r
}

func (r *fakeConfigRepo) GetByID(_ context.Context, id string) (domain.ScoringConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return domain.ScoringConfiguration{}, domain.ErrConfigurationNotFound
	}
	return c, nil
}

func (r *fakeConfigRepo) GetActive(_ context.Context, tenantID string) (domain.ScoringConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.TenantID == tenantID && c.IsActive {
			return c, nil
		}
	}
	return domain.ScoringConfiguration{}, domain.ErrConfigurationNotFound
}

func (r *fakeConfigRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.ScoringConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScoringConfiguration
	for _, c := range r.items {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeConfigRepo) Create(_ context.Context, cfg domain.ScoringConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.items[cfg.ID]; dup {
		return fmt.Errorf("duplicate config %s", cfg.ID)
	}
	r.texts = append(r.texts, cfg.Texts...)
	r.recs = append(r.recs, cfg.Recommendations...)
	cfg.Texts, cfg.Recommendations = nil, nil
	r.items[cfg.ID] = cfg
	return nil
}

func (r *fakeConfigRepo) AddTraits(_ context.Context, configID string, traits []domain.TraitConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[configID]
	if !ok {
		return domain.ErrConfigurationNotFound
	}
	c.Traits = append(c.Traits, traits...)
	r.items[configID] = c
	return nil
}

func (r *fakeConfigRepo) AddFacets(_ context.Context, traitID string, facets []domain.FacetConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.items {
		for i, t := range c.Traits {
			if t.ID == traitID {
				c.Traits[i].Facets = append(c.Traits[i].Facets, facets...)
				r.items[id] = c
				return nil
			}
		}
	}
	return errors.New("trait not found")
}

func (r *fakeConfigRepo) UpdateThresholds(_ context.Context, id string, t domain.Thresholds) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return domain.ErrConfigurationNotFound
	}
	c.Thresholds = t
	r.items[id] = c
	return nil
}

func (r *fakeConfigRepo) Activate(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.items[id]
	if !ok || target.TenantID != tenantID {
		return domain.ErrConfigurationNotFound
	}
	for cid, c := range r.items {
		if c.TenantID == tenantID {
			c.IsActive = cid == id
			r.items[cid] = c
		}
	}
	return nil
}

func (r *fakeConfigRepo) DeactivateAll(_ context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for cid, c := range r.items {
		if c.TenantID == tenantID {
			c.IsActive = false
			r.items[cid] = c
		}
	}
	return nil
}

func (r *fakeConfigRepo) ListTexts(_ context.Context, configID string) ([]domain.InterpretiveText, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.textsErr != nil {
		return nil, r.textsErr
	}
	var out []domain.InterpretiveText
	for _, t := range r.texts {
		if t.ConfigID == configID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeConfigRepo) AddTexts(_ context.Context, texts []domain.InterpretiveText) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, texts...)
	return nil
}

func (r *fakeConfigRepo) ListRecommendations(_ context.Context, configID string) ([]domain.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recsErr != nil {
		return nil, r.recsErr
	}
	var out []domain.Recommendation
	for _, rec := range r.recs {
		if rec.ConfigID == configID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeConfigRepo) AddRecommendations(_ context.Context, recs []domain.Recommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, recs...)
	return nil
}

func (r *fakeConfigRepo) UpdateTrait(_ context.Context, t domain.TraitConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[t.ConfigID]
	if !ok {
		return domain.ErrTraitNotFound
	}
	for i := range c.Traits {
		if c.Traits[i].ID == t.ID {
			facets := c.Traits[i].Facets
			c.Traits[i] = t
			c.Traits[i].Facets = facets
			return nil
		}
	}
	return domain.ErrTraitNotFound
}

func (r *fakeConfigRepo) UpdateFacet(_ context.Context, f domain.FacetConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		for i := range c.Traits {
			for j := range c.Traits[i].Facets {
				if c.Traits[i].Facets[j].ID == f.ID {
					c.Traits[i].Facets[j] = f
					return nil
				}
			}
		}
	}
	return domain.ErrFacetNotFound
}

func (r *fakeConfigRepo) UpdateText(_ context.Context, t domain.InterpretiveText) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.texts {
		if r.texts[i].ID == t.ID && r.texts[i].ConfigID == t.ConfigID {
			r.texts[i] = t
			return nil
		}
	}
	return domain.ErrTextNotFound
}

func (r *fakeConfigRepo) DeleteText(_ context.Context, configID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.texts {
		if t.ID == id && t.ConfigID == configID {
			r.texts = append(r.texts[:i], r.texts[i+1:]...)
			return nil
		}
	}
	return domain.ErrTextNotFound
}

func (r *fakeConfigRepo) UpdateRecommendation(_ context.Context, rec domain.Recommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.recs {
		if r.recs[i].ID == rec.ID && r.recs[i].ConfigID == rec.ConfigID {
			r.recs[i] = rec
			return nil
		}
	}
	return domain.ErrRecommendationNotFound
}

func (r *fakeConfigRepo) DeleteRecommendation(_ context.Context, configID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.recs {
		if rec.ID == id && rec.ConfigID == configID {
			r.recs = append(r.recs[:i], r.recs[i+1:]...)
			return nil
		}
	}
	return domain.ErrRecommendationNotFound
}

func (r *fakeConfigRepo) activeIDs(tenantID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, c := range r.items {
		if c.TenantID == tenantID && c.IsActive {
			ids = append(ids, id)
		}
	}
	return ids
}

type fakeConnectionRepo struct {
	items map[string]domain.Connection
}

func (r *fakeConnectionRepo) GetByID(_ context.Context, id string) (domain.Connection, error) {
	c, ok := r.items[id]
	if !ok {
		return domain.Connection{}, domain.ErrConnectionNotFound
	}
	return c, nil
}

type fakeUserRepo struct {
	items map[string]domain.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	u, ok := r.items[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

type fakeReportRepo struct {
	mu    sync.Mutex
	items []domain.CrossProfileReport
}

func (r *fakeReportRepo) Create(_ context.Context, report domain.CrossProfileReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, report)
	return nil
}

func (r *fakeReportRepo) GetByID(_ context.Context, id string) (domain.CrossProfileReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.items {
		if rep.ID == id {
			return rep, nil
		}
	}
	return domain.CrossProfileReport{}, domain.ErrReportNotFound
}

func (r *fakeReportRepo) ListByConnection(_ context.Context, connectionID string) ([]domain.CrossProfileReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CrossProfileReport
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].ConnectionID == connectionID {
			out = append(out, r.items[i])
		}
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"bigfive-core/internal/domain"
	"bigfive-core/internal/seed"
)

type stubDrafter struct {
	err   error
	calls int
}

func (d *stubDrafter) Draft(_ context.Context, req TextDraftRequest) (string, error) {
	d.calls++
	if d.err != nil {
		return "", d.err
	}
	return "draft " + req.TraitKey + " " + string(req.Band) + " " + string(req.Category), nil
}

type configFixture struct {
	configs     *fakeConfigRepo
	assignments *fakeAssignmentRepo
	questions   *fakeQuestionRepo
	svc         *ConfigService
}

func newConfigFixture(drafter TextDrafter, cfgs ...domain.ScoringConfiguration) *configFixture {
	f := &configFixture{
		configs:     newFakeConfigRepo(cfgs...),
		assignments: newFakeAssignmentRepo(),
		questions:   &fakeQuestionRepo{},
	}
	f.svc = NewConfigService(f.configs, f.assignments, f.questions, &fakeTx{}, drafter, zap.NewNop())
	return f
}

func TestConfigService_ActivateLeavesSingleActive(t *testing.T) {
	second := testConfig("cfg-2", testTenant)
	foreign := testConfig("cfg-foreign", "tenant-2")
	foreign.IsActive = true
	f := newConfigFixture(nil, activeConfig(), second, foreign)

	if err := f.svc.Activate(context.Background(), testTenant, "cfg-2"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if ids := f.configs.activeIDs(testTenant); len(ids) != 1 || ids[0] != "cfg-2" {
		t.Fatalf("expected only cfg-2 active, got %v", ids)
	}
	if ids := f.configs.activeIDs("tenant-2"); len(ids) != 1 {
		t.Fatalf("other tenants must not change, got %v", ids)
	}

	if err := f.svc.Activate(context.Background(), testTenant, "cfg-foreign"); !errors.Is(err, domain.ErrConfigurationNotFound) {
		t.Fatalf("expected ErrConfigurationNotFound, got %v", err)
	}
	if ids := f.configs.activeIDs(testTenant); len(ids) != 1 || ids[0] != "cfg-2" {
		t.Fatalf("failed activation changed state: %v", ids)
	}
}

func TestConfigService_CreateConfigClonesActive(t *testing.T) {
	f := newConfigFixture(nil, activeConfig())

	cfg, err := f.svc.CreateConfig(context.Background(), testTenant, CreateConfigInput{Name: "  Nova  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cfg.Name != "Nova" || cfg.IsActive {
		t.Fatalf("unexpected config: name=%q active=%v", cfg.Name, cfg.IsActive)
	}
	if len(cfg.Traits) != 5 || len(cfg.Traits[0].Facets) != 2 {
		t.Fatalf("traits not cloned: %+v", cfg.Traits)
	}
	for _, tr := range cfg.Traits {
		if strings.HasPrefix(tr.ID, "cfg-active") || tr.ConfigID != cfg.ID {
			t.Fatalf("clone shares identity with source: %+v", tr)
		}
		for _, fc := range tr.Facets {
			if fc.TraitID != tr.ID {
				t.Fatalf("facet not re-parented: %+v", fc)
			}
		}
	}
	if ids := f.configs.activeIDs(testTenant); len(ids) != 1 || ids[0] != "cfg-active" {
		t.Fatalf("new config must not be activated: %v", ids)
	}

	bad := domain.Thresholds{VeryLowMax: 50, LowMax: 40, AverageMax: 60, HighMax: 80}
	if _, err := f.svc.CreateConfig(context.Background(), testTenant, CreateConfigInput{Thresholds: &bad}); !errors.Is(err, domain.ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
	if list, _ := f.svc.ListConfigs(context.Background(), testTenant); len(list) != 2 {
		t.Fatalf("invalid config was stored: %d configs", len(list))
	}
}

func TestConfigService_UpdateThresholds(t *testing.T) {
	f := newConfigFixture(nil, activeConfig())
	next := domain.Thresholds{VeryLowMax: 15, LowMax: 35, AverageMax: 65, HighMax: 85}
	if err := f.svc.UpdateThresholds(context.Background(), testTenant, "cfg-active", next); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := f.configs.GetByID(context.Background(), "cfg-active")
	if got.Thresholds != next {
		t.Fatalf("thresholds not stored: %+v", got.Thresholds)
	}
	if err := f.svc.UpdateThresholds(context.Background(), "tenant-2", "cfg-active", next); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign tenant, got %v", err)
	}
	if err := f.svc.UpdateThresholds(context.Background(), testTenant, "cfg-active", domain.Thresholds{HighMax: 100}); !errors.Is(err, domain.ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
}

func TestConfigService_CreateDefaultConfig(t *testing.T) {
	f := newConfigFixture(nil, activeConfig())

	cfg, err := f.svc.CreateDefaultConfig(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if cfg.Name != seed.DefaultConfigName || len(cfg.Traits) != 5 {
		t.Fatalf("unexpected default config: %+v", cfg)
	}
	for _, tr := range cfg.Traits {
		if len(tr.Facets) != 6 {
			t.Fatalf("%s: expected 6 facets, got %d", tr.Key, len(tr.Facets))
		}
	}
	if ids := f.configs.activeIDs(testTenant); len(ids) != 1 || ids[0] != cfg.ID {
		t.Fatalf("default config must be the only active one: %v", ids)
	}
}

func TestConfigService_GetSettingsBackfillsEmptyConfig(t *testing.T) {
	empty := domain.ScoringConfiguration{
		ID: "cfg-empty", TenantID: testTenant, Name: "Vazia",
		Thresholds: domain.DefaultThresholds(), Scale: domain.DefaultScale(), Method: domain.MethodWeightedMean,
	}
	f := newConfigFixture(nil, activeConfig(), empty)
	f.configs.texts = []domain.InterpretiveText{{ConfigID: "cfg-empty", TraitKey: domain.TraitOpenness, Band: domain.BandHigh, Category: domain.TextSummary, Text: "x"}}

	cfg, err := f.svc.GetSettings(context.Background(), testTenant, "cfg-empty")
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if len(cfg.Traits) != 5 {
		t.Fatalf("expected backfilled traits, got %d", len(cfg.Traits))
	}
	if len(cfg.Texts) != 1 {
		t.Fatalf("texts not loaded: %+v", cfg.Texts)
	}
	added, err := f.svc.PopulateFromActive(context.Background(), testTenant, "cfg-empty")
	if err != nil || added != 0 {
		t.Fatalf("second populate should add nothing: added=%d err=%v", added, err)
	}
	if _, err := f.svc.GetSettings(context.Background(), "tenant-2", "cfg-empty"); !errors.Is(err, domain.ErrConfigurationNotFound) {
		t.Fatalf("expected ErrConfigurationNotFound, got %v", err)
	}
}

func TestConfigService_FixMissingFacets(t *testing.T) {
	cfg := activeConfig()
	cfg.Traits[2].Facets = nil
	cfg.Traits[2].Key = "EXTROVERSAO"
	custom := domain.TraitConfig{ID: "t-custom", ConfigID: cfg.ID, Key: "HUMOR", Name: "Humor", Weight: 1, IsActive: true}
	cfg.Traits = append(cfg.Traits, custom)
	f := newConfigFixture(nil, cfg)

	fixes, err := f.svc.FixMissingFacets(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("fix facets: %v", err)
	}
	if len(fixes) != 1 || len(fixes[0].TraitsFixed) != 1 || fixes[0].TraitsFixed[0] != "Extroversão" {
		t.Fatalf("unexpected fixes: %+v", fixes)
	}
	got, _ := f.configs.GetByID(context.Background(), cfg.ID)
	facets := got.Traits[2].Facets
	if len(facets) != 6 || facets[0].Key != "EXTROVERSAO_F1" || facets[0].Name != "Cordialidade" {
		t.Fatalf("template facets not added: %+v", facets)
	}
	if len(got.Traits[5].Facets) != 0 {
		t.Fatalf("unknown trait must be left alone")
	}

	again, err := f.svc.FixMissingFacets(context.Background(), testTenant)
	if err != nil || len(again) != 0 {
		t.Fatalf("second run should be a no-op: %+v %v", again, err)
	}
}

func TestConfigService_PopulateTextsPlaceholders(t *testing.T) {
	f := newConfigFixture(nil, activeConfig())
	f.configs.texts = []domain.InterpretiveText{
		{ConfigID: "cfg-active", TraitKey: domain.TraitOpenness, Band: domain.BandLow, Category: domain.TextSummary, Text: "existente"},
	}

	n, err := f.svc.PopulateTexts(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	if n != 5*5*4-1 {
		t.Fatalf("expected %d texts, got %d", 5*5*4-1, n)
	}
	texts, _ := f.configs.ListTexts(context.Background(), "cfg-active")
	var impact int
	for _, tx := range texts {
		if tx.Text == "existente" {
			continue
		}
		if !strings.Contains(tx.Text, "(Placeholder - Config: Test cfg-active)") {
			t.Fatalf("unexpected placeholder %q", tx.Text)
		}
		if tx.Category == domain.TextPracticalImpact {
			impact++
			if tx.Context != PracticalImpactContext {
				t.Fatalf("practical impact without context: %+v", tx)
			}
		}
	}
	if impact != 25 {
		t.Fatalf("expected 25 practical impact texts, got %d", impact)
	}

	n, err = f.svc.PopulateTexts(context.Background(), testTenant)
	if err != nil || n != 0 {
		t.Fatalf("second populate should add nothing: n=%d err=%v", n, err)
	}
}

func TestConfigService_PopulateTextsWithDrafter(t *testing.T) {
	drafter := &stubDrafter{}
	f := newConfigFixture(drafter, activeConfig())

	n, err := f.svc.PopulateTexts(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	if n != 100 || drafter.calls != 100 {
		t.Fatalf("expected 100 drafted texts, got n=%d calls=%d", n, drafter.calls)
	}
	texts, _ := f.configs.ListTexts(context.Background(), "cfg-active")
	if !strings.HasPrefix(texts[0].Text, "draft ") {
		t.Fatalf("drafter output not used: %q", texts[0].Text)
	}
}

func TestConfigService_PopulateTextsDrafterFailureFallsBack(t *testing.T) {
	f := newConfigFixture(&stubDrafter{err: errors.New("rate limited")}, activeConfig())

	n, err := f.svc.PopulateTexts(context.Background(), testTenant)
	if err != nil || n != 100 {
		t.Fatalf("populate: n=%d err=%v", n, err)
	}
	texts, _ := f.configs.ListTexts(context.Background(), "cfg-active")
	if !strings.Contains(texts[0].Text, "Placeholder") {
		t.Fatalf("expected placeholder fallback, got %q", texts[0].Text)
	}
}

func TestConfigService_LinkAssignmentsToActive(t *testing.T) {
	f := newConfigFixture(nil, activeConfig())
	f.assignments = newFakeAssignmentRepo(
		testAssignment("a1", "u1", domain.AssignmentCompleted, ""),
		testAssignment("a2", "u2", domain.AssignmentCompleted, ""),
		testAssignment("a3", "u3", domain.AssignmentCompleted, "cfg-old"),
		testAssignment("a4", "u4", domain.AssignmentPending, ""),
	)
	f.svc.assignments = f.assignments

	n, err := f.svc.LinkAssignmentsToActive(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 linked, got %d", n)
	}
	for _, id := range []string{"a1", "a2"} {
		if a := f.assignments.get(id); !a.HasConfigSnapshot() || *a.ConfigID != "cfg-active" {
			t.Fatalf("%s not linked", id)
		}
	}
	if *f.assignments.get("a3").ConfigID != "cfg-old" || f.assignments.get("a4").HasConfigSnapshot() {
		t.Fatalf("unrelated assignments changed")
	}
}

func TestConfigService_ImportConfiguration(t *testing.T) {
	f := newConfigFixture(nil, activeConfig())
	doc, err := seed.LoadConfiguration(strings.NewReader(`
name: Importada
active: true
traits:
  - key: OPENNESS
    name: Abertura
    facets:
      - name: Ideias
questions:
  - id: q-imp-1
    model: model-imp
    text: "Gosto de ideias novas (INV)"
    key: "OPENNESS::Ideias"
`), testTenant)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg, err := f.svc.ImportConfiguration(context.Background(), doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if ids := f.configs.activeIDs(testTenant); len(ids) != 1 || ids[0] != cfg.ID {
		t.Fatalf("imported active config must be the only active: %v", ids)
	}
	if len(f.questions.items) != 1 || !f.questions.items[0].IsReverse || f.questions.items[0].FacetKey != "Ideias" {
		t.Fatalf("questions not imported: %+v", f.questions.items)
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"bigfive-core/internal/domain"
)

type crossFixture struct {
	assignments *fakeAssignmentRepo
	responses   *fakeResponseRepo
	results     *fakeResultRepo
	reports     *fakeReportRepo
	connections *fakeConnectionRepo
	svc         *CrossProfileService
}

func newCrossFixture(status domain.ConnectionStatus, assignments ...domain.Assignment) *crossFixture {
	f := &crossFixture{
		assignments: newFakeAssignmentRepo(assignments...),
		responses:   newFakeResponseRepo(testQuestions()),
		results:     newFakeResultRepo(),
		reports:     &fakeReportRepo{},
		connections: &fakeConnectionRepo{items: map[string]domain.Connection{
			"c1": {ID: "c1", UserAID: "alice", UserBID: "bob", Status: status},
		}},
	}
	users := &fakeUserRepo{items: map[string]domain.User{
		"alice": {ID: "alice", TenantID: testTenant, Name: "Alice", Email: "alice@example.com"},
		"bob":   {ID: "bob", TenantID: testTenant, Name: "Bob", Email: "bob@example.com"},
	}}
	repair := NewRepairService(f.assignments, f.responses, f.results, newFakeConfigRepo(activeConfig()), &fakeTx{}, nil, zap.NewNop())
	f.svc = NewCrossProfileService(f.connections, users, f.assignments, f.responses, f.results, f.reports, repair, zap.NewNop())
	return f
}

func (f *crossFixture) storeResult(assignmentID string, scores domain.TraitScores) {
	f.results.items[assignmentID] = domain.ScoredResult{ID: "res-" + assignmentID, AssignmentID: assignmentID, Scores: scores}
}

func TestCrossProfileService_IdenticalProfiles(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
		testAssignment("a-bob", "bob", domain.AssignmentCompleted, "cfg-active"))
	f.storeResult("a-alice", uniformScores(80))
	f.storeResult("a-bob", uniformScores(80))

	report, err := f.svc.CompareProfiles(context.Background(), "c1", "alice")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if report.MatchLevel != domain.HighSynchrony || report.AverageDiff != 0 {
		t.Fatalf("unexpected match: %s avg=%v", report.MatchLevel, report.AverageDiff)
	}
	if report.AuthorID != "alice" || report.TargetID != "bob" {
		t.Fatalf("wrong direction: %+v", report)
	}
	if report.AuthorAssignmentID != "a-alice" || report.TargetAssignmentID != "a-bob" {
		t.Fatalf("assignment snapshot missing: %+v", report)
	}
	if len(f.reports.items) != 1 {
		t.Fatalf("expected stored report, got %d", len(f.reports.items))
	}
	stored, err := f.svc.GetReport(context.Background(), report.ID, ReportViewer{UserID: "bob"})
	if err != nil || stored.ID != report.ID {
		t.Fatalf("get report: %v", err)
	}
	if _, err := f.svc.GetReport(context.Background(), report.ID, ReportViewer{UserID: "mallory"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("outsider must not read the report, got %v", err)
	}
}

func TestCrossProfileService_SymmetricGaps(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
		testAssignment("a-bob", "bob", domain.AssignmentCompleted, "cfg-active"))
	f.storeResult("a-alice", uniformScores(20))
	f.storeResult("a-bob", uniformScores(55))

	ab, err := f.svc.CompareProfiles(context.Background(), "c1", "alice")
	if err != nil {
		t.Fatalf("compare alice: %v", err)
	}
	ba, err := f.svc.CompareProfiles(context.Background(), "c1", "bob")
	if err != nil {
		t.Fatalf("compare bob: %v", err)
	}
	for k, g := range ab.ScoreGap {
		if ba.ScoreGap[k].Diff != g.Diff || g.Diff != 35 || g.Classification != domain.Complementary {
			t.Fatalf("%s: %+v vs %+v", k, g, ba.ScoreGap[k])
		}
	}
	if ab.MatchLevel != domain.Challenging || ba.AuthorID != "bob" {
		t.Fatalf("unexpected reports: %+v / %+v", ab, ba)
	}
	list, err := f.svc.ListReports(context.Background(), "c1", ReportViewer{UserID: "alice"})
	if err != nil || len(list) != 2 || list[0].ID != ba.ID {
		t.Fatalf("list should return newest first: %v %+v", err, list)
	}
	if _, err := f.svc.ListReports(context.Background(), "c1", ReportViewer{UserID: "mallory"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("outsider must not list reports, got %v", err)
	}
}

func TestCrossProfileService_InactiveConnection(t *testing.T) {
	for _, status := range []domain.ConnectionStatus{domain.ConnectionPending, domain.ConnectionBlocked} {
		f := newCrossFixture(status,
			testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
			testAssignment("a-bob", "bob", domain.AssignmentCompleted, "cfg-active"))
		f.storeResult("a-alice", uniformScores(80))
		f.storeResult("a-bob", uniformScores(80))

		if _, err := f.svc.CompareProfiles(context.Background(), "c1", "alice"); !errors.Is(err, domain.ErrInvalidConnection) {
			t.Fatalf("%s: expected ErrInvalidConnection, got %v", status, err)
		}
		if len(f.reports.items) != 0 {
			t.Fatalf("%s: report must not be stored", status)
		}
	}
}

func TestCrossProfileService_RejectsOutsidersAndUnknownConnections(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive)
	if _, err := f.svc.CompareProfiles(context.Background(), "c1", "mallory"); !errors.Is(err, domain.ErrInvalidConnection) {
		t.Fatalf("expected ErrInvalidConnection for outsider, got %v", err)
	}
	if _, err := f.svc.CompareProfiles(context.Background(), "nope", "alice"); !errors.Is(err, domain.ErrInvalidConnection) {
		t.Fatalf("expected ErrInvalidConnection for unknown connection, got %v", err)
	}
}

func TestCrossProfileService_RepairsMissingResult(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
		testAssignment("a-bob", "bob", domain.AssignmentCompleted, "cfg-active"))
	f.storeResult("a-alice", uniformScores(75))
	f.responses.answer("a-bob", uniformAnswers(domain.DefaultScale(), 4))

	report, err := f.svc.CompareProfiles(context.Background(), "c1", "alice")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if report.AverageDiff != 0 || report.MatchLevel != domain.HighSynchrony {
		t.Fatalf("repaired result not used: %+v", report)
	}
	if _, ok := f.results.items["a-bob"]; !ok {
		t.Fatalf("bob's result should have been persisted")
	}
}

func TestCrossProfileService_PrefersNewestScorableAssignment(t *testing.T) {
	older := testAssignment("a-old", "bob", domain.AssignmentCompleted, "cfg-active")
	newer := testAssignment("a-new", "bob", domain.AssignmentCompleted, "cfg-active")
	newer.UpdatedAt = older.UpdatedAt.Add(24 * time.Hour)
	broken := testAssignment("a-broken", "bob", domain.AssignmentCompleted, "cfg-active")
	broken.UpdatedAt = older.UpdatedAt.Add(48 * time.Hour)
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"), older, newer, broken)
	f.storeResult("a-alice", uniformScores(50))
	f.storeResult("a-old", uniformScores(0))
	f.storeResult("a-new", uniformScores(50))
	f.responses.answer("a-broken", map[string]int{questionID(domain.TraitOpenness, 1): 42})

	report, err := f.svc.CompareProfiles(context.Background(), "c1", "alice")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if report.TargetAssignmentID != "a-new" {
		t.Fatalf("expected newest scorable assignment, got %s", report.TargetAssignmentID)
	}
}

func TestCrossProfileService_MissingResultDiagnostics(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
		testAssignment("a-bob", "bob", domain.AssignmentPending, ""))
	f.storeResult("a-alice", uniformScores(60))

	_, err := f.svc.CompareProfiles(context.Background(), "c1", "alice")
	if !errors.Is(err, domain.ErrMissingResult) {
		t.Fatalf("expected ErrMissingResult, got %v", err)
	}
	var diag *domain.MissingResultError
	if !errors.As(err, &diag) {
		t.Fatalf("expected *MissingResultError, got %T", err)
	}
	if diag.UserID != "bob" || diag.UserEmail != "bob@example.com" || diag.AssignmentsFound != 1 || diag.WithResponses != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diag)
	}
	if len(f.reports.items) != 0 {
		t.Fatalf("report must not be stored")
	}
}

func TestCrossProfileService_IncompleteTraits(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
		testAssignment("a-bob", "bob", domain.AssignmentCompleted, "cfg-active"))
	partial := uniformScores(40)
	delete(partial, domain.TraitAgreeableness)
	f.storeResult("a-alice", uniformScores(40))
	f.storeResult("a-bob", partial)

	report, err := f.svc.CompareProfiles(context.Background(), "c1", "bob")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	g := report.ScoreGap[domain.TraitAgreeableness]
	if !g.Incomplete || g.ScoreA != 0 || g.Diff != 40 {
		t.Fatalf("missing trait should count as 0: %+v", g)
	}
}

type failingResolver struct{ err error }

func (r failingResolver) GetOrRepair(context.Context, string) (domain.ScoredResult, bool, error) {
	return domain.ScoredResult{}, false, r.err
}

func TestCrossProfileService_ResolverOutageSurfaces(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
		testAssignment("a-bob", "bob", domain.AssignmentCompleted, "cfg-active"))
	outage := errors.New("conn refused: database unavailable")
	f.svc.resolver = failingResolver{err: outage}

	_, err := f.svc.CompareProfiles(context.Background(), "c1", "alice")
	if !errors.Is(err, outage) {
		t.Fatalf("expected outage error, got %v", err)
	}
	if errors.Is(err, domain.ErrMissingResult) {
		t.Fatalf("outage must not be reported as missing result: %v", err)
	}

	f.svc.resolver = failingResolver{err: domain.ErrAssignmentBusy}
	if _, err := f.svc.CompareProfiles(context.Background(), "c1", "alice"); !errors.Is(err, domain.ErrAssignmentBusy) {
		t.Fatalf("expected ErrAssignmentBusy, got %v", err)
	}
}

func TestCrossProfileService_MissingResultRecordsCauses(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
		testAssignment("a-bob", "bob", domain.AssignmentCompleted, "cfg-active"))
	f.storeResult("a-alice", uniformScores(60))
	f.responses.answer("a-bob", map[string]int{questionID(domain.TraitOpenness, 1): 42})

	_, err := f.svc.CompareProfiles(context.Background(), "c1", "alice")
	var diag *domain.MissingResultError
	if !errors.As(err, &diag) {
		t.Fatalf("expected *MissingResultError, got %v", err)
	}
	if len(diag.Causes) != 1 || diag.WithResponses != 1 || diag.Completed != 1 {
		t.Fatalf("unexpected diagnostics: %+v", diag)
	}
	if !strings.Contains(err.Error(), "a-bob") || strings.Contains(err.Error(), "never answered") {
		t.Fatalf("message must name the corrupt assignment: %v", err)
	}
}

func TestCrossProfileService_LeavesUnfinishedAssignmentsAlone(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
		testAssignment("a-bob", "bob", domain.AssignmentInProgress, "cfg-active"))
	f.storeResult("a-alice", uniformScores(60))
	f.responses.answer("a-bob", uniformAnswers(domain.DefaultScale(), 4))

	_, err := f.svc.CompareProfiles(context.Background(), "c1", "alice")
	var diag *domain.MissingResultError
	if !errors.As(err, &diag) || diag.Completed != 0 || diag.WithResponses != 1 {
		t.Fatalf("expected missing result without completed assignments, got %v", err)
	}
	if got := f.assignments.items["a-bob"].Status; got != domain.AssignmentInProgress {
		t.Fatalf("in-progress assignment was touched: %s", got)
	}
	if _, ok := f.results.items["a-bob"]; ok {
		t.Fatalf("no result should be stored for an unfinished assignment")
	}
}

func TestCrossProfileService_ReportReadsScopedByTenant(t *testing.T) {
	f := newCrossFixture(domain.ConnectionActive,
		testAssignment("a-alice", "alice", domain.AssignmentCompleted, "cfg-active"),
		testAssignment("a-bob", "bob", domain.AssignmentCompleted, "cfg-active"))
	f.storeResult("a-alice", uniformScores(50))
	f.storeResult("a-bob", uniformScores(50))
	report, err := f.svc.CompareProfiles(context.Background(), "c1", "alice")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	cases := []struct {
		name   string
		viewer ReportViewer
		ok     bool
	}{
		{"own tenant admin", ReportViewer{UserID: "adm", TenantID: testTenant, Role: domain.RoleTenantAdmin}, true},
		{"foreign tenant admin", ReportViewer{UserID: "adm2", TenantID: "tenant-2", Role: domain.RoleTenantAdmin}, false},
		{"super admin", ReportViewer{UserID: "root", Role: domain.RoleSuperAdmin}, true},
		{"candidate of same tenant", ReportViewer{UserID: "carol", TenantID: testTenant, Role: domain.RoleCandidate}, false},
	}
	for _, tc := range cases {
		_, getErr := f.svc.GetReport(context.Background(), report.ID, tc.viewer)
		_, listErr := f.svc.ListReports(context.Background(), "c1", tc.viewer)
		if tc.ok && (getErr != nil || listErr != nil) {
			t.Fatalf("%s: expected access, got %v / %v", tc.name, getErr, listErr)
		}
		if !tc.ok && (!errors.Is(getErr, domain.ErrNotFound) || !errors.Is(listErr, domain.ErrNotFound)) {
			t.Fatalf("%s: expected not found, got %v / %v", tc.name, getErr, listErr)
		}
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/testutil"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

type reportFixture struct {
	*testEnv
	ct    *entity.ControlType
	asset *entity.Asset
	tpl   *entity.ChecklistTemplate
	run   *entity.InspectionRun
}

func newReportFixture(t *testing.T, periodicity, items int) *reportFixture {
	t.Helper()
	env := newTestEnv(t, day(2024, time.January, 10))
	f := &reportFixture{testEnv: env}
	f.ct = testutil.SeedControlType(t, env.db, "VGP-LEV", periodicity)
	f.asset = testutil.SeedAsset(t, env.db, "ASSET-A")
	f.tpl = testutil.SeedTemplate(t, env.db, f.ct.ID, entity.FlowReport, items, false)

	run, err := env.svc.Inspection.StartRun(context.Background(), technician, &StartRunRequest{
		TemplateID: f.tpl.ID,
		AssetID:    f.asset.ID,
	})
	require.NoError(t, err)
	f.run = run
	return f
}

func TestStartRun(t *testing.T) {
	f := newReportFixture(t, 365, 3)

	assert.Equal(t, entity.RunStatusDraft, f.run.Status)
	assert.Equal(t, entity.FlowReport, f.run.Flow)
	assert.Equal(t, "RPT-2024-0001", f.run.Code)
	assert.Equal(t, testutil.TechnicianID, f.run.PerformedBy)

	second, err := f.svc.Inspection.StartRun(context.Background(), technician, &StartRunRequest{
		TemplateID: f.tpl.ID,
		AssetID:    f.asset.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "RPT-2024-0002", second.Code)
}

func TestStartRun_Rejections(t *testing.T) {
	f := newReportFixture(t, 365, 1)
	ctx := context.Background()

	_, err := f.svc.Inspection.StartRun(ctx, auditor, &StartRunRequest{TemplateID: f.tpl.ID, AssetID: f.asset.ID})
	assert.True(t, errors.Is(err, workflow.ErrForbidden))

	_, err = f.svc.Inspection.StartRun(ctx, technician, &StartRunRequest{TemplateID: f.tpl.ID, AssetID: "missing"})
	assert.True(t, errors.Is(err, workflow.ErrNotFound))

	_, err = f.svc.Catalog.DeactivateControlType(ctx, manager, f.ct.ID)
	require.NoError(t, err)
	_, err = f.svc.Inspection.StartRun(ctx, technician, &StartRunRequest{TemplateID: f.tpl.ID, AssetID: f.asset.ID})
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))
}

// Periodicity 365, completed 2024-01-10 with one KO.
func TestSubmitInspection_EndToEnd(t *testing.T) {
	f := newReportFixture(t, 365, 4)
	ctx := context.Background()

	res, err := f.svc.Inspection.SubmitInspection(ctx, technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultOK, map[int]string{2: entity.ResultKO, 3: entity.ResultNA}),
		SignedBy: "Jean Martin",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.ConclusionNonConforme, res.Conclusion)
	assert.Equal(t, entity.RunStatusSubmitted, res.Status)
	require.Len(t, res.CreatedNCIDs, 1)
	require.Len(t, res.CreatedActionIDs, 1)
	require.NotNil(t, res.NextDueAt)
	assert.Equal(t, day(2025, time.January, 10), res.NextDueAt.UTC())

	nc, err := f.svc.Lifecycle.GetNonConformity(ctx, res.CreatedNCIDs[0])
	require.NoError(t, err)
	assert.Equal(t, entity.StatusOpen, nc.Status)
	assert.Equal(t, "Point 3", nc.Title)
	assert.Equal(t, workflow.DefaultSeverity, nc.Severity)
	assert.Equal(t, f.asset.ID, nc.AssetID)
	require.NotNil(t, nc.Action)
	assert.Equal(t, res.CreatedActionIDs[0], nc.Action.ID)

	ca, err := f.svc.Lifecycle.GetCorrectiveAction(ctx, res.CreatedActionIDs[0])
	require.NoError(t, err)
	assert.Equal(t, entity.StatusOpen, ca.Status)
	assert.Equal(t, testutil.TechnicianID, ca.Owner)
	assert.Equal(t, day(2024, time.February, 9), ca.DueAt.UTC())

	sched, err := f.repos.Schedule.FindByAssetControl(ctx, f.asset.ID, f.ct.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.January, 10), sched.NextDueAt.UTC())
	assert.Equal(t, day(2024, time.January, 10), sched.LastDoneAt.UTC())

	run, err := f.svc.Inspection.GetRun(ctx, f.run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusSubmitted, run.Status)
	require.NotNil(t, run.Conclusion)
	assert.Equal(t, entity.ConclusionNonConforme, *run.Conclusion)
	assert.Equal(t, "Jean Martin", run.SignedBy)
	assert.Len(t, run.Results, 4)

	logs, total, err := f.svc.Activity.List(ctx, entity.ActivityEntityRun, f.run.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total) // start + submit
	actions := []string{logs[0].Action, logs[1].Action}
	assert.ElementsMatch(t, []string{"start", "submit"}, actions)
}

func TestSubmitInspection_TwoKOAmongTen(t *testing.T) {
	f := newReportFixture(t, 180, 10)
	submittedAt := day(2024, time.March, 1)
	f.clock.Set(submittedAt)

	res, err := f.svc.Inspection.SubmitInspection(context.Background(), technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultOK, map[int]string{1: entity.ResultKO, 8: entity.ResultKO}),
		SignedBy: "Tech",
	})
	require.NoError(t, err)
	assert.Len(t, res.CreatedNCIDs, 2)
	assert.Len(t, res.CreatedActionIDs, 2)

	assert.EqualValues(t, 2, testutil.Count(t, f.db, &entity.NonConformity{}))
	assert.EqualValues(t, 2, testutil.Count(t, f.db, &entity.CorrectiveAction{}))

	actions, err := f.repos.CorrectiveAction.ListByRun(context.Background(), f.run.ID)
	require.NoError(t, err)
	for _, ca := range actions {
		assert.Equal(t, submittedAt.AddDate(0, 0, 30), ca.DueAt.UTC())
	}
}

func TestSubmitInspection_AllOKCreatesNothing(t *testing.T) {
	f := newReportFixture(t, 365, 3)

	res, err := f.svc.Inspection.SubmitInspection(context.Background(), technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultOK, map[int]string{0: entity.ResultNA}),
		SignedBy: "Tech",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ConclusionConforme, res.Conclusion)
	assert.Empty(t, res.CreatedNCIDs)
	assert.Empty(t, res.CreatedActionIDs)
}

func TestSubmitInspection_MissingRequiredItemHasNoSideEffects(t *testing.T) {
	f := newReportFixture(t, 365, 5)
	ctx := context.Background()

	results := answerAll(f.tpl, entity.ResultKO, nil)[1:]
	_, err := f.svc.Inspection.SubmitInspection(ctx, technician, f.run.ID, &SubmitRequest{
		Results:  results,
		SignedBy: "Tech",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrValidation))

	assert.EqualValues(t, 0, testutil.Count(t, f.db, &entity.NonConformity{}))
	assert.EqualValues(t, 0, testutil.Count(t, f.db, &entity.CorrectiveAction{}))
	assert.EqualValues(t, 0, testutil.Count(t, f.db, &entity.AssetControlSchedule{}))
	assert.EqualValues(t, 0, testutil.Count(t, f.db, &entity.ItemResult{}))

	run, err := f.svc.Inspection.GetRun(ctx, f.run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusDraft, run.Status)
}

func TestSubmitInspection_MissingAttestation(t *testing.T) {
	f := newReportFixture(t, 365, 2)

	_, err := f.svc.Inspection.SubmitInspection(context.Background(), technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultOK, nil),
		SignedBy: "   ",
	})
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))
}

func TestSubmitInspection_Resubmission(t *testing.T) {
	f := newReportFixture(t, 365, 2)
	ctx := context.Background()
	req := &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultKO, nil),
		SignedBy: "Tech",
	}

	_, err := f.svc.Inspection.SubmitInspection(ctx, technician, f.run.ID, req)
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	_, err = f.svc.Inspection.SubmitInspection(ctx, technician, f.run.ID, req)
	assert.True(t, errors.Is(err, workflow.ErrConflict))

	assert.EqualValues(t, 2, testutil.Count(t, f.db, &entity.NonConformity{}))
	sched, err := f.repos.Schedule.FindByAssetControl(ctx, f.asset.ID, f.ct.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.January, 10), sched.NextDueAt.UTC())
}

func TestSubmitInspection_ConcurrentSubmissions(t *testing.T) {
	f := newReportFixture(t, 365, 3)
	req := &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultOK, map[int]string{0: entity.ResultKO}),
		SignedBy: "Tech",
	}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Inspection.SubmitInspection(context.Background(), technician, f.run.ID, req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, workflow.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 1, testutil.Count(t, f.db, &entity.NonConformity{}))
	assert.EqualValues(t, 1, testutil.Count(t, f.db, &entity.CorrectiveAction{}))
}

func TestSubmitInspection_PartialCascadeFailureRollsBack(t *testing.T) {
	f := newReportFixture(t, 365, 3)
	ctx := context.Background()

	failActions := errors.New("corrective action insert failed")
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_actions", func(tx *gorm.DB) {
		if tx.Statement.Table == (entity.CorrectiveAction{}).TableName() {
			tx.AddError(failActions)
		}
	})
	require.NoError(t, err)

	_, err = f.svc.Inspection.SubmitInspection(ctx, technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultKO, nil),
		SignedBy: "Tech",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, failActions))
	assert.Equal(t, workflow.Code(""), workflow.CodeOf(err))

	require.NoError(t, f.db.Callback().Create().Remove("test:fail_actions"))

	assert.EqualValues(t, 0, testutil.Count(t, f.db, &entity.NonConformity{}))
	assert.EqualValues(t, 0, testutil.Count(t, f.db, &entity.CorrectiveAction{}))
	assert.EqualValues(t, 0, testutil.Count(t, f.db, &entity.AssetControlSchedule{}))
	run, err := f.svc.Inspection.GetRun(ctx, f.run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusDraft, run.Status)

	// the run is still submittable once storage recovers
	res, err := f.svc.Inspection.SubmitInspection(ctx, technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultKO, nil),
		SignedBy: "Tech",
	})
	require.NoError(t, err)
	assert.Len(t, res.CreatedActionIDs, 3)
}

func TestSubmitInspection_OneOffControl(t *testing.T) {
	f := newReportFixture(t, 0, 1)

	res, err := f.svc.Inspection.SubmitInspection(context.Background(), technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultOK, nil),
		SignedBy: "Tech",
	})
	require.NoError(t, err)
	assert.Nil(t, res.NextDueAt)

	sched, err := f.repos.Schedule.FindByAssetControl(context.Background(), f.asset.ID, f.ct.ID)
	require.NoError(t, err)
	assert.Nil(t, sched.NextDueAt)
	require.NotNil(t, sched.LastDoneAt)
}

func TestSubmitInspection_SeverityOverride(t *testing.T) {
	f := newReportFixture(t, 365, 2)
	results := answerAll(f.tpl, entity.ResultKO, nil)
	sev := 5
	results[0].Severity = &sev

	res, err := f.svc.Inspection.SubmitInspection(context.Background(), technician, f.run.ID, &SubmitRequest{
		Results:  results,
		SignedBy: "Tech",
	})
	require.NoError(t, err)
	nc, err := f.svc.Lifecycle.GetNonConformity(context.Background(), res.CreatedNCIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 5, nc.Severity)
}

func TestSubmitInspection_SeverityOutOfRangeOnPassingItem(t *testing.T) {
	f := newReportFixture(t, 365, 2)
	ctx := context.Background()
	results := answerAll(f.tpl, entity.ResultOK, nil)
	sev := 42
	results[0].Severity = &sev

	_, err := f.svc.Inspection.SubmitInspection(ctx, technician, f.run.ID, &SubmitRequest{
		Results:  results,
		SignedBy: "Tech",
	})
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))

	run, err := f.svc.Inspection.GetRun(ctx, f.run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusDraft, run.Status)
	assert.Empty(t, run.Results)
}

func TestSubmitInspection_AuditorForbidden(t *testing.T) {
	f := newReportFixture(t, 365, 1)
	_, err := f.svc.Inspection.SubmitInspection(context.Background(), auditor, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultOK, nil),
		SignedBy: "Audit",
	})
	assert.True(t, errors.Is(err, workflow.ErrForbidden))
}

type vgpFixture struct {
	*testEnv
	ct    *entity.ControlType
	asset *entity.Asset
	tpl   *entity.ChecklistTemplate
	run   *entity.InspectionRun
}

func newVGPFixture(t *testing.T, autoObservations bool) *vgpFixture {
	t.Helper()
	env := newTestEnv(t, day(2024, time.June, 3))
	f := &vgpFixture{testEnv: env}
	f.ct = testutil.SeedControlType(t, env.db, "VGP-ANN", 365)
	f.asset = testutil.SeedAsset(t, env.db, "CHARIOT-07")
	f.tpl = testutil.SeedTemplate(t, env.db, f.ct.ID, entity.FlowVGP, 3, autoObservations)

	run, err := env.svc.Inspection.StartRun(context.Background(), technician, &StartRunRequest{
		TemplateID: f.tpl.ID,
		AssetID:    f.asset.ID,
	})
	require.NoError(t, err)
	f.run = run
	return f
}

func TestVGPRun_DraftThenValidate(t *testing.T) {
	f := newVGPFixture(t, true)
	ctx := context.Background()
	assert.Equal(t, "VGP-2024-0001", f.run.Code)

	value := decimal.RequireFromString("1250.5")
	draft := answerAll(f.tpl, entity.ResultOui, map[int]string{1: entity.ResultNon})
	draft[0].NumericValue = &value
	run, err := f.svc.Inspection.RecordResults(ctx, technician, f.run.ID, draft)
	require.NoError(t, err)
	assert.Len(t, run.Results, 3)

	// overwrite one answer
	run, err = f.svc.Inspection.RecordResults(ctx, technician, f.run.ID, []ResultInput{
		{ItemID: f.tpl.Items[2].ID, Result: entity.ResultNA},
	})
	require.NoError(t, err)
	assert.Len(t, run.Results, 3)

	run, err = f.svc.Inspection.AmendComment(ctx, technician, f.run.ID, f.tpl.Items[1].ID, "fuite vérin")
	require.NoError(t, err)

	obs, err := f.svc.Inspection.AddObservation(ctx, technician, f.run.ID, &AddObservationRequest{
		Title: "Marquage CMU illisible",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OriginManual, obs.Origin)
	assert.Equal(t, workflow.DefaultSeverity, obs.Severity)

	// technicians record, managers validate
	_, err = f.svc.Inspection.SubmitInspection(ctx, technician, f.run.ID, &SubmitRequest{
		SignedBy:   "Tech",
		Conclusion: entity.ConclusionConforme,
	})
	assert.True(t, errors.Is(err, workflow.ErrForbidden))

	_, err = f.svc.Inspection.SubmitInspection(ctx, manager, f.run.ID, &SubmitRequest{SignedBy: "Chef"})
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))

	res, err := f.svc.Inspection.SubmitInspection(ctx, manager, f.run.ID, &SubmitRequest{
		SignedBy:   "Chef d'atelier",
		Conclusion: entity.ConclusionConformeSousReserve,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusValidated, res.Status)
	assert.Equal(t, entity.ConclusionConformeSousReserve, res.Conclusion)
	assert.Len(t, res.CreatedNCIDs, 1)
	assert.Empty(t, res.CreatedActionIDs)
	assert.EqualValues(t, 2, res.OpenObservations)
	assert.NotEmpty(t, res.Warnings)

	run, err = f.svc.Inspection.GetRun(ctx, f.run.ID)
	require.NoError(t, err)
	for _, r := range run.Results {
		if r.ItemID == f.tpl.Items[1].ID {
			assert.Equal(t, "fuite vérin", r.Comment)
		}
		if r.ItemID == f.tpl.Items[0].ID {
			require.True(t, r.NumericValue.Valid)
			assert.True(t, value.Equal(r.NumericValue.Decimal))
		}
	}

	// validated runs are frozen
	_, err = f.svc.Inspection.AmendComment(ctx, manager, f.run.ID, f.tpl.Items[1].ID, "late")
	assert.True(t, errors.Is(err, workflow.ErrConflict))
	_, err = f.svc.Inspection.AddObservation(ctx, manager, f.run.ID, &AddObservationRequest{Title: "late"})
	assert.True(t, errors.Is(err, workflow.ErrConflict))
}

func TestVGPRun_NoAutoObservations(t *testing.T) {
	f := newVGPFixture(t, false)

	res, err := f.svc.Inspection.SubmitInspection(context.Background(), admin, f.run.ID, &SubmitRequest{
		Results:    answerAll(f.tpl, entity.ResultNon, nil),
		SignedBy:   "Admin",
		Conclusion: entity.ConclusionNonConforme,
	})
	require.NoError(t, err)
	assert.Empty(t, res.CreatedNCIDs)
	assert.Zero(t, res.OpenObservations)
	assert.Empty(t, res.Warnings)
}

func TestVGPRun_DraftValidation(t *testing.T) {
	f := newVGPFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.Inspection.RecordResults(ctx, technician, f.run.ID, []ResultInput{
		{ItemID: f.tpl.Items[0].ID, Result: entity.ResultKO},
	})
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))

	_, err = f.svc.Inspection.AmendComment(ctx, technician, f.run.ID, f.tpl.Items[0].ID, "nothing recorded yet")
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))

	sev := 7
	_, err = f.svc.Inspection.AddObservation(ctx, technician, f.run.ID, &AddObservationRequest{Title: "x", Severity: &sev})
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))

	_, err = f.svc.Inspection.AddObservation(ctx, auditor, f.run.ID, &AddObservationRequest{Title: "x"})
	assert.Equal(t, workflow.CodeForbidden, workflow.CodeOf(err))
}

func TestVGPRun_DraftSeverityOverrideSurvivesValidation(t *testing.T) {
	f := newVGPFixture(t, true)
	ctx := context.Background()

	draft := answerAll(f.tpl, entity.ResultOui, map[int]string{1: entity.ResultNon})
	sev := 5
	draft[1].Severity = &sev
	run, err := f.svc.Inspection.RecordResults(ctx, technician, f.run.ID, draft)
	require.NoError(t, err)
	for _, r := range run.Results {
		if r.ItemID == f.tpl.Items[1].ID {
			require.NotNil(t, r.Severity)
			assert.Equal(t, 5, *r.Severity)
		}
	}

	res, err := f.svc.Inspection.SubmitInspection(ctx, manager, f.run.ID, &SubmitRequest{
		SignedBy:   "Chef",
		Conclusion: entity.ConclusionConformeSousReserve,
	})
	require.NoError(t, err)
	require.Len(t, res.CreatedNCIDs, 1)

	nc, err := f.svc.Lifecycle.GetNonConformity(ctx, res.CreatedNCIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 5, nc.Severity)
}

func TestVGPRun_DraftSeverityOutOfRange(t *testing.T) {
	f := newVGPFixture(t, true)

	sev := 0
	_, err := f.svc.Inspection.RecordResults(context.Background(), technician, f.run.ID, []ResultInput{
		{ItemID: f.tpl.Items[0].ID, Result: entity.ResultOui, Severity: &sev},
	})
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))
}

func TestReportRun_RejectsVGPOnlyOperations(t *testing.T) {
	f := newReportFixture(t, 365, 1)
	ctx := context.Background()

	_, err := f.svc.Inspection.AddObservation(ctx, technician, f.run.ID, &AddObservationRequest{Title: "x"})
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))
	_, err = f.svc.Inspection.AmendComment(ctx, technician, f.run.ID, f.tpl.Items[0].ID, "x")
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))
}

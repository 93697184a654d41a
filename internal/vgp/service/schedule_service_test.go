package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/testutil"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

func seedDue(t *testing.T, env *testEnv, asset *entity.Asset, ct *entity.ControlType, due time.Time) {
	t.Helper()
	_, err := env.svc.Schedule.SeedSchedule(context.Background(), manager, asset.ID, &SeedScheduleRequest{
		ControlTypeID: ct.ID,
		NextDueAt:     &due,
	})
	require.NoError(t, err)
}

func TestGetOverdueAndDueSoon(t *testing.T) {
	now := day(2025, time.January, 1)
	env := newTestEnv(t, now)
	ctx := context.Background()

	annual := testutil.SeedControlType(t, env.db, "ANN", 365)
	semester := testutil.SeedControlType(t, env.db, "SEM", 180)
	retired := testutil.SeedControlType(t, env.db, "OLD", 365)

	a := testutil.SeedAsset(t, env.db, "A")
	b := testutil.SeedAsset(t, env.db, "B")
	c := testutil.SeedAsset(t, env.db, "C")

	seedDue(t, env, a, annual, now.AddDate(0, 0, -3)) // overdue
	seedDue(t, env, a, semester, now)                 // due exactly now: due soon, not overdue
	seedDue(t, env, b, annual, now.AddDate(0, 0, 10)) // due soon
	seedDue(t, env, c, annual, now.AddDate(0, 0, 45)) // outside the window
	seedDue(t, env, c, retired, now.AddDate(0, 0, -1))
	_, err := env.svc.Catalog.DeactivateControlType(ctx, manager, retired.ID)
	require.NoError(t, err)

	items, err := env.svc.Schedule.GetOverdueAndDueSoon(ctx, 30)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, a.ID, items[0].AssetID)
	assert.True(t, items[0].IsOverdue)
	assert.Equal(t, workflow.DueStateOverdue, items[0].State)
	assert.Equal(t, "ANN", items[0].ControlCode)

	assert.Equal(t, semester.ID, items[1].ControlTypeID)
	assert.False(t, items[1].IsOverdue)
	assert.True(t, items[1].IsDueSoon)

	assert.Equal(t, b.ID, items[2].AssetID)
	assert.Equal(t, 10, items[2].DaysLeft)

	// derived at read time: one second later the exact-now row is overdue
	env.clock.Advance(time.Second)
	items, err = env.svc.Schedule.GetOverdueAndDueSoon(ctx, 30)
	require.NoError(t, err)
	assert.True(t, items[1].IsOverdue)

	// a wider window pulls in asset C
	items, err = env.svc.Schedule.GetOverdueAndDueSoon(ctx, 60)
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestNewScheduleService_ZeroOptions(t *testing.T) {
	env := newTestEnv(t, day(2025, time.January, 1))
	svc := NewScheduleService(env.repos, Options{})

	items, err := svc.GetOverdueAndDueSoon(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSeedSchedule(t *testing.T) {
	env := newTestEnv(t, day(2025, time.January, 1))
	ctx := context.Background()
	ct := testutil.SeedControlType(t, env.db, "ANN", 365)
	asset := testutil.SeedAsset(t, env.db, "A")
	start := day(2025, time.March, 1)

	_, err := env.svc.Schedule.SeedSchedule(ctx, technician, asset.ID, &SeedScheduleRequest{ControlTypeID: ct.ID, StartDate: &start})
	assert.True(t, errors.Is(err, workflow.ErrForbidden))

	_, err = env.svc.Schedule.SeedSchedule(ctx, manager, asset.ID, &SeedScheduleRequest{ControlTypeID: ct.ID})
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))

	_, err = env.svc.Schedule.SeedSchedule(ctx, manager, "missing", &SeedScheduleRequest{ControlTypeID: ct.ID, StartDate: &start})
	assert.True(t, errors.Is(err, workflow.ErrNotFound))

	sched, err := env.svc.Schedule.SeedSchedule(ctx, manager, asset.ID, &SeedScheduleRequest{ControlTypeID: ct.ID, StartDate: &start})
	require.NoError(t, err)
	assert.Equal(t, start, sched.NextDueAt.UTC())
	assert.Nil(t, sched.LastDoneAt)

	// reseeding updates the same row
	next := day(2025, time.April, 1)
	again, err := env.svc.Schedule.SeedSchedule(ctx, manager, asset.ID, &SeedScheduleRequest{ControlTypeID: ct.ID, NextDueAt: &next})
	require.NoError(t, err)
	assert.Equal(t, sched.ID, again.ID)
	assert.EqualValues(t, 1, testutil.Count(t, env.db, &entity.AssetControlSchedule{}))
}

func TestCompletionAdvancesSeededSchedule(t *testing.T) {
	f := newReportFixture(t, 365, 1)
	ctx := context.Background()
	seedDue(t, f.testEnv, f.asset, f.ct, day(2024, time.January, 5))

	items, err := f.svc.Schedule.GetOverdueAndDueSoon(ctx, 30)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsOverdue)

	_, err = f.svc.Inspection.SubmitInspection(ctx, technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, entity.ResultOK, nil),
		SignedBy: "Tech",
	})
	require.NoError(t, err)

	items, err = f.svc.Schedule.GetOverdueAndDueSoon(ctx, 30)
	require.NoError(t, err)
	assert.Empty(t, items)

	scheds, err := f.svc.Schedule.ListByAsset(ctx, f.asset.ID)
	require.NoError(t, err)
	require.Len(t, scheds, 1)
	assert.Equal(t, day(2025, time.January, 10), scheds[0].NextDueAt.UTC())
}

func TestExportDue(t *testing.T) {
	now := day(2025, time.January, 1)
	env := newTestEnv(t, now)
	ct := testutil.SeedControlType(t, env.db, "ANN", 365)
	asset := testutil.SeedAsset(t, env.db, "A")
	seedDue(t, env, asset, ct, now.AddDate(0, 0, -2))

	var buf bytes.Buffer
	require.NoError(t, env.svc.Schedule.ExportDue(context.Background(), 30, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Echeances")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[1][0])
	assert.Equal(t, "2024-12-30", rows[1][5])
	assert.Equal(t, workflow.DueStateOverdue, rows[1][6])
}

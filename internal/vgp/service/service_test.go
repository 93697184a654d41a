package service

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/bitfantasy/vgp/internal/config"
	"github.com/bitfantasy/vgp/internal/metrics"
	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
	"github.com/bitfantasy/vgp/internal/vgp/testutil"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

var (
	admin      = workflow.Caller{UserID: testutil.AdminID, Name: "Admin", Role: workflow.RoleAdmin}
	manager    = workflow.Caller{UserID: testutil.ManagerID, Name: "Manager", Role: workflow.RoleManager}
	technician = workflow.Caller{UserID: testutil.TechnicianID, Name: "Tech", Role: workflow.RoleTechnician}
	auditor    = workflow.Caller{UserID: testutil.AuditorID, Name: "Audit", Role: workflow.RoleAuditor}
)

type testEnv struct {
	db      *gorm.DB
	repos   *repository.Repositories
	svc     *Services
	clock   *workflow.FixedClock
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	clock := workflow.NewFixedClock(now)
	m := metrics.New()
	svc := NewServices(repos, Options{
		Clock:   clock,
		Metrics: m,
		Workflow: config.WorkflowConfig{
			DefaultSeverity: 3,
			ActionDueDays:   30,
			DueSoonDays:     30,
		},
	})
	return &testEnv{db: db, repos: repos, svc: svc, clock: clock, metrics: m}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

// answerAll builds one result per template item, with overrides by item index.
func answerAll(tpl *entity.ChecklistTemplate, value string, overrides map[int]string) []ResultInput {
	out := make([]ResultInput, 0, len(tpl.Items))
	for i, it := range tpl.Items {
		v := value
		if o, ok := overrides[i]; ok {
			v = o
		}
		out = append(out, ResultInput{ItemID: it.ID, Result: v})
	}
	return out
}

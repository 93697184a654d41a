package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ResolveRole([]string{"technician", "admin", "manager"}))
	assert.Equal(t, RoleManager, ResolveRole([]string{"auditor", "manager"}))
	assert.Equal(t, RoleAuditor, ResolveRole([]string{"auditor", "guest"}))
	assert.Equal(t, Role(""), ResolveRole(nil))
}

func TestAuthorize(t *testing.T) {
	actions := []Action{ActionManageCatalog, ActionManageMission, ActionExecuteRun, ActionValidateRun, ActionTransition}
	for _, a := range actions {
		assert.True(t, errors.Is(Authorize(auditor, a), ErrForbidden), "auditor %s", a)
		assert.NoError(t, Authorize(admin, a))
		assert.NoError(t, Authorize(manager, a))
	}

	assert.NoError(t, Authorize(technician, ActionExecuteRun))
	assert.NoError(t, Authorize(technician, ActionTransition))
	assert.Equal(t, CodeForbidden, CodeOf(Authorize(technician, ActionValidateRun)))
	assert.Equal(t, CodeForbidden, CodeOf(Authorize(technician, ActionManageCatalog)))
}

func TestErrorFormatting(t *testing.T) {
	err := Validation("checklist incomplete").WithDetails("a", "b")
	assert.Equal(t, "VALIDATION_ERROR: checklist incomplete (a; b)", err.Error())
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
}

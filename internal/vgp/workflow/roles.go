package workflow

// Role of the caller, resolved by the identity provider
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleAuditor    Role = "auditor"
)

var roleRank = map[Role]int{
	RoleAuditor:    1,
	RoleTechnician: 2,
	RoleManager:    3,
	RoleAdmin:      4,
}

// ResolveRole picks the most privileged known role; unknown codes are ignored.
func ResolveRole(roles []string) Role {
	var best Role
	for _, r := range roles {
		role := Role(r)
		if roleRank[role] > roleRank[best] {
			best = role
		}
	}
	return best
}

// Caller identity performing an engine operation
type Caller struct {
	UserID string
	Name   string
	Role   Role
}

// CanValidate reports validation permission (close, validate, VGP sign-off).
func (c Caller) CanValidate() bool {
	return c.Role == RoleAdmin || c.Role == RoleManager
}

// CanWrite reports whether the role may mutate anything at all.
func (c Caller) CanWrite() bool {
	return c.CanValidate() || c.Role == RoleTechnician
}

// Action engine operation subject to authorization
type Action string

const (
	ActionManageCatalog Action = "manage_catalog" // control types, assets, templates, schedule seeds
	ActionManageMission Action = "manage_mission"
	ActionExecuteRun    Action = "execute_run" // start, record, amend, observe, submit a report
	ActionValidateRun   Action = "validate_run"
	ActionTransition    Action = "transition" // per-edge guard applied afterwards
)

var validationActions = map[Action]bool{
	ActionManageCatalog: true,
	ActionManageMission: true,
	ActionValidateRun:   true,
}

// Authorize is the single predicate evaluated before every engine mutation.
// Auditors and callers without a role are rejected whatever the action.
func Authorize(caller Caller, action Action) error {
	if !caller.CanWrite() {
		return Forbidden("role %q is read-only", caller.Role)
	}
	if validationActions[action] && !caller.CanValidate() {
		return Forbidden("%s requires manager or admin role", action)
	}
	return nil
}

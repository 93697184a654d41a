package workflow

import (
	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

var missionTransitions = map[string][]string{
	entity.MissionStatusToPlan:  {entity.MissionStatusPlanned, entity.MissionStatusCancelled},
	entity.MissionStatusPlanned: {entity.MissionStatusRunning, entity.MissionStatusCancelled},
	entity.MissionStatusRunning: {entity.MissionStatusDone, entity.MissionStatusCancelled},
}

// CheckMissionTransition validates a mission container move.
// TERMINEE and ANNULEE are terminal.
func CheckMissionTransition(from, to string) error {
	next, ok := missionTransitions[from]
	if !ok {
		return InvalidTransition("mission is already %s", from)
	}
	for _, s := range next {
		if s == to {
			return nil
		}
	}
	return InvalidTransition("mission cannot move from %s to %s", from, to)
}

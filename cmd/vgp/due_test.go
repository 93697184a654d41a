package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitfantasy/vgp/internal/vgp/service"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

func TestPrintDue(t *testing.T) {
	var buf bytes.Buffer
	printDue(&buf, nil)
	assert.Equal(t, "Nothing overdue or due soon.\n", buf.String())

	buf.Reset()
	printDue(&buf, []service.DueItem{
		{AssetCode: "PONT-01", AssetName: "Pont roulant", ControlLabel: "Levage", NextDueAt: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), State: workflow.DueStateOverdue, DaysLeft: -3},
		{AssetCode: "EXT-02", AssetName: "Extincteur", ControlLabel: "Incendie", NextDueAt: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), State: workflow.DueStateDueSoon, DaysLeft: 12},
	})
	out := buf.String()
	assert.Contains(t, out, "ASSET")
	assert.Contains(t, out, "PONT-01")
	assert.Contains(t, out, "2025-01-05")
	assert.Contains(t, out, workflow.DueStateDueSoon)
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestGormLogLevel(t *testing.T) {
	assert.NotEqual(t, gormLogLevel("info"), gormLogLevel("warn"))
	assert.Equal(t, gormLogLevel("warn"), gormLogLevel("unknown"))
}

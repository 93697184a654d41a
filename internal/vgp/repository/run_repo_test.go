package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/testutil"
)

func TestGenerateCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewMissionRepository(db)
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	code, err := repo.GenerateCode(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "MIS-2024-0001", code)

	seed := func(code string) {
		require.NoError(t, db.Create(&entity.Mission{
			ID:     entity.NewID(),
			Code:   code,
			Title:  code,
			Status: entity.MissionStatusPlanned,
		}).Error)
	}
	seed("MIS-2023-0042")
	seed("MIS-2024-0009")
	seed("MIS-2024-9999")

	code, err = repo.GenerateCode(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "MIS-2024-10000", code)

	seed(code)
	code, err = repo.GenerateCode(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "MIS-2024-10001", code)

	// each year restarts
	code, err = repo.GenerateCode(ctx, now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "MIS-2025-0001", code)
}

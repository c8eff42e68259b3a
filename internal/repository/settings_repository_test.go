package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recordsync/internal/models"
)

func TestSettingsRepositoryBulkUpsert(t *testing.T) {
	repo := NewSettingsRepository(filepath.Join(t.TempDir(), "settings.csv"))
	ctx := context.Background()

	_, err := repo.Get(ctx, models.SettingGraceMinutes)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.BulkUpsert(ctx, []models.Configuration{
		{Key: models.SettingClassStartTime, Value: "08:00 AM", Type: models.ConfigurationTypeTime},
		{Key: models.SettingGraceMinutes, Value: "5", Type: models.ConfigurationTypeInteger},
	}))
	require.NoError(t, repo.BulkUpsert(ctx, []models.Configuration{
		{Key: models.SettingGraceMinutes, Value: "15", Type: models.ConfigurationTypeInteger},
	}))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.SettingClassStartTime, all[0].Key)

	grace, err := repo.Get(ctx, models.SettingGraceMinutes)
	require.NoError(t, err)
	assert.Equal(t, "15", grace.Value)
}

package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recordsync/internal/models"
)

func TestAdminRepositoryFindByUsername(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.csv")
	writeFile(t, path, "id,username,password\n1,Principal,secret\n")
	repo := NewAdminRepository(path)

	admin, err := repo.FindByUsername(context.Background(), " principal ")
	require.NoError(t, err)
	assert.Equal(t, 1, admin.ID)
	assert.Equal(t, "secret", admin.Password)

	_, err = repo.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminRepositoryCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.csv")
	writeFile(t, path, "id,username,password\n7,root,pw\n")
	repo := NewAdminRepository(path)
	ctx := context.Background()

	admin := &models.Admin{Username: "clerk", Password: "pw2"}
	require.NoError(t, repo.Create(ctx, admin))
	assert.Equal(t, 8, admin.ID)

	err := repo.Create(ctx, &models.Admin{Username: "ROOT", Password: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,username,password\n7,root,pw\n8,clerk,pw2\n", string(body))
}

func TestAdminRepositoryCreateFirstAccount(t *testing.T) {
	repo := NewAdminRepository(filepath.Join(t.TempDir(), "admin.csv"))

	admin := &models.Admin{Username: "first", Password: "pw"}
	require.NoError(t, repo.Create(context.Background(), admin))
	assert.Equal(t, 1, admin.ID)
}

package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("rep-1", "attendance/rep-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	file, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "rep-1", file.ReportID)
	assert.Equal(t, "attendance/rep-1.csv", file.Path)
	assert.WithinDuration(t, expiresAt, file.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	issued := time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }
	token, _, err := signer.Generate("rep-1", "attendance/rep-1.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	file, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "rep-1", file.ReportID)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("rep-1", "attendance/rep-1.csv")
	require.NoError(t, err)

	_, err = signer.Parse("rep-2"+token[len("rep-1"):], false)
	assert.ErrorIs(t, err, ErrTokenSignature)

	_, err = signer.Parse("garbage", false)
	assert.ErrorIs(t, err, ErrTokenFormat)
}

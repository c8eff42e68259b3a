package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recordsync/internal/models"
)

type fakeSignup struct {
	got models.SignupRequest
	err error
}

func (f *fakeSignup) Signup(ctx context.Context, req models.SignupRequest) (*models.AdminInfo, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.AdminInfo{ID: 3, Username: req.Username}, nil
}

type fakeSync struct {
	schedule models.ClassSchedule
}

func (f *fakeSync) SyncStudentsData(ctx context.Context, schedule models.ClassSchedule) (*models.SyncResult, error) {
	f.schedule = schedule
	result := models.NewSyncResult(schedule)
	result.Updated = 2
	result.Changed["00-001"] = models.StatusChange{Old: models.AttendanceStatusAbsent, New: models.AttendanceStatusLate}
	result.Errors = append(result.Errors, "00-002: bad row")
	return result, nil
}

type fakeSchedules struct{}

func (fakeSchedules) Schedule(ctx context.Context) (models.ClassSchedule, error) {
	return models.ClassSchedule{Start: "08:00 AM", End: "03:00 PM", GraceMinutes: 5}, nil
}

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	original := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = original })
	readPasswordFunc = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func newCLI() (*commandLine, *fakeSignup, *fakeSync, *bytes.Buffer) {
	out := &bytes.Buffer{}
	auth := &fakeSignup{}
	sync := &fakeSync{}
	return &commandLine{auth: auth, sync: sync, schedules: fakeSchedules{}, out: out}, auth, sync, out
}

func TestSignupPromptsForPasswordTwice(t *testing.T) {
	cli, auth, _, out := newCLI()
	stubPasswords(t, "s3cret", "s3cret")

	err := cli.run(context.Background(), []string{"recordsync-admin", "signup", "-username", "principal"})
	require.NoError(t, err)

	assert.Equal(t, "principal", auth.got.Username)
	assert.Equal(t, "s3cret", auth.got.Password)
	assert.Equal(t, "s3cret", auth.got.ConfirmPassword)
	assert.Contains(t, out.String(), `admin "principal" registered with id 3`)
}

func TestSignupRequiresUsername(t *testing.T) {
	cli, _, _, _ := newCLI()
	err := cli.run(context.Background(), []string{"recordsync-admin", "signup"})
	assert.ErrorIs(t, err, errHelp)
}

func TestSignupPropagatesServiceError(t *testing.T) {
	cli, auth, _, _ := newCLI()
	auth.err = errors.New("username already taken")
	stubPasswords(t, "a", "a")

	err := cli.run(context.Background(), []string{"recordsync-admin", "signup", "-username", "principal"})
	assert.EqualError(t, err, "username already taken")
}

func TestSignupPromptFailure(t *testing.T) {
	cli, _, _, _ := newCLI()
	stubPasswords(t, "only-once")

	err := cli.run(context.Background(), []string{"recordsync-admin", "signup", "-username", "principal"})
	assert.EqualError(t, err, "no more input")
}

func TestSyncUsesSavedSchedule(t *testing.T) {
	cli, _, sync, out := newCLI()

	require.NoError(t, cli.run(context.Background(), []string{"recordsync-admin", "sync"}))
	assert.Equal(t, "08:00 AM", sync.schedule.Start)
	assert.Contains(t, out.String(), "updated 2 records, 1 status changes")
	assert.Contains(t, out.String(), "error: 00-002: bad row")
}

func TestUnknownCommandPrintsUsage(t *testing.T) {
	cli, _, _, out := newCLI()
	err := cli.run(context.Background(), []string{"recordsync-admin", "reset"})
	assert.ErrorIs(t, err, errHelp)
	assert.Contains(t, out.String(), "Usage:")

	err = cli.run(context.Background(), []string{"recordsync-admin"})
	assert.ErrorIs(t, err, errHelp)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/noah-isme/recordsync/internal/models"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type signupService interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.AdminInfo, error)
}

type syncService interface {
	SyncStudentsData(ctx context.Context, schedule models.ClassSchedule) (*models.SyncResult, error)
}

type scheduleSource interface {
	Schedule(ctx context.Context) (models.ClassSchedule, error)
}

type commandLine struct {
	auth      signupService
	sync      syncService
	schedules scheduleSource
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  signup -username USERNAME - register an admin, the password is prompted next")
	fmt.Fprintln(cli.out, "  sync                      - recompute attendance statuses with the saved schedule")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	signupCmd := flag.NewFlagSet("signup", flag.ContinueOnError)
	signupCmd.SetOutput(cli.out)
	signupUsername := signupCmd.String("username", "", "Admin username. The password will be prompted next.")

	switch args[1] {
	case "signup":
		if err := signupCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *signupUsername == "" {
			signupCmd.Usage()
			return errHelp
		}
		password, err := cli.prompt("Enter password: ")
		if err != nil {
			return err
		}
		confirm, err := cli.prompt("Confirm password: ")
		if err != nil {
			return err
		}
		return cli.signup(ctx, *signupUsername, password, confirm)
	case "sync":
		return cli.runSync(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) signup(ctx context.Context, username, password, confirm string) error {
	admin, err := cli.auth.Signup(ctx, models.SignupRequest{
		Username:        username,
		Password:        password,
		ConfirmPassword: confirm,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "admin %q registered with id %d\n", admin.Username, admin.ID)
	return nil
}

func (cli *commandLine) runSync(ctx context.Context) error {
	schedule, err := cli.schedules.Schedule(ctx)
	if err != nil {
		return err
	}
	result, err := cli.sync.SyncStudentsData(ctx, schedule)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "updated %d records, %d status changes\n", result.Updated, len(result.Changed))
	for _, msg := range result.Errors {
		fmt.Fprintf(cli.out, "  error: %s\n", msg)
	}
	return nil
}

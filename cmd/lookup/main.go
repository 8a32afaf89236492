package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hackgods/appointment-lookup/internal/appointment"
	"github.com/hackgods/appointment-lookup/internal/config"
	"github.com/hackgods/appointment-lookup/internal/db"
	"github.com/hackgods/appointment-lookup/internal/logging"
	"github.com/hackgods/appointment-lookup/internal/render"
)

var errLookupFailed = errors.New("lookup failed")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code. A failed lookup
// has already been rendered to stdout, so only other errors reach stderr.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errLookupFailed) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lookup",
		Short:         "Look up one appointment by access token or by name and ID card",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := paramsFromFlags(cmd)
			if err != nil {
				return err
			}
			return runLookup(cmd, params)
		},
	}

	cmd.Flags().String("username", "", "Appointment holder name")
	cmd.Flags().String("id-card", "", "Appointment holder ID card number")
	cmd.Flags().Int64("appointment-id", 0, "Appointment ID, narrows an access token lookup")
	cmd.Flags().String("access-token", "", "Access token issued at booking")

	return cmd
}

func paramsFromFlags(cmd *cobra.Command) (appointment.Params, error) {
	username, _ := cmd.Flags().GetString("username")
	idCard, _ := cmd.Flags().GetString("id-card")
	token, _ := cmd.Flags().GetString("access-token")

	params := appointment.Params{
		Username:    username,
		IDCard:      idCard,
		AccessToken: token,
	}

	if cmd.Flags().Changed("appointment-id") {
		id, err := cmd.Flags().GetInt64("appointment-id")
		if err != nil {
			return appointment.Params{}, err
		}
		params.AppointmentID = &id
	}

	return params, nil
}

func runLookup(cmd *cobra.Command, params appointment.Params) error {
	q, ok := params.Query()
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), render.Text(appointment.InsufficientInput{}))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}

	// Logs go to stderr so stdout carries only the result text.
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 1, MinConns: 1})
	cancelPg()
	if err != nil {
		// Connectivity faults are reported as a lookup outcome.
		fmt.Fprintln(cmd.OutOrStdout(), render.Text(appointment.Error{Err: err}))
		return errLookupFailed
	}
	defer pool.Close()

	lookupCtx, cancel := context.WithTimeout(ctx, cfg.LookupTimeout)
	defer cancel()

	svc := appointment.NewService(appointment.NewPoolProvider(pool), logger)
	res := svc.Lookup(lookupCtx, q)

	fmt.Fprintln(cmd.OutOrStdout(), render.Text(res))
	if _, failed := res.(appointment.Error); failed {
		return errLookupFailed
	}
	return nil
}

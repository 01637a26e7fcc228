package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entrypoint"
	"github.com/mrlokans/library/internal/lending"
)

// ReconcileCommand reports copies whose availability flag disagrees with
// the loans table and optionally repairs them.
type ReconcileCommand struct {
	DatabasePath string
	Fix          bool

	cfg *config.Config
}

func NewReconcileCommand() *ReconcileCommand {
	return &ReconcileCommand{cfg: config.NewConfig()}
}

func (cmd *ReconcileCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the sqlite database (ignored for mysql/postgres)")
	fs.BoolVar(&cmd.Fix, "fix", false, "Rewrite drifted availability flags")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s reconcile [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Check copy availability against active loans.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ReconcileCommand) Run() error {
	cmd.cfg.Database.Path = cmd.DatabasePath

	svc, err := entrypoint.Open(cmd.cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer svc.Close()

	ctx := context.Background()
	drift, err := svc.Lending.CheckAvailability(ctx)
	if err != nil {
		return fmt.Errorf("availability check failed: %w", err)
	}
	if len(drift) == 0 {
		fmt.Println("All copies are consistent with their loans")
		return nil
	}

	for _, d := range drift {
		fmt.Printf("copy %d (%s): %s\n", d.CopyID, d.CatalogNumber, describeDrift(d))
	}

	if !cmd.Fix {
		fmt.Printf("%d copies drifted (run with -fix to repair)\n", len(drift))
		return nil
	}

	fixed, err := svc.Lending.ReconcileAvailability(ctx, lending.System)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	fmt.Printf("Repaired %d copies\n", fixed)
	return nil
}

func describeDrift(d lending.AvailabilityDrift) string {
	switch {
	case d.ActiveLoans > 1:
		return fmt.Sprintf("held by %d active loans", d.ActiveLoans)
	case d.Expected():
		return "marked unavailable but has no active loan"
	default:
		return "marked available but has an active loan"
	}
}

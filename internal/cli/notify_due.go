package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entrypoint"
	"github.com/mrlokans/library/internal/notifier"
)

// NotifyDueCommand runs one due-soon scan and exits. It is meant for
// deployments that drive the notifier from an external cron instead of the
// built-in scheduler.
type NotifyDueCommand struct {
	DatabasePath string
	HorizonDays  int
	Timeout      time.Duration
	Verbose      bool

	cfg *config.Config
}

func NewNotifyDueCommand() *NotifyDueCommand {
	return &NotifyDueCommand{cfg: config.NewConfig()}
}

func (cmd *NotifyDueCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("notify-due", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the sqlite database (ignored for mysql/postgres)")
	fs.IntVar(&cmd.HorizonDays, "horizon", cmd.cfg.Notifier.HorizonDays, "Number of days ahead to look for due loans")
	fs.DurationVar(&cmd.Timeout, "timeout", cmd.cfg.Notifier.ScanTimeout, "Upper bound for the scan (0 for none)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print the full scan summary")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s notify-due [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create reminder notifications for loans due soon.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s notify-due\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s notify-due -db ./library.db -horizon 3\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.HorizonDays < 1 {
		fs.Usage()
		return fmt.Errorf("horizon must be at least 1 day")
	}

	return nil
}

func (cmd *NotifyDueCommand) Run() error {
	cmd.cfg.Database.Path = cmd.DatabasePath
	cmd.cfg.Notifier.HorizonDays = cmd.HorizonDays

	svc, err := entrypoint.Open(cmd.cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer svc.Close()

	ctx := context.Background()
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	result, err := svc.DueSoon.RunOnce(ctx, notifier.TriggerCLI)
	if err != nil {
		return fmt.Errorf("due-soon scan failed: %w", err)
	}

	fmt.Printf("Due-soon scan %s: %d loans due, %d reminders created, %d already notified\n",
		result.ScanID, result.Candidates, result.Created, result.Skipped)
	if cmd.Verbose {
		fmt.Printf("Window: %s .. %s\n",
			result.WindowStart.Format(time.RFC3339), result.WindowEnd.Format(time.RFC3339))
	}
	return nil
}

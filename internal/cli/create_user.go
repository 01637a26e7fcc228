package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/entrypoint"
)

// CreateUserCommand adds a user from the command line, typically the first
// administrator of a fresh install.
type CreateUserCommand struct {
	DatabasePath string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	Password     string

	cfg *config.Config
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{cfg: config.NewConfig()}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the sqlite database (ignored for mysql/postgres)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.FirstName, "first-name", "", "First name (required)")
	fs.StringVar(&cmd.LastName, "last-name", "", "Last name (required)")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleClient), "Role: client, librarian or administrator")
	fs.StringVar(&cmd.Password, "password", "", "Password for local login; falls back to $LIBRARY_PASSWORD")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a library user.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -email admin@example.com -first-name Ada -last-name Admin -role administrator\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Password == "" {
		cmd.Password = os.Getenv("LIBRARY_PASSWORD")
	}

	var missing []string
	for flagName, v := range map[string]string{"email": cmd.Email, "first-name": cmd.FirstName, "last-name": cmd.LastName, "password": cmd.Password} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, "-"+flagName)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		fs.Usage()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	if !entities.UserRole(cmd.Role).Valid() {
		return fmt.Errorf("unknown role %q", cmd.Role)
	}

	return nil
}

func (cmd *CreateUserCommand) Run() error {
	cmd.cfg.Database.Path = cmd.DatabasePath

	svc, err := entrypoint.Open(cmd.cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer svc.Close()

	authService := auth.NewService(svc.Users, cmd.cfg.Auth)
	user, err := authService.CreateUser(auth.NewUser{
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Email:     cmd.Email,
		Password:  cmd.Password,
		Role:      entities.UserRole(cmd.Role),
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	svc.Audit.LogChange(0, entities.AuditEventUser, "user_create", "user", user.ID,
		"Created user "+user.Email+" from the command line", map[string]any{"role": user.Role})

	fmt.Printf("Created %s %s (id %d)\n", user.Role, user.Email, user.ID)
	return nil
}

// Command blogctl bootstraps records that have no public form: staff users
// and groups.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/anonto42/yatube/internal/forms"
	"github.com/anonto42/yatube/internal/logger"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/pkg/config"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const usage = `usage: blogctl <command> [flags]

commands:
  createsuperuser -username NAME -password PASS [-email EMAIL]
  creategroup     -title TITLE -slug SLUG -description TEXT
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	if _, err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "blogctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	var cmd func(context.Context, *gorm.DB, []string) error
	switch command {
	case "createsuperuser":
		cmd = createSuperuser
	case "creategroup":
		cmd = createGroup
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	db, err := config.OpenSQL(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer (&config.DB{SQL: db}).CloseDB()

	if err := config.Migrate(db); err != nil {
		return err
	}
	return cmd(ctx, db, args)
}

func formErr(errs forms.Errors) error {
	var parts []string
	for field, msgs := range errs {
		parts = append(parts, field+": "+strings.Join(msgs, " "))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
}

func createSuperuser(ctx context.Context, db *gorm.DB, args []string) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	var req models.SignupRequest
	fs.StringVar(&req.Username, "username", "", "login name")
	fs.StringVar(&req.Email, "email", "", "e-mail address")
	fs.StringVar(&req.Password, "password", "", "password, at least 8 characters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if errs := forms.Validate(req); errs.Any() {
		return formErr(errs)
	}

	users := repositories.NewGormUserRepository(db)
	exists, err := users.UsernameExists(ctx, req.Username)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("user %q already exists", req.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Username: req.Username, Email: req.Email, Password: string(hash), IsStaff: true}
	if err := users.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Printf("Superuser %s created (id %d).\n", user.Username, user.ID)
	return nil
}

func createGroup(ctx context.Context, db *gorm.DB, args []string) error {
	fs := flag.NewFlagSet("creategroup", flag.ContinueOnError)
	var req models.GroupRequest
	fs.StringVar(&req.Title, "title", "", "group title")
	fs.StringVar(&req.Slug, "slug", "", "unique URL slug")
	fs.StringVar(&req.Description, "description", "", "group description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if errs := forms.Validate(req); errs.Any() {
		return formErr(errs)
	}

	groups := repositories.NewGormGroupRepository(db)
	exists, err := groups.SlugExists(ctx, req.Slug)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("group with slug %q already exists", req.Slug)
	}

	group := &models.Group{Title: req.Title, Slug: req.Slug, Description: req.Description}
	if err := groups.CreateGroup(ctx, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	fmt.Printf("Group %q created (id %d).\n", group.Title, group.ID)
	return nil
}

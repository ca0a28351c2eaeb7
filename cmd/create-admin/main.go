package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/tutorgoat/tutorgoat-backend/internal/admins"
	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/security"
)

const generatedPasswordLen = 20

var errUsage = errors.New("usage: create-admin -username NAME -email ADDRESS [-role ROLE] [-password PASSWORD] | -list | -activate LOGIN | -deactivate LOGIN")

type options struct {
	username   string
	email      string
	role       string
	password   string
	list       bool
	activate   string
	deactivate string
}

func main() {
	var opts options
	flag.StringVar(&opts.username, "username", "", "admin username (3-30 characters)")
	flag.StringVar(&opts.email, "email", "", "admin email address")
	flag.StringVar(&opts.role, "role", string(enums.AdminRoleAdmin), "role: ADMIN|MANAGER|AGENT|READONLY")
	flag.StringVar(&opts.password, "password", os.Getenv("TUTORGOAT_ADMIN_PASSWORD"), "initial password; generated when empty")
	flag.BoolVar(&opts.list, "list", false, "list admin accounts and exit")
	flag.StringVar(&opts.activate, "activate", "", "re-enable the account with this email or username")
	flag.StringVar(&opts.deactivate, "deactivate", "", "disable the account with this email or username")
	flag.Parse()

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "create-admin"})
	_ = godotenv.Load()

	err := run(ctx, logg, opts, os.Stdout)
	switch {
	case err == nil:
		return
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	case pkgerrors.As(err) != nil && !pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Opaque:
		fmt.Fprintln(os.Stderr, "create-admin:", pkgerrors.PublicMessage(err))
	default:
		logg.Error(ctx, "create-admin failed", err)
	}
	os.Exit(1)
}

func run(ctx context.Context, logg *logger.Logger, opts options, out io.Writer) error {
	creating := !opts.list && opts.activate == "" && opts.deactivate == ""
	if creating && (opts.username == "" || opts.email == "") {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	svc, err := admins.NewService(admins.NewRepository(dbClient.DB()), cfg.Password)
	if err != nil {
		return err
	}

	switch {
	case opts.list:
		return listAdmins(ctx, svc, out)
	case opts.activate != "":
		return toggle(ctx, svc, opts.activate, true, out)
	case opts.deactivate != "":
		return toggle(ctx, svc, opts.deactivate, false, out)
	}
	return create(ctx, svc, opts, out)
}

func create(ctx context.Context, svc *admins.Service, opts options, out io.Writer) error {
	password, generated := opts.password, false
	if password == "" {
		var err error
		if password, err = security.GenerateTempPassword(generatedPasswordLen); err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		generated = true
	}

	admin, err := svc.Create(ctx, admins.CreateInput{
		Username: opts.username,
		Email:    opts.email,
		Password: password,
		Role:     enums.AdminRole(strings.ToUpper(strings.TrimSpace(opts.role))),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s %s <%s> id=%s\n", admin.Role, admin.Username, admin.Email, admin.ID)
	if generated {
		fmt.Fprintf(out, "generated password: %s\n", password)
	}
	return nil
}

func toggle(ctx context.Context, svc *admins.Service, login string, active bool, out io.Writer) error {
	admin, err := svc.SetActive(ctx, login, active)
	if err != nil {
		return err
	}
	state := "disabled"
	if admin.IsActive {
		state = "enabled"
	}
	fmt.Fprintf(out, "%s %s <%s>\n", state, admin.Username, admin.Email)
	return nil
}

func listAdmins(ctx context.Context, svc *admins.Service, out io.Writer) error {
	rows, err := svc.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tEMAIL\tROLE\tACTIVE\tLAST LOGIN")
	for _, a := range rows {
		last := "-"
		if a.LastLoginAt != nil {
			last = a.LastLoginAt.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", a.Username, a.Email, a.Role, a.IsActive, last)
	}
	return tw.Flush()
}

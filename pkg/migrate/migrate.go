package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"text/tabwriter"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Commands accepted by Apply.
const (
	CmdUp      = "up"
	CmdDown    = "down"
	CmdStatus  = "status"
	CmdVersion = "version"
)

// DirSource reads migrations from a directory on disk.
func DirSource(dir string) fs.FS {
	return os.DirFS(dir)
}

// EmbeddedSource returns the migrations compiled into the binary.
func EmbeddedSource() fs.FS {
	sub, err := fs.Sub(embedded, embeddedDir)
	if err != nil {
		panic(err)
	}
	return sub
}

func newProvider(db *sql.DB, source fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if source == nil {
		return nil, errors.New("migration source is required")
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Apply runs one command against source and writes a report to out.
// target is only used by CmdVersion, which migrates up or down to it.
func Apply(ctx context.Context, db *sql.DB, source fs.FS, command string, target int64, out io.Writer) error {
	p, err := newProvider(db, source)
	if err != nil {
		return err
	}
	// p.Close would close db, which belongs to the caller.

	switch command {
	case CmdUp:
		results, err := p.Up(ctx)
		report(out, results...)
		return wrap(command, err)
	case CmdDown:
		result, err := p.Down(ctx)
		if result != nil {
			report(out, result)
		}
		return wrap(command, err)
	case CmdStatus:
		statuses, err := p.Status(ctx)
		if err != nil {
			return wrap(command, err)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, path.Base(s.Source.Path))
		}
		return tw.Flush()
	case CmdVersion:
		if target <= 0 {
			return errors.New("version command needs a positive target")
		}
		current, err := p.GetDBVersion(ctx)
		if err != nil {
			return wrap(command, err)
		}
		var results []*goose.MigrationResult
		switch {
		case current < target:
			results, err = p.UpTo(ctx, target)
		case current > target:
			results, err = p.DownTo(ctx, target)
		}
		report(out, results...)
		return wrap(command, err)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

// CurrentVersion reports the schema version recorded in the database.
func CurrentVersion(ctx context.Context, db *sql.DB, source fs.FS) (int64, error) {
	p, err := newProvider(db, source)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}

func report(out io.Writer, results ...*goose.MigrationResult) {
	if out == nil {
		return
	}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		status := "OK"
		if r.Error != nil {
			status = "FAILED"
		}
		fmt.Fprintf(out, "%-6s %-4s %s (%s)\n", status, r.Direction, path.Base(r.Source.Path), r.Duration.Round(time.Millisecond))
	}
}

func wrap(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}

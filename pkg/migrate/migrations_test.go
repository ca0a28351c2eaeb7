package migrate_test

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutorgoat/tutorgoat-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no %s migration file found", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestInquiryMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_inquiries")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inquiries",
		"CONSTRAINT inquiries_reference_key UNIQUE (reference)",
		"CHECK (quote_amount IS NULL OR quote_amount >= 0)",
		"CREATE TABLE IF NOT EXISTS inquiry_status_history",
		"PRIMARY KEY (inquiry_id, seq)",
		"FOREIGN KEY (inquiry_id) REFERENCES inquiries(id) ON DELETE CASCADE",
		"FOREIGN KEY (changed_by) REFERENCES admins(id)",
		"CHECK (from_status <> status)",
		"CHECK (reason IS NULL OR char_length(reason) <= 500)",
		"CHECK (notes IS NULL OR char_length(notes) <= 1000)",
		"DROP TABLE IF EXISTS inquiry_status_history",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEnumMigrationListsEveryStatus(t *testing.T) {
	content := readMigration(t, "create_enums")
	for _, status := range []string{"PENDING", "ASSIGNED", "IN_PROGRESS", "COMPLETED", "REJECTED", "REFUTED", "ON_HOLD", "CANCELLED"} {
		require.Contains(t, content, "'"+status+"'")
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Tutor Index!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_tutor_index.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestValidateEmbeddedMatchesShippedFiles(t *testing.T) {
	require.NoError(t, migrate.ValidateEmbedded())
}

func TestCreateSQLMigrationRefusesEmptyName(t *testing.T) {
	_, err := migrate.CreateSQLMigration(t.TempDir(), "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260901090000_only_up.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))
	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "-- +goose Down")
}

func TestEmbeddedSourceListsMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrate.EmbeddedSource(), ".")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, entries, len(onDisk))
}

func TestApplyRequiresDatabase(t *testing.T) {
	err := migrate.Apply(context.Background(), nil, migrate.EmbeddedSource(), migrate.CmdUp, 0, io.Discard)
	require.Error(t, err)
}

func TestContactAndPasswordEnumsAreAdded(t *testing.T) {
	content := readMigration(t, "add_contact_and_password_events")
	require.Contains(t, content, "-- +goose NO TRANSACTION")
	require.Contains(t, content, "ALTER TYPE audit_action ADD VALUE IF NOT EXISTS 'change_password'")
	require.Contains(t, content, "ALTER TYPE event_type_enum ADD VALUE IF NOT EXISTS 'contact_submitted'")
	require.Contains(t, content, "ALTER TYPE aggregate_type_enum ADD VALUE IF NOT EXISTS 'contact_message'")
}

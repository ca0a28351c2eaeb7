// Package dbtest opens isolated in-memory sqlite databases carrying the
// production table layout, for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS admins (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'AGENT',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  login_attempts INTEGER NOT NULL DEFAULT 0,
  lock_until DATETIME,
  can_view_inquiries INTEGER NOT NULL DEFAULT 1,
  can_edit_inquiries INTEGER NOT NULL DEFAULT 1,
  can_delete_inquiries INTEGER NOT NULL DEFAULT 0,
  can_manage_users INTEGER NOT NULL DEFAULT 0,
  can_view_analytics INTEGER NOT NULL DEFAULT 1,
  can_manage_settings INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS inquiries (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL UNIQUE,
  course_name TEXT NOT NULL,
  assignment_details TEXT NOT NULL,
  service_type TEXT NOT NULL,
  urgency TEXT NOT NULL DEFAULT 'normal',
  contact_email TEXT NOT NULL,
  name TEXT,
  phone_number TEXT NOT NULL,
  client_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  status_changed_at DATETIME NOT NULL,
  history_count INTEGER NOT NULL DEFAULT 0,
  quote_amount TEXT,
  quote_email_sent INTEGER NOT NULL DEFAULT 0,
  quote_email_sent_at DATETIME,
  payment_received INTEGER NOT NULL DEFAULT 0,
  payment_received_at DATETIME,
  internal_notes TEXT,
  assigned_tutor TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS inquiry_attachments (
  id TEXT PRIMARY KEY,
  inquiry_id TEXT NOT NULL REFERENCES inquiries(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  original_name TEXT NOT NULL,
  storage_path TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  mime_type TEXT NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS inquiry_status_history (
  inquiry_id TEXT NOT NULL REFERENCES inquiries(id) ON DELETE CASCADE,
  seq INTEGER NOT NULL,
  from_status TEXT NOT NULL,
  status TEXT NOT NULL,
  changed_at DATETIME NOT NULL,
  changed_by TEXT NOT NULL REFERENCES admins(id),
  from_status_since DATETIME NOT NULL,
  reason TEXT,
  notes TEXT,
  PRIMARY KEY (inquiry_id, seq)
);
CREATE TABLE IF NOT EXISTS audit_logs (
  id TEXT PRIMARY KEY,
  admin_id TEXT,
  admin_username TEXT NOT NULL,
  action TEXT NOT NULL,
  resource TEXT NOT NULL,
  resource_id TEXT,
  details TEXT,
  ip_address TEXT,
  user_agent TEXT,
  success INTEGER NOT NULL DEFAULT 1,
  error_message TEXT,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);
`

// Open returns a fresh database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, conn.Exec(stmt).Error)
	}

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

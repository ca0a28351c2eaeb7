package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestDumpSurfacesPostgresDetail(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "admins_email_key", TableName: "admins", Message: "duplicate key value"}
	err := Wrap(CodeConflict, fmt.Errorf("insert admin: %w", pgErr), "email taken")

	d := Dump(err)
	require.Equal(t, CodeConflict, d.Code)
	require.Equal(t, "23505", d.PG.Code)
	require.Equal(t, "admins_email_key", d.PG.Constraint)
	require.Len(t, d.Chain, 3)

	require.Equal(t, ErrorDump{}, Dump(nil))
	_, ok := PostgresDetail(fmt.Errorf("plain"))
	require.False(t, ok)
}

func TestIsSerializationFailure(t *testing.T) {
	require.True(t, IsSerializationFailure(fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40001"})))
	require.True(t, IsSerializationFailure(&pq.Error{Code: "40P01"}))
	require.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsSerializationFailure(nil))
}

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONMapScan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"from":"PENDING","count":2}`)))
	require.Equal(t, "PENDING", m["from"])
	require.EqualValues(t, 2, m["count"])

	require.NoError(t, m.Scan(nil))
	require.Nil(t, m)

	require.Error(t, m.Scan(42))
}

func TestJSONMapValueNil(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestJSONMapValueAndString(t *testing.T) {
	m := JSONMap{"reason": "duplicate", "attempts": 3}
	v, err := m.Value()
	require.NoError(t, err)
	require.JSONEq(t, `{"reason":"duplicate","attempts":3}`, v.(string))

	require.Equal(t, "duplicate", m.String("reason"))
	require.Empty(t, m.String("attempts"))
	require.Empty(t, m.String("missing"))

	require.Error(t, m.Scan([]byte("not json")))
}

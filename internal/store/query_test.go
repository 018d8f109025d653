package store

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewind/internal/models"
	"rewind/internal/testutil"
)

func newTestShell(t *testing.T) *QueryShell {
	t.Helper()
	s := newTestStore(t, nil)
	_, err := s.SaveRun(sampleRun("42", 2023))
	require.NoError(t, err)
	return NewQueryShell(s.DB(), &testutil.MockLogger{})
}

func TestIsReadOnly(t *testing.T) {
	assert.True(t, isReadOnly("SELECT * FROM runs"))
	assert.True(t, isReadOnly("  select 1;"))
	assert.True(t, isReadOnly("WITH t AS (SELECT 1) SELECT * FROM t"))
	assert.True(t, isReadOnly("EXPLAIN SELECT 1"))
	assert.True(t, isReadOnly("PRAGMA table_info(runs)"))

	assert.False(t, isReadOnly(""))
	assert.False(t, isReadOnly("DELETE FROM runs"))
	assert.False(t, isReadOnly("UPDATE runs SET year = 0"))
	assert.False(t, isReadOnly("INSERT INTO runs DEFAULT VALUES"))
	assert.False(t, isReadOnly("DROP TABLE runs"))
	assert.False(t, isReadOnly("PRAGMA journal_mode = DELETE"))
	// statement stacking
	assert.False(t, isReadOnly("SELECT 1; DELETE FROM runs"))
}

func TestQueryShell_Execute(t *testing.T) {
	shell := newTestShell(t)

	result, err := shell.Execute("SELECT user_id, year FROM runs")
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "year"}, result.Columns)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, []string{"42", "2023"}, result.Rows[0])
}

func TestQueryShell_Execute_RejectsWrites(t *testing.T) {
	shell := newTestShell(t)

	_, err := shell.Execute("DELETE FROM runs")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreRead)

	// the data must be untouched
	result, err := shell.Execute("SELECT COUNT(*) FROM runs")
	require.NoError(t, err)
	assert.Equal(t, "1", result.Rows[0][0])
}

func TestQueryShell_Execute_SyntaxError(t *testing.T) {
	shell := newTestShell(t)
	_, err := shell.Execute("SELECT FROM WHERE")
	assert.ErrorIs(t, err, models.ErrStoreRead)
}

func TestQueryShell_Run(t *testing.T) {
	shell := newTestShell(t)

	in := strings.NewReader("SELECT year FROM runs\nDELETE FROM runs\nexit\n")
	var out bytes.Buffer
	require.NoError(t, shell.Run(in, &out))

	text := out.String()
	assert.Contains(t, text, "2023")
	assert.Contains(t, text, "(1 rows)")
	assert.Contains(t, text, "error:")
}

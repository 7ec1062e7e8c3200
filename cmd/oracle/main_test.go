package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/fixtures"
	"github.com/danielpatrickdp/hexagram-oracle/internal/journal"
	"github.com/danielpatrickdp/hexagram-oracle/internal/resolver"
)

// #region helpers
// setupEnv points the oracle at generated data and a local quota endpoint.
func setupEnv(t *testing.T) {
	t.Helper()
	quota := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "1000")
	}))
	t.Cleanup(quota.Close)

	t.Setenv("ORACLE_DATA_DIR", fixtures.Standard(t))
	t.Setenv("ORACLE_LOG_LEVEL", "error")
	t.Setenv("ORACLE_DB", "")
	t.Setenv("ORACLE_SOURCE", "")
	t.Setenv("ORACLE_REMOTE_URL", quota.URL+"/integers")
	t.Setenv("ORACLE_REMOTE_QUOTA_URL", quota.URL+"/quota")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := run(t, append(args, "--json")...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

// #endregion helpers

// #region lookup-tests
func TestLookup(t *testing.T) {
	setupEnv(t)

	var got lookupResult
	runJSON(t, &got, "lookup", "38")
	assert.Equal(t, 38, got.Hexagram.Number)
	assert.Equal(t, fixtures.Canonical, got.Used)
	assert.Nil(t, got.Relating)

	got = lookupResult{}
	runJSON(t, &got, "lookup", "798767")
	assert.Equal(t, 38, got.Hexagram.Number)
	require.NotNil(t, got.Relating)
	assert.Equal(t, 25, got.Relating.Hexagram.Number)

	got = lookupResult{}
	runJSON(t, &got, "lookup", "111000", "--source", fixtures.Wilhelm)
	assert.Equal(t, 11, got.Hexagram.Number)
	assert.Equal(t, fixtures.Wilhelm, got.Used)

	got = lookupResult{}
	runJSON(t, &got, "lookup", "999999", "--source", fixtures.Wilhelm)
	assert.Equal(t, 1, got.Hexagram.Number)
	assert.Equal(t, fixtures.Wilhelm, got.Used)
	assert.False(t, got.FellBack)

	var all []json.RawMessage
	runJSON(t, &all, "lookup")
	assert.Len(t, all, 64)

	out, err := run(t, "lookup", "The", "Receptive")
	require.NoError(t, err)
	assert.Contains(t, out, fixtures.Text(fixtures.Canonical, "judgment", 2))

	_, err = run(t, "lookup", "nothing", "like", "it")
	assert.ErrorIs(t, err, faults.ErrNotFound)
}

func TestResolve(t *testing.T) {
	setupEnv(t)

	var res resolver.Resolution
	runJSON(t, &res, "resolve", "1", "--source", fixtures.Legge)
	assert.Equal(t, fixtures.Legge, res.Used)
	assert.Equal(t, fixtures.Text(fixtures.Legge, "judgment", 1), res.Bundle.Judgment)
	assert.Equal(t, fixtures.Text(fixtures.Canonical, "image", 1), res.Bundle.Image)

	out, err := run(t, "resolve", "7", "--source", fixtures.Wilhelm)
	require.NoError(t, err)
	assert.Contains(t, out, "wilhelm has no text for this hexagram")

	_, err = run(t, "resolve", "seven")
	assert.ErrorIs(t, err, faults.ErrInvalidArgument)
	_, err = run(t, "resolve", "65")
	assert.ErrorIs(t, err, faults.ErrInvalidArgument)
}

// #endregion lookup-tests

// #region compare-tests
func TestCompare(t *testing.T) {
	setupEnv(t)

	var rows []resolver.Comparison
	runJSON(t, &rows, "compare", "1")
	require.Len(t, rows, 3)
	assert.Equal(t, fixtures.Canonical, rows[0].Source)
	assert.Equal(t, fixtures.Text(fixtures.Legge, "judgment", 1), rows[1].Value)

	out, err := run(t, "compare", "1", "--sources", "wilhelm,legge", "--field", "image", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "|")
	assert.Contains(t, out, fixtures.Text(fixtures.Wilhelm, "image", 1))

	_, err = run(t, "compare", "1", "--field", "commentary")
	assert.ErrorIs(t, err, faults.ErrInvalidArgument)
}

func TestValidate(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "all 64 canonical bundles are complete")

	var report validateReport
	runJSON(t, &report, "validate", "1", "--source", fixtures.Legge)
	require.Len(t, report.Bundles, 1)
	assert.True(t, report.Bundles[0].Present)
	assert.True(t, report.Bundles[0].Fields["judgment"])
	assert.False(t, report.Bundles[0].Complete())

	out, err = run(t, "validate", "--source", fixtures.Wilhelm)
	require.NoError(t, err)
	assert.Contains(t, out, "wilhelm: 3 of 64 bundles present, 3 complete")

	report = validateReport{}
	runJSON(t, &report, "validate", "1", "--source", "nonexistent")
	require.Len(t, report.Bundles, 1)
	assert.False(t, report.Bundles[0].Present)
	assert.Equal(t, fixtures.Canonical, report.Bundles[0].Used)
}

// #endregion compare-tests

// #region reading-tests
func TestMethods(t *testing.T) {
	setupEnv(t)

	var statuses []casting.Status
	runJSON(t, &statuses, "methods")
	require.Len(t, statuses, 5)
	for _, s := range statuses {
		if s.Method == casting.MethodAir {
			assert.True(t, s.Available, s.Reason)
		}
	}
}

func TestCast_JournalAndFile(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "journal.db")
	saved := filepath.Join(dir, "reading.json")

	out, err := run(t, "cast", "will", "it", "rain", "--method", "earth", "--seed", "s", "--db", db, "--save", saved, "--json")
	require.NoError(t, err)
	reading, err := engine.Decode(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "will it rain", reading.Question)
	assert.Equal(t, casting.MethodEarth, reading.Method)

	var rows []journal.Summary
	runJSON(t, &rows, "history", "--db", db)
	require.Len(t, rows, 1)
	assert.Equal(t, reading.ID, rows[0].ID)
	assert.Equal(t, reading.Primary.Lines, rows[0].Lines)

	out, err = run(t, "show", reading.ID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "will it rain")

	var entries []journal.EntropyEntry
	runJSON(t, &entries, "show", reading.ID, "--entropy", "--db", db)
	assert.Len(t, entries, 6)

	out, err = run(t, "show", "--file", saved)
	require.NoError(t, err)
	assert.Contains(t, out, "will it rain")

	_, err = run(t, "show", "missing-id", "--db", db)
	assert.ErrorIs(t, err, faults.ErrNotFound)
}

func TestCast_Errors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "cast", "--method", "earth")
	assert.ErrorIs(t, err, faults.ErrInvalidArgument)
	_, err = run(t, "cast", "--method", "water")
	assert.ErrorIs(t, err, faults.ErrInvalidArgument)
	_, err = run(t, "history")
	assert.ErrorIs(t, err, faults.ErrUnavailable)
	_, err = run(t, "show")
	assert.ErrorIs(t, err, faults.ErrInvalidArgument)
}

func TestServe_NoListeners(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "serve", "--http-addr=", "--grpc-addr=", "--watch=false")
	assert.ErrorIs(t, err, faults.ErrInvalidArgument)
}

// #endregion reading-tests

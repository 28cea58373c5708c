package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSnapshotParseWritesResult(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "snapshot", "parse", "../../internal/engine/testdata/g2_snapshot.html",
		"--company", "Acme CRM", "--start", "2025-06-01", "--end", "2025-06-30",
		"--output", dir, "--format", "json", "--table")
	require.NoError(t, err)

	assert.Contains(t, out, "Wrote 3 validated reviews")
	assert.Contains(t, out, "Solid pipeline tracking")
	assert.Contains(t, strings.ToUpper(out), "3 KEPT / 4 RAW / 0 INVALID")

	_, err = os.Stat(filepath.Join(dir, "Acme_CRM-g2-2025-06-01_2025-06-30.json"))
	assert.NoError(t, err)
}

func TestScrapeFlagErrorsExitOne(t *testing.T) {
	cases := [][]string{
		{"scrape", "--company", "acme", "--end", "2025-06-30"},
		{"scrape", "--company", "acme", "--start", "06/01/2025", "--end", "2025-06-30"},
		{"scrape", "--company", "acme", "--start", "2025-06-01", "--end", "2025-06-30", "--source", "yelp"},
		{"scrape", "--company", "acme", "--start", "2025-06-01", "--end", "2025-06-30", "--mode", "telepathy"},
		{"scrape", "--no-such-flag"},
	}
	for _, args := range cases {
		_, err := execute(t, args...)
		require.Error(t, err, "%v", args)
		assert.Equal(t, types.ExitParse, types.ExitCode(err), "%v", args)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ReviewGoat")
}

func TestSourcesTable(t *testing.T) {
	out, err := execute(t, "sources")
	require.NoError(t, err)
	for _, want := range []string{"g2", "directory-a", "marketplace-b", "review-site-c", "snapshot"} {
		assert.Contains(t, out, want)
	}
}

func TestConfigMasksSecrets(t *testing.T) {
	t.Setenv("REVIEWGOAT_API_TOKEN", "super-secret")
	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "********")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "ééé…", truncate("éééééé", 4))
}

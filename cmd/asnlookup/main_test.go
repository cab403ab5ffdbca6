package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asnlookup/internal/api/dto"
	"asnlookup/internal/auth"
	"asnlookup/internal/rangeindex"
)

const cliDataset = `10.0.0.0/8, "Example Backbone", AS64500, DE
10.1.0.0/16, Example Access, AS64501, DE
10.2.0.0/33, Broken, AS1, DE
short line
`

func writeCLIDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ranges.csv")
	require.NoError(t, os.WriteFile(path, []byte(cliDataset), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SETTINGS_FILE", filepath.Join(t.TempDir(), "settings.json"))

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateReportsMalformedLines(t *testing.T) {
	path := writeCLIDataset(t)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "4 lines, 2 ranges, 1 skipped, 1 malformed")
}

func TestLookupCommand(t *testing.T) {
	path := writeCLIDataset(t)
	t.Setenv("DATASET_FILE", path)
	t.Setenv("INDEX_KIND", "trie")

	out, err := execute(t, "lookup", "10.1.2.3", "2001:db8::1")
	require.NoError(t, err)

	var results []dto.IPInfo
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "Example Access", *results[0].ISP)
	assert.Equal(t, "IPv6 lookup not supported", *results[1].Error)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "--subject", "ops")
	require.NoError(t, err)

	claims, err := auth.ValidateJWT(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims["sub"])
	assert.Equal(t, auth.RoleAdmin, claims["role"])
}

func TestBenchCommand(t *testing.T) {
	t.Setenv("DATASET_FILE", writeCLIDataset(t))
	t.Setenv("INDEX_KIND", "bucket")

	out, err := execute(t, "bench", "--count", "1000", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "index: bucket, 2 ranges")
	assert.Contains(t, out, "lookups: 1000")
}

func TestReadDatasetRanges(t *testing.T) {
	ranges, malformed, err := readDatasetRanges(writeCLIDataset(t))
	require.NoError(t, err)
	assert.Equal(t, 1, malformed)
	require.Len(t, ranges, 2)
	assert.Equal(t, "Example Backbone", ranges[0].ISP)
	assert.Equal(t, "10.1.0.0/16", ranges[1].CIDR)
}

func TestReadDatasetRangesSkipsOversizedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.csv")
	data := cliDataset + strings.Repeat("x", 2*rangeindex.MaxLineLength) + "\n192.0.2.0/24, Example Edge, AS64502, DE\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	ranges, malformed, err := readDatasetRanges(path)
	require.NoError(t, err)
	assert.Equal(t, 2, malformed)
	require.Len(t, ranges, 3)
	assert.Equal(t, "192.0.2.0/24", ranges[2].CIDR)
}

func TestRandomAddrsIsDeterministicPerSeed(t *testing.T) {
	a := randomAddrs(16, 42)
	b := randomAddrs(16, 42)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

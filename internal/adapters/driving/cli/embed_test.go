package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetEmbedFlags() {
	embedStale = false
	embedMinAge = 0
	embedEntryID = ""
	embedStatsJSON = false
}

func TestEmbedCmd_All(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetEmbedFlags()

	out, err := runCLI(t, "embed")

	require.NoError(t, err)
	assert.Contains(t, out, "[2/2] entry-2 (1 chunks)")
	assert.Contains(t, out, "Embedded 1 entries (1 failed)")
	assert.Contains(t, out, "Error: entry-2: provider timeout")
}

func TestEmbedCmd_Stale(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetEmbedFlags()

	out, err := runCLI(t, "embed", "--stale", "--min-age", "10m")

	require.NoError(t, err)
	assert.Equal(t, 1, lastTestServices.index.staleCalls)
	assert.Contains(t, out, "Embedded 3 entries (0 failed)")
}

func TestEmbedCmd_SingleEntry(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetEmbedFlags()

	out, err := runCLI(t, "embed", "--entry", "entry-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"entry-1"}, lastTestServices.index.embedded)
	assert.Contains(t, out, "Embedded entry entry-1 (2 chunks)")
}

func TestEmbedCmd_SingleEntryNotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetEmbedFlags()

	_, err := runCLI(t, "embed", "--entry", "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestEmbedStatsCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetEmbedFlags()

	out, err := runCLI(t, "embed", "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Chunks:           4")
	assert.Contains(t, out, "2 entries are not embedded")
}

func TestEmbedStatsCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetEmbedFlags()

	out, err := runCLI(t, "embed", "stats", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"totalChunks": 4`)
}

func TestEmbedClearCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "embed", "clear")

	require.NoError(t, err)
	assert.True(t, lastTestServices.index.cleared)
	assert.Contains(t, out, "All embeddings deleted.")
}

func TestEmbedCmd_ServiceNotConfigured(t *testing.T) {
	old := indexService
	indexService = nil
	defer func() { indexService = old }()

	_, err := runCLI(t, "embed")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "index service not configured")
}

package nanoconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesSpecDefaults(t *testing.T) {
	c := Default()
	require.Equal(t, 5000, c.ActiveElections.Size)
	require.Equal(t, 20, c.ActiveElections.HintedLimitPercentage)
	require.Equal(t, 10, c.ActiveElections.OptimisticLimitPct)
	require.Equal(t, 65536, c.VoteCache.MaxSize)
	require.Equal(t, 64, c.VoteCache.MaxVoters)
	require.Equal(t, 100*time.Millisecond, c.VoteGeneratorDelay)
}

func TestBaseLatency_DevVsProd(t *testing.T) {
	require.Equal(t, 25*time.Millisecond, Dev().BaseLatency())
	require.Equal(t, time.Second, Live().BaseLatency())
	require.Equal(t, time.Second, Beta().BaseLatency())
	require.Equal(t, time.Second, Test().BaseLatency())
}

func TestValidate_RejectsBadNetworkAndSize(t *testing.T) {
	c := Default()
	c.Network = "nonsense"
	require.ErrorIs(t, c.Validate(), ErrInvalidNetwork)

	c = Default()
	c.ActiveElections.Size = 0
	require.ErrorIs(t, c.Validate(), ErrInvalidSize)

	require.NoError(t, Default().Validate())
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
network = "dev"

[active_elections]
size = 42
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, NetworkDev, c.Network)
	require.Equal(t, 42, c.ActiveElections.Size)
	// Untouched fields keep their default values.
	require.Equal(t, 65536, c.VoteCache.MaxSize)
}

func TestLoad_ReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

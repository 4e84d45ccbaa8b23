package zonaltools

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUpFlightRoot(t testing.TB, flights ...int) string {
	t.Helper()
	root := t.TempDir()
	for _, n := range flights {
		require.NoError(t, os.Mkdir(filepath.Join(root, fmt.Sprintf("F%d", n)), 0o755))
	}
	return root
}

func TestRunReportsEveryFlightOnce(t *testing.T) {
	root := setUpFlightRoot(t, 3, 1, 2, 4)

	cfg := DefaultConfig(root, t.TempDir())
	cfg.MaxWorkers = 3
	cfg.ReadTileSet = func(dir string, flight int) (*TileSet, string, error) {
		return nil, "", fmt.Errorf("no tile-set file for flight %d", flight)
	}

	results, err := Run(cfg)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, res := range results {
		assert.Equal(t, i+1, res.Flight)
		assert.Equal(t, StatusSkip, res.Status)
	}
}

func TestRunContainsWorkerCrash(t *testing.T) {
	root := setUpFlightRoot(t, 1, 2, 3)

	cfg := DefaultConfig(root, t.TempDir())
	cfg.MaxWorkers = 2
	cfg.ReadTileSet = func(dir string, flight int) (*TileSet, string, error) {
		if flight == 2 {
			panic("induced crash")
		}
		return nil, "", fmt.Errorf("no tile-set file for flight %d", flight)
	}

	results, err := Run(cfg)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, StatusSkip, results[0].Status)
	assert.Equal(t, StatusError, results[1].Status)
	assert.Contains(t, results[1].Message, "induced crash")
	assert.NotEmpty(t, results[1].Detail)
	assert.Equal(t, StatusSkip, results[2].Status)
}

func TestRunTimesOutStuckFlight(t *testing.T) {
	root := setUpFlightRoot(t, 1, 2)

	cfg := DefaultConfig(root, t.TempDir())
	cfg.MaxWorkers = 2
	cfg.Timeout = 50 * time.Millisecond
	cfg.ReadTileSet = func(dir string, flight int) (*TileSet, string, error) {
		if flight == 1 {
			time.Sleep(500 * time.Millisecond)
		}
		return nil, "", fmt.Errorf("no tile-set file for flight %d", flight)
	}

	results, err := Run(cfg)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, StatusError, results[0].Status)
	assert.Contains(t, results[0].Message, "timed out")
	assert.Equal(t, StatusSkip, results[1].Status)
}

func TestRunFailsWithoutFlightFolders(t *testing.T) {
	cfg := DefaultConfig(t.TempDir(), t.TempDir())
	_, err := Run(cfg)
	assert.ErrorContains(t, err, "no flight folders")
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/app/services"
	"github.com/yigit/unisync/internal/pkg/apperrors"
)

func writeLocalConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := `
relational:
  driver: sqlite
  sqlite_path: ` + filepath.Join(dir, "unisync.db") + `
graph:
  driver: memory
document:
  driver: memory
cache:
  driver: memory
search:
  driver: memory
reports:
  driver: local
  path: ` + filepath.Join(dir, "reports") + `
logging:
  level: error
generation:
  divisions: "=2"
  departments: "=2"
  specialties: "1"
  courses: "1"
  sessions: "2"
  materials: "1"
  groups: "1"
  students: "4"
  slots: "1"
  occurrences_per_slot: "1"
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeRun(t *testing.T, out string) services.Run {
	t.Helper()
	var run services.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	return run
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"run", "project", "reset", "serve"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "configs/config.yaml", configFlag.DefValue)

	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, runCmd.Flags().Lookup("reset"))
	assert.NotNil(t, runCmd.Flags().Lookup("seed"))

	projectCmd, _, err := cmd.Find([]string{"project"})
	require.NoError(t, err)
	assert.NotNil(t, projectCmd.Flags().Lookup("store"))
}

func TestRunThenProjectThenReset(t *testing.T) {
	path := writeLocalConfig(t)

	out, err := execute(t, "run", "--config", path, "--seed", "11")
	require.NoError(t, err)
	run := decodeRun(t, out)
	assert.Equal(t, services.StateCompleted, run.State)
	assert.Equal(t, int64(11), run.Seed)
	assert.Equal(t, 8, run.Counts[models.EntityStudent])

	out, err = execute(t, "project", "--config", path, "--store", "graph,cache")
	require.NoError(t, err)
	projected := decodeRun(t, out)
	assert.Equal(t, services.KindProject, projected.Kind)
	assert.Equal(t, services.StateCompleted, projected.State)
	assert.Len(t, projected.Stores, 2)
	assert.Equal(t, run.Counts, projected.Counts)

	_, err = execute(t, "reset", "--config", path)
	require.NoError(t, err)

	out, err = execute(t, "run", "--config", path, "--seed", "11")
	require.NoError(t, err)
	again := decodeRun(t, out)
	assert.Equal(t, run.Counts, again.Counts, "reset leaves no enrollment records behind to collide with")
}

func TestProjectUnknownStore(t *testing.T) {
	path := writeLocalConfig(t)

	_, err := execute(t, "project", "--config", path, "--store", "ledger")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBadConfigIsCommandError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relational:\n  driver: oracle\n"), 0o600))

	_, err := execute(t, "reset", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFinishMapsStates(t *testing.T) {
	var out bytes.Buffer

	partial := services.NewRun(services.KindGenerate)
	partial.State = services.StatePartiallyFailed
	partial.Inconsistent = []string{"search"}
	err := finish(&out, partial, nil)
	assert.Equal(t, ExitPartial, GetExitCode(err))
	assert.Contains(t, err.Error(), "search")

	partial.Relational = projectors.NewStoreReport("relational")
	partial.Relational.Fail(apperrors.NewSyncError(apperrors.KindWriteRejected, "relational", "student", errors.New("duplicate key")))
	err = finish(&out, partial, nil)
	assert.Equal(t, ExitPartial, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 drafts rejected by the store of record")

	failed := services.NewRun(services.KindGenerate)
	failed.State = services.StateFailed
	assert.Equal(t, ExitFailure, GetExitCode(finish(&out, failed, nil)))
	assert.Equal(t, ExitFailure, GetExitCode(finish(&out, failed, context.Canceled)))

	assert.Equal(t, ExitCommandError, GetExitCode(finish(&out, nil, errors.New("dial tcp: refused"))))

	done := services.NewRun(services.KindGenerate)
	done.State = services.StateCompleted
	assert.NoError(t, finish(&out, done, nil))
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}

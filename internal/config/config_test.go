package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Service.MaxActiveTasks)
	assert.Equal(t, 10*time.Minute, cfg.Service.TaskTimeout)
	assert.Equal(t, 4, cfg.Optimizer.MaxSimultaneousThreads)
	assert.Equal(t, time.Second, cfg.Optimizer.ThreadCheckInterval)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cutplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
service:
  max_active_tasks: 3
optimizer:
  cut_thickness: "3.2"
  priority: cutting_efficiency
`), 0o644))
	t.Setenv("CUTPLAN_SERVICE_MAX_ACTIVE_TASKS", "5")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", ":9100"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr, "flag beats file")
	assert.Equal(t, 5, cfg.Service.MaxActiveTasks, "env beats file")
	assert.Equal(t, "3.2", cfg.Optimizer.CutThickness)

	opt, err := cfg.Optimizer.Configuration()
	require.NoError(t, err)
	assert.Equal(t, model.PriorityCuttingEfficiency, opt.Priority)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", nil)
	require.NoError(t, err)

	bad := *cfg
	bad.Service.MaxActiveTasks = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = *cfg
	bad.Optimizer.Priority = "cheapest"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}

func TestApplyDefaults(t *testing.T) {
	o := OptimizerConfig{CutThickness: "3", MinTrimDimension: "10"}
	in := model.ConfigurationInput{MinTrimDimension: "2"}

	o.ApplyDefaults(&in)

	assert.Equal(t, "3", in.CutThickness)
	assert.Equal(t, "2", in.MinTrimDimension)
}

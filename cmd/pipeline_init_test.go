//go:build !integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/scorer"
	"github.com/sells-group/prospect-cli/internal/task"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store:     config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "prospect.db")},
		Cache:     config.CacheConfig{Backend: "memory", DefaultTTLSecs: 3600},
		Scoring:   scorer.DefaultConfig(),
		Collector: config.CollectorConfig{DirectoryFallback: true, MaxContacts: 20, MaxSearchResults: 10},
		Tasks:     config.TasksConfig{Backend: "pool", Workers: 2, QueueSize: 10, RetentionHours: 1},
		Server:    config.ServerConfig{Port: 8080},
	}
}

func TestPipelineEnv_Close_Nil(t *testing.T) {
	pe := &pipelineEnv{}
	assert.NotPanics(t, func() {
		pe.Close()
	})
}

func TestInitPipeline_FailsOnBadDriver(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "mysql"

	env, err := initPipeline(context.Background(), "profile")
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestInitPipeline_FailsOnBadScoring(t *testing.T) {
	cfg = testConfig(t)
	cfg.Scoring.SizeFloor = 2

	env, err := initPipeline(context.Background(), "profile")
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size_floor")
}

func TestInitPipeline_DirectoryFallback(t *testing.T) {
	cfg = testConfig(t)

	env, err := initPipeline(context.Background(), "profile")
	require.NoError(t, err)
	defer env.Close()

	require.NotNil(t, env.Store)
	assert.False(t, env.Analyzer.Available())
	assert.False(t, env.Discovery.Available())
	assert.Equal(t, []string{
		task.KindAnalyzeCompany, task.KindBuildProfile, task.KindDiscoverCompanies, task.KindScoreProfile,
	}, env.Tasks.Kinds())

	out, err := env.Tasks.Run(context.Background(), task.KindBuildProfile,
		task.ProfileInput{Domain: "acme-labs.test", IncludeContacts: true})
	require.NoError(t, err)
	res := out.(*task.ProfileOutput)
	assert.Equal(t, "Acme Labs", res.Profile.Name)
	assert.Equal(t, []model.Source{model.SourceDirectory, model.SourceInput}, res.Profile.SourcesUsed)
	require.NotEmpty(t, res.ProfileID)

	stored, err := env.Store.LoadProfile(context.Background(), res.ProfileID)
	require.NoError(t, err)
	assert.Len(t, stored.Contacts, 10)
}

func TestInitStore_None(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "none"

	st, err := initStore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestInitCache(t *testing.T) {
	c := testConfig(t)
	got, err := initCache(context.Background(), c)
	require.NoError(t, err)
	assert.IsType(t, &cache.Memory{}, got)

	mr := miniredis.RunT(t)
	c.Cache.Backend = "redis"
	c.Redis.Addr = mr.Addr()
	got, err = initCache(context.Background(), c)
	require.NoError(t, err)
	r, ok := got.(*cache.Redis)
	require.True(t, ok)
	defer r.Close() //nolint:errcheck

	require.NoError(t, r.Set(context.Background(), "profile", "acme.test", []byte(`{}`), time.Minute))
	assert.True(t, mr.Exists("cache:profile:acme.test"))

	c.Cache.Backend = "memcached"
	_, err = initCache(context.Background(), c)
	assert.Error(t, err)
}

func TestInitCache_RedisUnreachable(t *testing.T) {
	c := testConfig(t)
	c.Cache.Backend = "redis"
	c.Redis.Addr = "127.0.0.1:1"

	_, err := initCache(context.Background(), c)
	assert.Error(t, err)
}

func TestLoadScoring_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sweet_spot_min: 10\nsweet_spot_max: 100\n"), 0o600))

	base := scorer.DefaultConfig()
	base.OverridesFile = path
	got, err := loadScoring(base)
	require.NoError(t, err)
	assert.Equal(t, 10, got.SweetSpotMin)
	assert.Equal(t, 100, got.SweetSpotMax)
	assert.InDelta(t, 30.0, got.CompletenessWeight, 0.001)
}

func TestInitManager_Pool(t *testing.T) {
	cfg = testConfig(t)
	env := &pipelineEnv{Tasks: task.NewRegistry()}

	m, shutdown, err := initManager(env)
	require.NoError(t, err)
	assert.IsType(t, &task.Pool{}, m)
	require.NoError(t, shutdown(context.Background()))
}

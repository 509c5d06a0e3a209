package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldhq/herald/pkg/config"
)

type testConfig struct {
	Name  string `env:"CONFIG_TEST_NAME" envDefault:"herald"`
	Count int    `env:"CONFIG_TEST_COUNT" envDefault:"4"`
}

type requiredConfig struct {
	Secret string `env:"CONFIG_TEST_REQUIRED,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		config.ResetCache()

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "herald", cfg.Name)
		assert.Equal(t, 4, cfg.Count)
	})

	t.Run("env overrides defaults", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("CONFIG_TEST_NAME", "override")
		t.Setenv("CONFIG_TEST_COUNT", "9")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "override", cfg.Name)
		assert.Equal(t, 9, cfg.Count)
	})

	t.Run("cached between loads", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("CONFIG_TEST_NAME", "first")

		var a testConfig
		require.NoError(t, config.Load(&a))

		// Mutating the environment after the first load must not change
		// the cached value other components already observed.
		t.Setenv("CONFIG_TEST_NAME", "second")
		var b testConfig
		require.NoError(t, config.Load(&b))
		assert.Equal(t, "first", b.Name)
	})

	t.Run("missing required var fails", func(t *testing.T) {
		config.ResetCache()

		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	config.ResetCache()

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv_MissingFile(t *testing.T) {
	err := config.LoadEnv("testdata/does-not-exist.env")
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}

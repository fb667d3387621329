package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	TestConfig struct {
		Foo *FooTestConfig
		Bar *BarTestConfig
	}
	FooTestConfig struct {
		Hello string
		World int
	}
	BarTestConfig struct {
		First  int
		Second int
	}
	MultipleWordsConfig struct {
		FooBar     int
		CustomerId int
	}
)

func (c *BarTestConfig) ApplyDefault() {
	if c.First == 0 {
		c.First = 42
	}
}

func TestLoad(t *testing.T) {
	t.Run("it should load basic struct", func(t *testing.T) {
		// GIVEN
		t.Setenv("FOO_HELLO", "waldo")
		t.Setenv("FOO_WORLD", "23")

		// WHEN
		conf, err := Load[FooTestConfig](WithEnvPrefix("FOO"))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "waldo", conf.Hello)
		assert.Equal(t, 23, conf.World)
	})

	t.Run("it should load from env vars", func(t *testing.T) {
		// GIVEN
		t.Setenv("TEST_FOO_HELLO", "waldo")
		t.Setenv("TEST_FOO_WORLD", "23")
		t.Setenv("TEST_BAR_FIRST", "12")
		t.Setenv("TEST_BAR_SECOND", "66")

		// WHEN
		conf, err := Load[TestConfig](WithEnvPrefix("TEST"))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "waldo", conf.Foo.Hello)
		assert.Equal(t, 23, conf.Foo.World)
		assert.Equal(t, 12, conf.Bar.First)
		assert.Equal(t, 66, conf.Bar.Second)
	})

	t.Run("it should initialize nested struct event if no env vars for this struct", func(t *testing.T) {
		// GIVEN
		t.Setenv("TEST_BAR_FIRST", "12")
		t.Setenv("TEST_BAR_SECOND", "66")

		// WHEN
		conf, err := Load[TestConfig](WithEnvPrefix("TEST"))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "", conf.Foo.Hello)
		assert.Equal(t, 0, conf.Foo.World)
		assert.Equal(t, 12, conf.Bar.First)
		assert.Equal(t, 66, conf.Bar.Second)
	})

	t.Run("it should apply default if the struct implements WithDefault", func(t *testing.T) {
		// GIVEN

		// WHEN
		conf, err := Load[TestConfig](WithEnvPrefix("TEST"))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "", conf.Foo.Hello)
		assert.Equal(t, 0, conf.Foo.World)
		assert.Equal(t, 42, conf.Bar.First)
		assert.Equal(t, 0, conf.Bar.Second)
	})

	t.Run("it should bind correctly multiple words variables", func(t *testing.T) {
		// GIVEN
		t.Setenv("TEST_FOO_BAR", "12")
		t.Setenv("TEST_CUSTOMER_ID", "66")

		// WHEN
		conf, err := Load[MultipleWordsConfig](WithEnvPrefix("TEST"))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, 12, conf.FooBar)
		assert.Equal(t, 66, conf.CustomerId)
	})
}

type (
	FileTestConfig struct {
		Name string
		Log  LogTestConfig
	}
	LogTestConfig struct {
		Level string
	}
	FlagTestConfig struct {
		ForkParallelism int    `mapstructure:"forkParallelism"`
		Output          string `mapstructure:"output"`
		Log             *LogTestConfig
	}
)

func (c *LogTestConfig) ApplyDefault() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func TestLoadSources(t *testing.T) {
	t.Run("it should read a config file and let env vars override it", func(t *testing.T) {
		// GIVEN
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: from-file\nlog:\n  level: debug\n"), 0o600))
		t.Setenv("FILE_NAME", "from-env")

		// WHEN
		conf, err := Load[FileTestConfig](WithEnvPrefix("FILE"), WithFile(path))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "from-env", conf.Name)
		assert.Equal(t, "debug", conf.Log.Level)
	})

	t.Run("it should apply defaults of nested value structs", func(t *testing.T) {
		// GIVEN / WHEN
		conf, err := Load[FileTestConfig](WithEnvPrefix("NESTED"))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "info", conf.Log.Level)
	})

	t.Run("it should fail for a missing config file", func(t *testing.T) {
		_, err := Load[FileTestConfig](WithFile(filepath.Join(t.TempDir(), "missing.yaml")))

		assert.Error(t, err)
	})

	t.Run("it should let flags set on the command line override env vars", func(t *testing.T) {
		// GIVEN
		t.Setenv("FLAG_OUTPUT", "from-env")
		t.Setenv("FLAG_FORK_PARALLELISM", "2")
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("fork-parallelism", 1, "")
		flags.String("output", "default.go", "")
		flags.String("log.level", "warn", "")
		require.NoError(t, flags.Parse([]string{"--fork-parallelism=8"}))

		// WHEN
		conf, err := Load[FlagTestConfig](WithEnvPrefix("FLAG"), WithFlags(flags))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, 8, conf.ForkParallelism)
		assert.Equal(t, "from-env", conf.Output)
		assert.Equal(t, "warn", conf.Log.Level)
	})
}

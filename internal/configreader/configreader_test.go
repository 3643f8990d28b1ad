package configreader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	Config     string `name:"config" toml:"-" yaml:"-"`
	APIKey     string `name:"api_key" toml:"api_key" yaml:"api_key"`
	APIBaseURL string `name:"api_base_url" toml:"api_base_url" yaml:"api_base_url"`
	LogQueries bool   `name:"log_queries" toml:"log_queries" yaml:"log_queries"`
	Workers    int    `name:"workers" toml:"workers" yaml:"workers"`
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	return p
}

func TestReadFromTOMLFile(t *testing.T) {
	a := assert.New(t)

	p := writeTestFile(t, "config.toml", "api_key = \"from_file\"\nworkers = 3\n")

	var cfg testConfig
	a.NoError(Read("test", []string{"-config", p}, nil, &cfg))
	a.Equal("from_file", cfg.APIKey)
	a.Equal(3, cfg.Workers)
}

func TestReadFromYAMLFile(t *testing.T) {
	a := assert.New(t)

	p := writeTestFile(t, "config.yaml", "api_key: from_file\nlog_queries: true\n")

	var cfg testConfig
	a.NoError(Read("test", []string{"-config", p}, nil, &cfg))
	a.Equal("from_file", cfg.APIKey)
	a.True(cfg.LogQueries)
}

func TestArgumentsOverrideFile(t *testing.T) {
	a := assert.New(t)

	p := writeTestFile(t, "config.toml", "api_key = \"from_file\"\n")

	var cfg testConfig
	a.NoError(Read("test", []string{"-config", p, "-api_key", "from_flag"}, nil, &cfg))
	a.Equal("from_flag", cfg.APIKey)
}

func TestEnvironmentOverridesArguments(t *testing.T) {
	a := assert.New(t)

	var cfg testConfig
	a.NoError(Read("test", []string{"-api_key", "from_flag"}, []string{"API_KEY=from_env", "WORKERS=5"}, &cfg))
	a.Equal("from_env", cfg.APIKey)
	a.Equal(5, cfg.Workers)
}

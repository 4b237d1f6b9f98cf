package data

import (
	"io/ioutil"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v2"
)

type File struct {
	Reqcheck Config `yaml:"reqcheck"`
}

type Config struct {
	Index IndexConfig `yaml:"index"`

	GitHubAPI string        `yaml:"github_api"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	Workers   int           `yaml:"workers"`

	// AllowDirect lists projects whose branch pins are expected.
	AllowDirect    []string `yaml:"allow_direct"`
	ForbidUnpinned bool     `yaml:"forbid_unpinned"`
}

type IndexConfig struct {
	// Kind is "json" for the JSON API or "simple" for a PEP 503 index.
	Kind string `yaml:"kind"`
	URL  string `yaml:"url"`
}

func DefaultConfig() Config {
	return Config{
		Index: IndexConfig{
			Kind: "json",
			URL:  "https://pypi.org",
		},
		GitHubAPI: "https://api.github.com",
		Timeout:   time.Second * 10,
		CacheTTL:  time.Hour,
		Workers:   runtime.NumCPU(),
	}
}

// LoadConfig reads a YAML configuration on top of the defaults. An
// empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfgFile File
	cfgFile.Reqcheck = DefaultConfig()
	if path == "" {
		return &cfgFile.Reqcheck, nil
	}

	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(d, &cfgFile); err != nil {
		return nil, err
	}
	if cfgFile.Reqcheck.Workers < 1 {
		cfgFile.Reqcheck.Workers = 1
	}
	return &cfgFile.Reqcheck, nil
}

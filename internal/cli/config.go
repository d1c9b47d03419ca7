package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/andreyvit/graphdata/store"
)

// Config is the optional TOML file given by --config.
//
//	[store]
//	mmap_size = 268435456
//	verbose = true
//	read_only = true
//	timeout = "5s"
type Config struct {
	Store StoreConfig `toml:"store"`
}

type StoreConfig struct {
	MmapSize int           `toml:"mmap_size"`
	Verbose  bool          `toml:"verbose"`
	ReadOnly bool          `toml:"read_only"`
	Timeout  time.Duration `toml:"timeout"`
}

func defaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
// Unknown keys are an error, so that typos do not pass silently.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

func (c StoreConfig) options(readOnly bool) store.Options {
	return store.Options{
		Verbose:  c.Verbose,
		ReadOnly: readOnly || c.ReadOnly,
		MmapSize: c.MmapSize,
		Timeout:  c.Timeout,
	}
}

package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultConfigDir   = ".kyua"
	DefaultKyuafile    = "Kyuafile.yaml"
	DefaultResultsFile = "results.jsonl"
)

// Config resolves where the harness finds its Kyuafile and where it keeps
// its results log. Explicit paths always win over the defaults.
type Config struct {
	KyuafilePath string
	ResultsPath  string
	ConfigDir    string
}

// Load computes the effective configuration. The default Kyuafile is the
// one in the current directory; the default results log lives under the
// user's ~/.kyua directory, which is created on first use.
func Load(kyuafilePath, resultsPath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)

	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigDir: configDir,
	}

	if kyuafilePath != "" {
		cfg.KyuafilePath = kyuafilePath
	} else {
		cfg.KyuafilePath = DefaultKyuafile
	}

	if resultsPath != "" {
		cfg.ResultsPath = resultsPath
	} else {
		cfg.ResultsPath = filepath.Join(configDir, DefaultResultsFile)
	}

	return cfg, nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}

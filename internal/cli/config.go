package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/inkwell/internal/paths"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Config keys in config.yaml.
const (
	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyMaxChainLength = "max_chain_length"
	cfgKeyContextLines   = "context_lines"
	cfgKeyRegistryFile   = "registry_file"
	cfgKeyIDPrefixes     = "id_prefixes"
)

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend        string   `yaml:"backend"`
	DataDir        string   `yaml:"data_dir,omitempty"`
	MaxChainLength int      `yaml:"max_chain_length"`
	ContextLines   int      `yaml:"context_lines"`
	RegistryFile   string   `yaml:"registry_file"`
	IDPrefixes     []string `yaml:"id_prefixes"`
}

// loadConfig reads config.yaml from the resolved config directory. A
// missing file yields the defaults. The data directory follows
// paths.ResolveDataDir.
func loadConfig(configDirFlag, dataDirFlag string) (types.Config, string, error) {
	configDir, err := paths.ResolveConfigDir(configDirFlag)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve config dir: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendFile)
	v.SetDefault(cfgKeyMaxChainLength, types.DefaultMaxChainLength)
	v.SetDefault(cfgKeyContextLines, types.DefaultContextLines)
	v.SetDefault(cfgKeyRegistryFile, types.DefaultRegistryFile)
	v.SetDefault(cfgKeyIDPrefixes, types.DefaultIDPrefixes)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, "", fmt.Errorf("read config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Backend:        v.GetString(cfgKeyBackend),
		DataDir:        dataDir,
		MaxChainLength: v.GetInt(cfgKeyMaxChainLength),
		ContextLines:   v.GetInt(cfgKeyContextLines),
		RegistryFile:   v.GetString(cfgKeyRegistryFile),
		IDPrefixes:     v.GetStringSlice(cfgKeyIDPrefixes),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, "", err
	}
	return cfg, filepath.Join(configDir, paths.ConfigFileName), nil
}

// writeConfigIfMissing creates config.yaml from cfg if it does not exist.
// It reports whether a file was written.
func writeConfigIfMissing(path string, cfg types.Config, dataDirExplicit bool) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	out := configFile{
		Backend:        cfg.Backend,
		MaxChainLength: cfg.GetMaxChainLength(),
		ContextLines:   cfg.GetContextLines(),
		RegistryFile:   cfg.GetRegistryFile(),
		IDPrefixes:     cfg.GetIDPrefixes(),
	}
	if dataDirExplicit {
		out.DataDir = cfg.DataDir
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	return true, os.WriteFile(path, data, 0o644)
}

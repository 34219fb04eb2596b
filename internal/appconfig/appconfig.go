// Package appconfig loads AuroraView's layered run-time and
// pack-time configuration: defaults, then a YAML file, then
// AURORAVIEW_* environment variables, then CLI flags, in that
// precedence, via viper.
package appconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// RunConfig configures `auroraview run` (spec §6 CLI surface).
type RunConfig struct {
	URL              string `mapstructure:"url"`
	HTML             string `mapstructure:"html"`
	Title            string `mapstructure:"title"`
	Width            int    `mapstructure:"width"`
	Height           int    `mapstructure:"height"`
	Debug            bool   `mapstructure:"debug"`
	AllowNewWindow   bool   `mapstructure:"allow_new_window"`
	AllowFileProtocol bool  `mapstructure:"allow_file_protocol"`
	AlwaysOnTop      bool   `mapstructure:"always_on_top"`
}

// PackConfig mirrors the packer's YAML build-config schema (spec §3,
// §4.2). Field names match the on-disk YAML keys.
type PackConfig struct {
	FrontendPath string            `mapstructure:"frontend_path"`
	EntryPoint   string            `mapstructure:"entry_point"`
	OutputPath   string            `mapstructure:"output_path"`
	Mode         string            `mapstructure:"mode"`
	Offline      bool              `mapstructure:"offline"`
	Scripting    ScriptingConfig   `mapstructure:"scripting"`
	Extensions   []ExtensionConfig `mapstructure:"extensions"`
	Windows      WindowsConfig     `mapstructure:"windows"`
}

// ScriptingConfig mirrors packer.ScriptingBackendConfig's YAML form.
type ScriptingConfig struct {
	Target       string   `mapstructure:"target"`
	IncludePaths []string `mapstructure:"include_paths"`
	ExcludeGlobs []string `mapstructure:"exclude_globs"`
	Packages     []string `mapstructure:"packages"`
	EntryFile    string   `mapstructure:"entry_file"`
	EntryModule  string   `mapstructure:"entry_module"`
	DownloadURL  string   `mapstructure:"download_url"`
}

// ExtensionConfig mirrors packer.ExtensionRef's YAML form.
type ExtensionConfig struct {
	StoreID   string `mapstructure:"store_id"`
	LocalPath string `mapstructure:"local_path"`
}

// WindowsConfig mirrors packer.WindowsResources's YAML form.
type WindowsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	IconPath       string `mapstructure:"icon_path"`
	ProductVersion string `mapstructure:"product_version"`
	FileVersion    string `mapstructure:"file_version"`
	Description    string `mapstructure:"description"`
	Copyright      string `mapstructure:"copyright"`
	GUISubsystem   bool   `mapstructure:"gui_subsystem"`
}

// EnvPrefix is the AURORAVIEW_* environment variable namespace (spec §6).
const EnvPrefix = "AURORAVIEW"

// newViper builds a viper instance wired for defaults -> file -> env,
// leaving flag binding to the caller (cobra owns flag registration).
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("width", 1024)
	v.SetDefault("height", 768)
	v.SetDefault("mode", "frontend-only")
	return v
}

// loadYAMLLayer reads configFile with yaml.v3 and merges it into v as
// the file layer, ahead of the env/flag layers applied by the caller.
// Parsing is done directly with yaml.v3 (rather than letting viper
// read the file itself) so nested blocks (scripting, extensions,
// windows) decode through the same structured-config library the rest
// of the module's build tooling uses.
func loadYAMLLayer(v *viper.Viper, configFile string) error {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	var layer map[string]any
	if err := yaml.Unmarshal(raw, &layer); err != nil {
		return err
	}
	return v.MergeConfigMap(layer)
}

// LoadRunConfig loads RunConfig from an optional YAML file plus
// environment overrides; flagOverrides is applied last (cobra flag
// values already bound by the caller).
func LoadRunConfig(configFile string, flagOverrides map[string]any) (RunConfig, error) {
	v := newViper()
	if configFile != "" {
		if err := loadYAMLLayer(v, configFile); err != nil {
			return RunConfig{}, fmt.Errorf("appconfig: read run config: %w", err)
		}
	}
	for _, key := range []string{"url", "html", "title", "width", "height", "debug", "allow_new_window", "allow_file_protocol", "always_on_top"} {
		_ = v.BindEnv(key)
	}
	for k, val := range flagOverrides {
		v.Set(k, val)
	}

	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return RunConfig{}, fmt.Errorf("appconfig: unmarshal run config: %w", err)
	}
	return cfg, nil
}

// LoadPackConfig loads PackConfig from the packer's YAML build file.
func LoadPackConfig(configFile string, flagOverrides map[string]any) (PackConfig, error) {
	v := newViper()
	if err := loadYAMLLayer(v, configFile); err != nil {
		return PackConfig{}, fmt.Errorf("appconfig: read pack config: %w", err)
	}
	for k, val := range flagOverrides {
		v.Set(k, val)
	}

	var cfg PackConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return PackConfig{}, fmt.Errorf("appconfig: unmarshal pack config: %w", err)
	}
	return cfg, nil
}

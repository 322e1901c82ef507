// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/accton/as9817util/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "as9817util"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// SystemConfigDir is the system-wide configuration directory.
	SystemConfigDir = "/etc/" + AppName
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the per-user configuration directory,
// $XDG_CONFIG_HOME/as9817util (defaulting to ~/.config/as9817util).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, AppName), nil
}

// Load reads the configuration selected by opts and returns it together with
// the path it came from. The path is empty when only defaults were used.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("container_engine", defaults.ContainerEngine)
	v.SetDefault("shell", defaults.Shell)
	v.SetDefault("sysfs_root", defaults.SysfsRoot)
	v.SetDefault("settle_delay", defaults.SettleDelay)
	v.SetDefault("service.container", defaults.Service.Container)
	v.SetDefault("service.python", defaults.Service.Python)
	v.SetDefault("service.timeout", defaults.Service.Timeout)
	v.SetDefault("wheel.package", defaults.Wheel.Package)
	v.SetDefault("wheel.path", defaults.Wheel.Path)

	resolvedPath, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'as9817util config show' to see the effective configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Durations use Go syntax, e.g. \"500ms\" or \"30s\"").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolvePath picks the config file: the explicit path when set (it must
// exist), otherwise the first existing file among the system and user
// locations. An empty result means defaults only.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	systemDir := opts.SystemDirPath
	if systemDir == "" {
		systemDir = SystemConfigDir
	}
	userDir := opts.ConfigDirPath
	if userDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		userDir = dir
	}

	for _, dir := range []string{systemDir, userDir} {
		candidate := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// The file decodes to map[string]any rather than Config so Viper keeps its
// defaults for keys the file leaves out.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := checkFileSize(data, MaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// as9817util configuration\n\n")

	fmt.Fprintf(&sb, "container_engine: %q\n", cfg.ContainerEngine)
	fmt.Fprintf(&sb, "shell: %q\n", cfg.Shell)
	fmt.Fprintf(&sb, "sysfs_root: %q\n", cfg.SysfsRoot)
	fmt.Fprintf(&sb, "settle_delay: %q\n", cfg.SettleDelay.String())

	sb.WriteString("\nservice: {\n")
	fmt.Fprintf(&sb, "\tcontainer: %q\n", cfg.Service.Container)
	fmt.Fprintf(&sb, "\tpython: %q\n", cfg.Service.Python)
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Service.Timeout.String())
	sb.WriteString("}\n")

	sb.WriteString("\nwheel: {\n")
	fmt.Fprintf(&sb, "\tpackage: %q\n", cfg.Wheel.Package)
	fmt.Fprintf(&sb, "\tpath: %q\n", cfg.Wheel.Path)
	sb.WriteString("}\n")

	return sb.String()
}

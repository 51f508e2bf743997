package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	herrors "github.com/matzehuels/heapmeter/pkg/errors"
	"github.com/matzehuels/heapmeter/pkg/sizer"
)

// Config holds the settings read from a heapmeter TOML file. Flags given on
// the command line take precedence over file values.
type Config struct {
	// Mode is the sizing strategy mode name, see sizer.ModeNames.
	Mode string `toml:"mode"`

	// FullBuffer charges buffer-like blocks by backing capacity when true.
	FullBuffer bool `toml:"full-buffer"`

	// Top is the number of per-type rows shown in the measurement table.
	Top int `toml:"top"`

	// Addr is the listen address of the serve command.
	Addr string `toml:"addr"`
}

// defaultConfig returns the settings used when no file is found.
func defaultConfig() Config {
	return Config{
		Mode:       sizer.ModeFallbackBest.String(),
		FullBuffer: true,
		Top:        20,
		Addr:       ":6067",
	}
}

// loadConfig reads the configuration, searching in order: the explicit path
// (when non-empty), ./.heapmeter.toml, then the user config directory. A
// missing file is not an error; a malformed one is.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		found, err := findConfig()
		if err != nil || found == "" {
			return cfg, err
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, herrors.New(herrors.ErrCodeFileNotFound, "config file %s does not exist", path)
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if _, err := sizer.ParseMode(cfg.Mode); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// findConfig returns the first config file present in the search order, or
// "" when none exists.
func findConfig() (string, error) {
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", nil // no home directory, fall back to defaults
	}
	p := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	return "", nil
}

// =============================================================================
// Config Command
// =============================================================================

// configCommand creates the config inspection command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize heapmeter configuration",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			printKeyValue("mode", cfg.Mode)
			printKeyValue("full-buffer", fmt.Sprintf("%t", cfg.FullBuffer))
			printKeyValue("top", fmt.Sprintf("%d", cfg.Top))
			printKeyValue("addr", cfg.Addr)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "explicit config file path")
	return cmd
}

// configPathCommand creates the "config path" subcommand.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file search order",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(configFileName)
			dir, err := configDir()
			if err != nil {
				return err
			}
			fmt.Println(filepath.Join(dir, "config.toml"))
			return nil
		},
	}
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default .heapmeter.toml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configFileName); err == nil {
				printWarning("%s already exists", configFileName)
				return nil
			}

			cfg := defaultConfig()
			var b strings.Builder
			fmt.Fprintf(&b, "mode = %q\n", cfg.Mode)
			fmt.Fprintf(&b, "full-buffer = %t\n", cfg.FullBuffer)
			fmt.Fprintf(&b, "top = %d\n", cfg.Top)
			fmt.Fprintf(&b, "addr = %q\n", cfg.Addr)

			if err := os.WriteFile(configFileName, []byte(b.String()), 0o644); err != nil {
				return err
			}
			printSuccess("Wrote %s", configFileName)
			printNextStep("Adjust the sizing mode", "heapmeter config show")
			return nil
		},
	}
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/0xmhha/token-calendar/pkg/config"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	out io.Writer
	in  io.Reader
}

// Execute runs the config command with given arguments.
func (c *configCommand) Execute(args []string) error {
	if c.in == nil {
		c.in = os.Stdin
	}
	if len(args) == 0 {
		return c.showHelp()
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "show":
		return c.runShow(subargs)
	case "path":
		return c.runPath(subargs)
	case "init":
		return c.runInit(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown config subcommand: %s", subcommand)
	}
}

// runShow displays the effective configuration.
func (c *configCommand) runShow(args []string) error {
	fs := newFlagSet("config show", c.out)
	configPath := fs.String("config", "", "path to configuration file")
	format := fs.String("format", "yaml", "output format (yaml, json)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch *format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintln(c.out, string(data))
		return nil
	case "yaml":
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, "# Effective configuration")
		fmt.Fprintln(c.out, "# Source:", source(loader.Path()))
		fmt.Fprintln(c.out)
		fmt.Fprint(c.out, string(data))
		return nil
	default:
		return fmt.Errorf("unknown format: %s", *format)
	}
}

// runPath lists the configuration file candidates.
func (c *configCommand) runPath(args []string) error {
	fs := newFlagSet("config path", c.out)
	configPath := fs.String("config", "", "path to configuration file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var candidates []string
	if env := os.Getenv(config.EnvConfig); env != "" {
		candidates = append(candidates, env)
	}
	candidates = append(candidates, "./token-calendar.yaml", config.DefaultPath())

	fmt.Fprintln(c.out, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(c.out)

	for i, p := range candidates {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
		}
		fmt.Fprintf(c.out, "  %d. %s [%s]\n", i+1, p, exists)
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Active configuration:", source(config.NewLoader(*configPath).Path()))
	return nil
}

// runInit writes a configuration file holding the defaults.
func (c *configCommand) runInit(args []string) error {
	fs := newFlagSet("config init", c.out)
	force := fs.Bool("force", false, "overwrite without asking")
	output := fs.String("output", "", "config file to write (default: ~/.config/token-calendar/config.yaml)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = config.DefaultPath()
	}

	if _, err := os.Stat(outputPath); err == nil && !*force {
		fmt.Fprintf(c.out, "Configuration file already exists at: %s\n", outputPath)
		fmt.Fprint(c.out, "Overwrite? [y/N]: ")

		response, _ := bufio.NewReader(c.in).ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(c.out, "Init cancelled.")
			return nil
		}
	}

	if err := config.Save(config.Default(), outputPath); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Default configuration written to: %s\n", outputPath)
	return nil
}

func source(path string) string {
	if path == "" {
		return "defaults (no config file found)"
	}
	return path
}

// showHelp displays help for config command.
func (c *configCommand) showHelp() error {
	help := `Config - Configuration management

Usage:
  token-calendar config <subcommand> [flags]

Subcommands:
  show      Display the effective configuration (file, environment, defaults)
  path      Show configuration file paths
  init      Write a configuration file with the defaults

Show Flags:
  -config   Path to configuration file
  -format   Output format (yaml, json) (default: yaml)

Init Flags:
  -force    Overwrite an existing file without asking
  -output   Path of the file to write

Environment:
  TOKEN_CALENDAR_CONFIG        Configuration file
  TOKEN_CALENDAR_SEARCH_PATHS  Comma-separated search roots
  TOKEN_CALENDAR_TZ_OFFSET     UTC offset in hours
  TOKEN_CALENDAR_DB            Snapshot database
  TOKEN_CALENDAR_LOG_LEVEL     Log level
`
	fmt.Fprint(c.out, help)
	return nil
}

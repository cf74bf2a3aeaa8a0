package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/config"
	"github.com/derickschaefer/bazi/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage bazi configuration",
	Long:  `Read and write bazi configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Edit base_url if the service does not run on localhost:8000.")
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.APIURL)
		if err != nil {
			return err
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		user := cfg.UserID
		if user == "" {
			user = "(not set)"
		}

		format := cfg.Format
		if globalFlags.Format != "" {
			format = globalFlags.Format
		}

		switch format {
		case render.FormatJSON:
			type configOut struct {
				BaseURL     string  `json:"base_url"`
				Format      string  `json:"default_format"`
				Timeout     string  `json:"timeout"`
				Concurrency int     `json:"concurrency"`
				Rate        float64 `json:"rate"`
				DBPath      string  `json:"db_path"`
				UserID      string  `json:"user_id"`
				ConfigFile  string  `json:"config_file"`
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				BaseURL:     cfg.BaseURL,
				Format:      cfg.Format,
				Timeout:     cfg.Timeout.String(),
				Concurrency: cfg.Concurrency,
				Rate:        cfg.Rate,
				DBPath:      cfg.DBPath,
				UserID:      cfg.UserID,
				ConfigFile:  src,
			})
		default:
			rows := [][]string{
				{"base_url", cfg.BaseURL},
				{"default_format", cfg.Format},
				{"timeout", cfg.Timeout.String()},
				{"concurrency", strconv.Itoa(cfg.Concurrency)},
				{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
				{"db_path", cfg.DBPath},
				{"user_id", user},
				{"config_file", src},
			}
			printKVTable(cmd.OutOrStdout(), rows)
			return nil
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Example: `  bazi config set base_url http://10.0.0.5:8000
  bazi config set user_id test_user_001
  bazi config set default_format json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		val := args[1]

		// Load existing file or start from template
		path := config.DefaultConfigFile
		f := config.Template()
		if existing, err := config.ReadFile(path); err == nil {
			f = *existing
		} else if !os.IsNotExist(err) {
			return err
		}

		if err := setConfigKey(&f, key, val); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		if key == "base_url" {
			fmt.Fprintf(cmd.OutOrStdout(), "  Endpoint: %s\n", f.BaseURL)
		}
		return nil
	},
}

// setConfigKey validates val and stores it under key.
func setConfigKey(f *config.File, key, val string) error {
	switch key {
	case "base_url":
		f.BaseURL = config.NormalizeBaseURL(val)
	case "default_format", "format":
		if !render.ValidFormat(val) {
			return fmt.Errorf("unknown format %q (valid: %s)", val, strings.Join(render.Formats, ", "))
		}
		f.DefaultFormat = val
	case "timeout":
		f.Timeout = val
	case "concurrency":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return fmt.Errorf("concurrency must be a positive integer")
		}
		f.Concurrency = n
	case "rate":
		r, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("rate must be a number")
		}
		f.Rate = r
	case "db_path":
		f.DBPath = val
	case "user_id":
		f.UserID = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: base_url, default_format, timeout, concurrency, rate, db_path, user_id", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

// printKVTable renders a two-column key/value table using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

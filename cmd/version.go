package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the release string. Release builds overwrite it via:
//
//	go build -ldflags "-X github.com/derickschaefer/bazi/cmd.Version=v0.3.0"
var Version = "v0.2.0"

// BuildTime is optionally injected at build time alongside Version:
//
//	-ldflags "-X github.com/derickschaefer/bazi/cmd.BuildTime=2026-10-01T12:00:00Z"
var BuildTime = ""

// versionInfo is the structured payload for --format json output.
type versionInfo struct {
	Version       string `json:"version"`
	GoVersion     string `json:"go_version"`
	GOOS          string `json:"goos"`
	GOARCH        string `json:"goarch"`
	BuildTime     string `json:"build_time,omitempty"`
	ServerURL     string `json:"server_url,omitempty"`
	ServerVersion string `json:"server_version,omitempty"`
}

var versionServer bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bazi version and build information",
	Long: `Print the bazi version string and build metadata.

Default output is plain text, suitable for shell scripts and pipelines.
Use --format json for structured output and --server to include the
version reported by the calculation service.`,
	Example: `  bazi version
  bazi version --server
  bazi version --format json | jq .version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:   Version,
			GoVersion: runtime.Version(),
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			BuildTime: BuildTime,
		}

		if versionServer {
			deps, err := buildDeps()
			if err != nil {
				return err
			}
			info.ServerURL = deps.Endpoint.BaseURL
			h, err := deps.Client.Health(cmd.Context(), deps.Endpoint)
			if err != nil {
				return fmt.Errorf("querying server version: %w", err)
			}
			info.ServerVersion = h.Version
			if info.ServerVersion == "" {
				info.ServerVersion = "unknown"
			}
		}

		w := cmd.OutOrStdout()
		switch globalFlags.Format {
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(info)

		case "jsonl":
			b, err := json.Marshal(info)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\n", b)
			return nil

		default:
			// one value per line, grep/awk friendly
			fmt.Fprintf(w, "bazi    %s\n", info.Version)
			fmt.Fprintf(w, "go      %s\n", info.GoVersion)
			fmt.Fprintf(w, "os      %s/%s\n", info.GOOS, info.GOARCH)
			if info.BuildTime != "" {
				fmt.Fprintf(w, "built   %s\n", info.BuildTime)
			}
			if info.ServerURL != "" {
				fmt.Fprintf(w, "server  %s %s\n", info.ServerVersion, info.ServerURL)
			}
			return nil
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionServer, "server", false, "also query the service version from /health")
	rootCmd.AddCommand(versionCmd)
}

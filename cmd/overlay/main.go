package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-overlay/internal/config"
	"github.com/joeblew999/plat-overlay/internal/logging"
	"github.com/joeblew999/plat-overlay/internal/server"
)

// Options defines all CLI flags and env vars for the overlay server.
// Flags: --host, --port, --data-dir, --web-dir, --config, --source-url, --log-level, --eager
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory holding the overlay feature files" default:".data"`
	WebDir    string `doc:"Optional web/ directory overriding the built-in viewer" default:""`
	Config    string `doc:"Overlay catalog file" short:"c" default:"overlays.yaml"`
	SourceURL string `doc:"Fetch overlay features from this base URL instead of the data directory" default:""`
	LogLevel  string `doc:"Log level (debug, info, warn, error)" default:"info"`
	Eager     bool   `doc:"Load every overlay at startup" default:"true"`
}

func newServer(opts *Options) (*server.Server, error) {
	catalog, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Config, err)
	}

	log := logging.New(opts.LogLevel)
	if names := catalog.Overridden(); len(names) > 0 {
		log.Info().Strs("overlays", names).Str("config", opts.Config).Msg("overlay resources overridden")
	}

	return server.New(server.Config{
		Host:      opts.Host,
		Port:      fmt.Sprintf("%d", opts.Port),
		DataDir:   opts.DataDir,
		WebDir:    opts.WebDir,
		SourceURL: opts.SourceURL,
		Catalog:   catalog,
		Logger:    log,
	}), nil
}

func mustServer(opts *Options) *server.Server {
	srv, err := newServer(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

func main() {
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server

		hooks.OnStart(func() {
			srv = mustServer(opts)
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-overlay server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			if opts.Eager {
				// Failures are logged per overlay; the server still starts.
				go srv.Bootstrap(context.Background())
			}

			if err := http.ListenAndServe(addr, srv); err != nil {
				fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
				os.Exit(1)
			}
		})
	})

	cli.Root().Use = "overlay"
	cli.Root().Short = "Thematic map overlays with hover popups"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := mustServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// load subcommand: fetch every overlay once and report
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Fetch every overlay once and print feature counts",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := mustServer(opts)

			err := srv.Bootstrap(cmd.Context())
			for _, st := range srv.Overlays().List() {
				if st.Error != "" {
					fmt.Printf("%-11s %-9s %s\n", st.Name, st.State, st.Error)
					continue
				}
				fmt.Printf("%-11s %-9s %d features\n", st.Name, st.State, st.Features)
			}
			srv.Close()
			if err != nil {
				os.Exit(1)
			}
		}),
	}
	cli.Root().AddCommand(loadCmd)

	cli.Run()
}

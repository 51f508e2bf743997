package cli

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heapmeter/pkg/meterui"
	"github.com/matzehuels/heapmeter/pkg/store"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		noStore    bool
	)

	cmd := &cobra.Command{
		Use:   "serve <file.json>...",
		Short: "Expose JSON documents over the debug HTTP surface",
		Long: `Serve registers each document as a measurement root and starts the
debug HTTP surface. Roots are listed at /, scanned with POST /scan/{name},
and stored reports are fetched from /report/{id}.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlag(cmd, "addr", func() { cfg.Addr = addr })

			m, err := buildMeter(cfg)
			if err != nil {
				return err
			}

			st := newReportStore(noStore)
			defer st.Close()
			srv := meterui.New(m, st, logger)

			for _, path := range args {
				root, err := loadRoot(path)
				if err != nil {
					return err
				}
				name := rootName(path)
				if err := srv.AddRoot(name, root); err != nil {
					return err
				}
				printInfo("Registered %s as %s", path, StyleHighlight.Render(name))
			}

			httpSrv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpSrv.ListenAndServe()
			}()

			printSuccess("Listening on %s", StyleHighlight.Render(cfg.Addr))
			printDetail("%d roots registered", len(args))
			printNextStep("Scan a root", "curl -X POST localhost"+cfg.Addr+"/scan/"+rootName(args[0]))

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				logger.Info("shutting down")
				return httpSrv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "explicit config file path")
	cmd.Flags().StringVar(&addr, "addr", defaultConfig().Addr, "listen address")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable report persistence")
	return cmd
}

// newReportStore builds the report store for the serve command, falling
// back to no persistence when the cache directory is unavailable.
func newReportStore(noStore bool) store.Store {
	if noStore {
		return store.NewNullStore()
	}
	dir, err := cacheDir()
	if err != nil {
		return store.NewNullStore()
	}
	st, err := store.NewFileStore(dir)
	if err != nil {
		return store.NewNullStore()
	}
	return st
}

// rootName derives the registration name from a file path: the base name
// without its extension.
func rootName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/heapbind/binding"
	"github.com/wippyai/heapbind/config"
	"github.com/wippyai/heapbind/feature"
	"github.com/wippyai/heapbind/registry"
	"github.com/wippyai/heapbind/wasmheap"
)

const envPrefix = "HEAPBIND"

var opts struct {
	configPath   string
	imagePath    string
	metadataPath string
	metricsAddr  string
	memoryPages  uint32
	wasi         bool
	verbose      bool
}

var (
	log     = zap.NewNop()
	metrics = prometheus.NewRegistry()
)

var rootCmd = &cobra.Command{
	Use:           "heapbind",
	Short:         "Inspect and edit objects in a foreign managed heap",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := SetFlagsFromEnv(cmd.Flags(), envPrefix); err != nil {
			return err
		}
		if err := setupLogging(opts.verbose); err != nil {
			return err
		}
		if opts.metricsAddr != "" {
			serveMetrics(opts.metricsAddr)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "binding configuration file (YAML or JSON)")
	pf.StringVar(&opts.imagePath, "image", "", "guest wasm module, overrides the config's image")
	pf.StringVar(&opts.metadataPath, "metadata", "", "type metadata file, overrides the config's metadata")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	pf.Uint32Var(&opts.memoryPages, "memory-limit-pages", 0, "cap guest memory in 64KiB pages, 0 for no limit")
	pf.BoolVar(&opts.wasi, "wasi", true, "instantiate wasi_snapshot_preview1 for the guest")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "development logging at debug level")

	metrics.MustRegister(collectors.NewGoCollector())

	rootCmd.AddCommand(
		classesCmd(),
		getCmd(),
		setCmd(),
		staticCmd(),
		arrayCmd(),
		featuresCmd(),
		capabilitiesCmd(),
		browseCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) error {
	var err error
	if verbose {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	binding.SetLogger(log.Named("binding"))
	registry.SetLogger(log.Named("registry"))
	wasmheap.SetLogger(log.Named("wasmheap"))
	config.SetLogger(log.Named("config"))
	feature.SetLogger(log.Named("feature"))
	return nil
}

func serveMetrics(addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

// SetFlagsFromEnv sets every flag not given on the command line from the
// environment. HEAPBIND_SOME_FLAG sets --some-flag.
func SetFlagsFromEnv(fs *pflag.FlagSet, prefix string) (err error) {
	alreadySet := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		alreadySet[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		if alreadySet[f.Name] {
			return
		}
		key := prefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if val := os.Getenv(key); val != "" {
			if serr := fs.Set(f.Name, val); serr != nil {
				err = fmt.Errorf("invalid value %q for %s: %w", val, key, serr)
			}
		}
	})
	return err
}

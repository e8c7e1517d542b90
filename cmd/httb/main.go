package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/frankli0324/go-httb/internal"
	"github.com/frankli0324/go-httb/internal/config"
	"github.com/frankli0324/go-httb/internal/logging"
	"github.com/frankli0324/go-httb/internal/metrics"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app is what the subcommands share once the configuration is settled.
type app struct {
	cfg      config.Config
	cfgPath  string
	log      zerolog.Logger
	registry *prometheus.Registry
	client   *internal.Client
}

// setup applies the config file and the environment under the flags
// set on cmd, then builds the client.
func (a *app) setup(cmd *cobra.Command) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := config.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	log, err := a.cfg.Logger()
	if err != nil {
		return err
	}
	a.log = log
	a.log.Debug().Interface("config", a.cfg).Msg("configuration")

	a.registry = prometheus.NewRegistry()
	m, err := metrics.New(a.registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	opts, err := a.cfg.Options(a.log, m)
	if err != nil {
		return err
	}
	a.client = internal.New(opts...)
	return nil
}

func main() {
	a := &app{cfg: config.Default(), log: logging.Must("", logging.FormatConsole, os.Stderr)}

	root := &cobra.Command{
		Use:           "httb",
		Short:         "A small HTTP/1.1 client with per-phase error reporting",
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.httb/config.toml)")
	pf.BoolVarP(&a.cfg.Verbose, "verbose", "v", a.cfg.Verbose, "log every phase of every request")
	pf.DurationVar(&a.cfg.ConnectTimeout, "connect-timeout", a.cfg.ConnectTimeout, "deadline for resolve, connect and TLS handshake")
	pf.DurationVar(&a.cfg.ReadTimeout, "read-timeout", a.cfg.ReadTimeout, "deadline for writing the request and reading the response")
	pf.BoolVar(&a.cfg.FollowRedirects, "follow-redirects", a.cfg.FollowRedirects, "follow 301, 302, 307 and 308 responses")
	pf.IntVar(&a.cfg.MaxBounces, "max-bounces", a.cfg.MaxBounces, "maximum number of redirects followed")
	pf.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level")
	pf.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "log format, console or json")
	pf.StringVar(&a.cfg.TrustDir, "trust-dir", a.cfg.TrustDir, "directory of .crt/.pem root certificates")
	pf.StringVar(&a.cfg.TrustPEM, "trust-pem", a.cfg.TrustPEM, "PEM bundle of root certificates")
	pf.StringVar(&a.cfg.Proxy, "proxy", a.cfg.Proxy, "http, https, socks5 or socks5h proxy URL")
	pf.BoolVar(&a.cfg.ResolveLocally, "resolve-locally", a.cfg.ResolveLocally, "resolve target hosts before handing them to the proxy")
	pf.StringVar(&a.cfg.DNSServer, "dns-server", a.cfg.DNSServer, "DNS server to use, host:port")
	pf.StringVar(&a.cfg.DNSNetwork, "dns-network", a.cfg.DNSNetwork, "ip, ip4 or ip6")

	root.AddCommand(newGetCommand(a), newBatchCommand(a))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		a.log.Error().Err(err).Msg("httb")
		stop()
		os.Exit(1)
	}
}

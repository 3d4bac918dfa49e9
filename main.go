package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bigkevmcd/host-deployer/controllers"
	"github.com/bigkevmcd/host-deployer/pkg/build"
	"github.com/bigkevmcd/host-deployer/pkg/command"
	"github.com/bigkevmcd/host-deployer/pkg/config"
	"github.com/bigkevmcd/host-deployer/pkg/git"
	"github.com/bigkevmcd/host-deployer/pkg/metrics"
	"github.com/bigkevmcd/host-deployer/pkg/pipelines"
	"github.com/bigkevmcd/host-deployer/pkg/secrets"
	"github.com/bigkevmcd/host-deployer/pkg/service"
	"github.com/bigkevmcd/host-deployer/pkg/workspace"
)

const defaultGenerateOutput = "deployer.toml"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) > 0 && args[0] == "generate" {
		return generate(args[1:], out)
	}
	return serve(args)
}

func serve(args []string) error {
	var (
		configPath  string
		dev         bool
		metricsAddr string
		once        bool
	)
	flagSet := pflag.NewFlagSet("host-deployer", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", config.DefaultPath, "path to the configuration file (.toml, .yaml or .jsonc)")
	flagSet.BoolVar(&dev, "dev", false, "log human readable output at debug level")
	flagSet.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flagSet.BoolVar(&once, "once", false, "poll and deploy once, then exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	zl, err := newZapLogger(dev)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zl.Sync()
	setupLog := zapr.NewLogger(zl).WithName("deployer")

	cfg, err := config.Load(configPath)
	if err != nil {
		setupLog.Error(err, "Loading the configuration failed")
		return err
	}
	tokens, err := secrets.New(cfg.Token, cfg.TokenFile)
	if err != nil {
		return err
	}
	repo, err := git.ParseRepositoryURL(cfg.Repository)
	if err != nil {
		setupLog.Error(err, "Parsing the repo from the URL failed", "repoURL", cfg.Repository)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New()
	if metricsAddr != "" {
		go serveMetrics(ctx, setupLog.WithName("metrics"), metricsAddr, recorder.Handler())
	}

	watcher := makeWatcher(cfg, repo, tokens, recorder, setupLog)
	if once {
		_, err = watcher.Poll(ctx, controllers.WatchState{})
	} else {
		err = watcher.Run(ctx)
	}
	if err != nil {
		setupLog.Error(err, "Watching the repository failed")
	}
	return err
}

func makeWatcher(cfg config.Config, repo git.RepositoryRef, tokens secrets.TokenSource, rec metrics.Recorder, l logr.Logger) *controllers.Watcher {
	runner := command.New(l.WithName("command"))
	materializer := workspace.New(git.NewCloner(l.WithName("git")), cfg.PullDir, l.WithName("workspace"))
	pipeline := pipelines.NewRunner(cfg, repo,
		materializer,
		build.NewDispatcher(runner, l.WithName("build")),
		service.NewReconciler(runner, cfg.SysSvcDir, l.WithName("service")),
		tokens, rec, l.WithName("pipeline"))

	return &controllers.Watcher{
		Log:            l.WithName("watcher"),
		Repository:     repo,
		Branch:         cfg.Branch,
		Provider:       cfg.GetProvider(),
		APIURL:         cfg.APIURL,
		Interval:       cfg.GetPollInterval(),
		PollerFactory:  controllers.MakeCommitPoller,
		PipelineRunner: pipeline,
		Tokens:         tokens,
		Metrics:        rec,
	}
}

func generate(args []string, out io.Writer) error {
	var (
		output string
		force  bool
	)
	flagSet := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	flagSet.StringVarP(&output, "output", "o", defaultGenerateOutput, "file to write, the format is chosen by the extension")
	flagSet.BoolVar(&force, "force", false, "overwrite an existing file")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", output)
	}
	if err := config.Save(output, config.Default()); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(out, "Wrote an example configuration to %s, edit it before starting the deployer.\n", output)
	return nil
}

func newZapLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func serveMetrics(ctx context.Context, log logr.Logger, addr string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err, "Metrics server failed")
	}
}

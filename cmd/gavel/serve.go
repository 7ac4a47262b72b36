package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ezachrisen/gavel"
	"github.com/ezachrisen/gavel/cel"
	"github.com/ezachrisen/gavel/internal/config"
	"github.com/ezachrisen/gavel/internal/logging"
	"github.com/ezachrisen/gavel/internal/metrics"
	"github.com/ezachrisen/gavel/internal/server"
	"github.com/ezachrisen/gavel/internal/watch"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP rule service",
		Long: `Run the HTTP rule service.

Configuration is read from the file given with --config, if any, and from
GAVEL_* environment variables, e.g. GAVEL_SERVER_LISTEN_ADDRESS=:8080.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfgFile, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	return cmd
}

// serve runs the server, and the rule file watcher if configured, until ctx
// is cancelled or one of them fails.
func serve(ctx context.Context, cfgFile string, logOut io.Writer) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	log, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		return err
	}

	evaluator, err := newEvaluator(cfg.Evaluator.Backend)
	if err != nil {
		return err
	}
	vault := gavel.NewVault(
		gavel.WithEvaluator(evaluator),
		gavel.WithCompileOptions(gavel.MaxDepth(cfg.Rule.MaxDepth)),
	)

	opts := []server.Option{server.WithConfig(cfg.Server), server.WithLogger(log)}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(metrics.New(cfg.Metrics.Namespace), cfg.Metrics.Path))
	}
	srv, err := server.New(vault, opts...)
	if err != nil {
		return err
	}

	switch {
	case cfg.Rule.File != "":
		if err := loadRuleFile(srv, cfg.Rule.File); err != nil {
			return err
		}
	case cfg.Rule.Text != "":
		if _, err := srv.Compile(cfg.Rule.Text, "config"); err != nil {
			return errors.Wrap(err, "compiling rule.text")
		}
	}

	log.WithFields(logrus.Fields{
		"backend": cfg.Evaluator.Backend,
		"metrics": cfg.Metrics.Enabled,
	}).Info("starting gavel")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if cfg.Rule.Watch {
		w := watch.New(cfg.Rule.File, cfg.Rule.Debounce, log)
		g.Go(func() error {
			return w.Run(ctx, func() {
				if err := loadRuleFile(srv, cfg.Rule.File); err != nil {
					log.WithError(err).Warn("keeping the previous rule")
				}
			})
		})
	}
	return g.Wait()
}

func loadRuleFile(srv *server.Server, path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading rule file")
	}
	if _, err := srv.Compile(string(text), path); err != nil {
		return errors.Wrapf(err, "compiling rule file %s", path)
	}
	return nil
}

func newEvaluator(backend string) (gavel.Evaluator, error) {
	switch backend {
	case "native", "":
		return gavel.Interpreter{}, nil
	case "cel":
		return cel.NewEvaluator(), nil
	default:
		return nil, fmt.Errorf("unknown evaluator backend %q; use native or cel", backend)
	}
}

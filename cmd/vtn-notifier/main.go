package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/vtn/pkg/httpserver"
	"github.com/dmitrymomot/vtn/pkg/jwt"
	"github.com/dmitrymomot/vtn/pkg/logger"
	"github.com/dmitrymomot/vtn/pkg/notifier"
	"github.com/dmitrymomot/vtn/pkg/vtn"
)

func main() {
	configFile := flag.String("config", os.Getenv("VTN_CONFIG_FILE"), "path to a YAML config file")
	issue := flag.String("issue-token", "", "print an access token for the given client ID and exit")
	flag.Parse()

	if err := run(*configFile, *issue); err != nil {
		slog.Error("vtn-notifier stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(configFile, issueFor string) error {
	cfg, err := vtn.LoadConfig(configFile)
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(vtn.RequestIDExtractor),
	)
	logger.SetAsDefault(log)

	tokens, err := jwt.New(cfg.Auth)
	if err != nil {
		return err
	}
	if issueFor != "" {
		token, err := tokens.Issue(issueFor, jwt.Role{Role: jwt.RoleVEN, ID: issueFor})
		if err != nil {
			return err
		}
		_, err = fmt.Println(token)
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	n, err := notifier.New(cfg.Notifier,
		notifier.WithLogger(log),
		notifier.WithMetrics(notifier.NewMetrics(reg)),
		notifier.WithIdentifier(vtn.ClientIdentifier),
	)
	if err != nil {
		return err
	}

	router := vtn.NewRouter(vtn.RouterConfig{
		Notifier: n,
		Tokens:   tokens,
		Logger:   log,
		Gatherer: reg,
	})

	log.Info("notifier configured",
		slog.Int("buffer_capacity", cfg.Notifier.BufferCapacity),
		slog.String("backpressure", cfg.Notifier.Backpressure.String()),
		slog.Duration("idle_timeout", cfg.Notifier.IdleTimeout),
	)

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithDrainer(n.Close),
	)
	return srv.Run(context.Background(), router)
}

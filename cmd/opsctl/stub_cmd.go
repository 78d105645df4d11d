package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/opsauth/internal/rate"
	"github.com/MrEthical07/opsauth/internal/stubapi"
)

type stubOptions struct {
	listen        string
	accessTTL     time.Duration
	throttle      bool
	throttleRedis string
	maxFailures   int
}

func stubServerCmd(opts *globalOptions) *cobra.Command {
	so := &stubOptions{}
	cmd := &cobra.Command{
		Use:   "stub-server",
		Short: "Run a local authentication API seeded with demo accounts",
		Long: "Serve /auth/login, /auth/register, /auth/logout and /auth/me for local development.\n" +
			"Demo accounts: admin@x.com/admin123, ops@x.com/ops1234, agent@x.com/agent123, traveller@x.com/travel123.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			logger, err := opts.logger(cmd, cfg)
			if err != nil {
				return err
			}

			handler, cleanup, err := so.build(logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return serve(cmd.Context(), so.listen, handler, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&so.listen, "listen", "127.0.0.1:8000", "address to listen on")
	f.DurationVar(&so.accessTTL, "access-ttl", time.Hour, "lifetime of issued access tokens")
	f.BoolVar(&so.throttle, "throttle", false, "throttle repeated failed logins")
	f.StringVar(&so.throttleRedis, "throttle-redis", "", "redis address for the login throttle (default in-process)")
	f.IntVar(&so.maxFailures, "max-failures", rate.DefaultConfig().MaxFailures, "failed logins allowed per window when throttling")
	return cmd
}

// build returns the stub API handler and a func releasing the throttle's
// redis resources.
func (so *stubOptions) build(logger *log.Logger) (http.Handler, func(), error) {
	cleanup := func() {}
	var limiter *rate.Limiter

	if so.throttle {
		client, release, err := so.throttleClient(logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = release

		rc := rate.DefaultConfig()
		rc.MaxFailures = so.maxFailures
		limiter, err = rate.New(client, rc)
		if err != nil {
			release()
			return nil, nil, err
		}
	}

	api, err := stubapi.NewDemo(stubapi.DemoConfig{
		AccessTTL: so.accessTTL,
		Limiter:   limiter,
		Logger:    logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return api.Handler(), cleanup, nil
}

func (so *stubOptions) throttleClient(logger *log.Logger) (redis.UniversalClient, func(), error) {
	if so.throttleRedis != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{so.throttleRedis}})
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start in-process redis: %w", err)
	}
	logger.Info("login throttle using in-process redis", "addr", mr.Addr())
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stub API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stub API stopped")
	return nil
}

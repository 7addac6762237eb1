package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/modcore/modcore/internal/config"
	"github.com/modcore/modcore/internal/introspect"
	"github.com/modcore/modcore/internal/logger"
	"github.com/modcore/modcore/internal/module"
	"github.com/modcore/modcore/internal/runtime"
)

var manifestPath string

func main() {
	root := &cobra.Command{
		Use:   "modcored",
		Short: "modcored runs a plug-in module graph to completion",
		RunE:  run,
	}
	root.Flags().StringVarP(&manifestPath, "manifest", "m", "", "path to a YAML configuration manifest (optional)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(manifestPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Initialize(cfg.LogLevel, cfg.LogPretty)
	log := logger.Runtime()

	rt := runtime.New(runtime.Options{
		SearchPath: cfg.SearchPath,
		SeedModule: cfg.SeedModule,
		Binder:     module.NewPluginBinder(),
	})

	var srv *http.Server
	var eg errgroup.Group

	if cfg.IntrospectPort != 0 {
		dbg := introspect.New(rt.Modules, rt.Hooks, rt.XCalls, rt.Timers)
		rt.Modules.SetEventSink(func(event, name string) {
			dbg.Broadcast(gin.H{"event": event, "module": name})
		})
		router := gin.New()
		router.Use(gin.Recovery())
		dbg.Attach(router.Group("/"))

		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.IntrospectPort),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		eg.Go(func() error {
			log.Info().Int("port", cfg.IntrospectPort).Msg("introspection server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				rt.Timers.RequestGracefulExit()
				return err
			}
			return nil
		})
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal, requesting graceful exit")
		rt.Timers.RequestGracefulExit()
	}()

	eg.Go(func() error {
		err := rt.Run()
		if srv != nil {
			log.Info().Msg("shutting down introspection server")
			_ = srv.Close()
		}
		return err
	})

	return eg.Wait()
}

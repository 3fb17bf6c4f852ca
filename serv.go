package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/model-collapse/split-count/api"
	"github.com/model-collapse/split-count/config"
	"github.com/model-collapse/split-count/detect"
	"github.com/model-collapse/split-count/logger"
	"github.com/model-collapse/split-count/render"
	"github.com/model-collapse/split-count/service"
	"github.com/model-collapse/split-count/store"
)

func main() {
	app := &cli.App{
		Name:  "split-count",
		Usage: "count people on each side of a frame",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "./conf.yaml",
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(c *cli.Context) (err error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	lg, err := logger.New(c.Bool("debug"))
	if err != nil {
		return err
	}
	defer lg.Sync()

	svc, det, err := build(cfg, lg)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(det))

	if r, ok := det.(*detect.Remote); ok {
		if err := r.CheckHealth(c.Context); err != nil {
			lg.Warn("inference service not available", zap.Error(err))
		}
	}

	srv := api.NewServer(api.NewHandler(svc, lg), cfg.MaxUploadMB<<20)
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		lg.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			lg.Error("shutdown", zap.Error(err))
		}
	}()

	lg.Info("serving",
		zap.String("addr", addr),
		zap.String("detector", cfg.Detector),
		zap.String("renderer", cfg.Renderer),
		zap.Float64("margin", cfg.Margin))

	return errors.Wrap(srv.ListenAndServe(addr), "listen")
}

// build wires the detector, renderer and store described by cfg.
func build(cfg config.Config, lg *zap.Logger) (*service.Service, detect.Detector, error) {
	rend, err := render.New(cfg.Renderer)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.New(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		return nil, nil, err
	}

	det, err := detect.New(cfg.DetectorConfig(), lg.Named("detect"))
	if err != nil {
		return nil, nil, err
	}

	return service.New(cfg.ServiceConfig(), det, rend, st, lg.Named("service")), det, nil
}

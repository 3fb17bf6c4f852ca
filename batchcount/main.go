// Command batchcount runs every image in a directory through the counting
// pipeline and writes a JSON report.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/model-collapse/split-count/config"
	"github.com/model-collapse/split-count/detect"
	"github.com/model-collapse/split-count/logger"
	"github.com/model-collapse/split-count/render"
	"github.com/model-collapse/split-count/service"
	"github.com/model-collapse/split-count/store"
)

func main() {
	app := &cli.App{
		Name:      "batchcount",
		Usage:     "count people left and right of the split for every .jpg, .jpeg, .png, .bmp or .webp file in a directory",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "./conf.yaml", Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "report", Value: "report.json", Usage: "write the report to `FILE`"},
			&cli.IntFlag{Name: "workers", Value: 10, Usage: "images processed concurrently"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) (err error) {
	if c.NArg() != 1 {
		return errors.New("expected exactly one input directory")
	}
	dir := c.Args().First()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	lg, err := logger.New(c.Bool("debug"))
	if err != nil {
		return err
	}
	defer lg.Sync()

	rend, err := render.New(cfg.Renderer)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		return err
	}

	det, err := detect.New(cfg.DetectorConfig(), lg.Named("detect"))
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(det))

	svc := service.New(cfg.ServiceConfig(), det, rend, st, lg.Named("service"))

	files, err := ListImages(dir)
	if err != nil {
		return err
	}
	lg.Info("images found", zap.Int("count", len(files)))

	report := process(c.Context, svc, dir, files, c.Int("workers"), lg)
	if err := report.Save(c.String("report")); err != nil {
		return err
	}

	lg.Info("done",
		zap.Int("left", report.Left),
		zap.Int("right", report.Right),
		zap.Int("failed", report.Failed))
	fmt.Printf("left=%d right=%d failed=%d\n", report.Left, report.Right, report.Failed)

	return nil
}

func process(ctx context.Context, svc *service.Service, dir string, files []string, workers int, lg *zap.Logger) *Report {
	if workers < 1 {
		workers = 1
	}

	report := &Report{}

	chFiles := make(chan string, 100)
	go func() {
		for _, f := range files {
			chFiles <- f
		}

		close(chFiles)
	}()

	wg := sync.WaitGroup{}
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for name := range chFiles {
				res := countOne(ctx, svc, dir, name)
				if res.Error != "" {
					lg.Warn("image failed", zap.String("file", name), zap.String("error", res.Error))
				}
				report.Add(res)
			}
		}()
	}

	wg.Wait()
	return report
}

func countOne(ctx context.Context, svc *service.Service, dir, name string) (res ImageResult) {
	res.FileName = name

	defer func() {
		if e := recover(); e != nil {
			res.Error = fmt.Sprintf("panic: %v\n%s", e, debug.Stack())
		}
	}()

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		res.Error = err.Error()
		return
	}

	out, err := svc.Count(ctx, service.Upload{Filename: name, Data: data})
	if err != nil {
		res.Error = err.Error()
		return
	}

	res.Output = out.OutputName
	res.Left = out.Left
	res.Right = out.Right
	res.Detections = out.Detections
	return
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/krau/bananaripe/config"
	"github.com/krau/bananaripe/metrics"
	"github.com/krau/bananaripe/onnx"
	"github.com/krau/bananaripe/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := config.Init(); err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		return 1
	}
	cfg := config.C()
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	slog.Info("Starting bananaripe", slog.String("backend", cfg.Backend), slog.String("model", cfg.ModelPath()))

	if err := onnx.Init(onnx.LibPath(cfg.Libonnx, cfg.BaseDir)); err != nil {
		slog.Error("Failed to initialize ONNX Runtime", slog.String("error", err.Error()))
		return 1
	}
	defer onnx.Shutdown()

	recorder := metrics.New()
	engine, err := service.Load(cfg, service.WithObserver(recorder), service.WithLogger(log))
	if err != nil {
		slog.Error("Failed to load classifier", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Error("Failed to release model", slog.String("error", err.Error()))
		}
	}()
	defer logSummary(recorder)

	spec := engine.Spec()
	slog.Info("Model loaded",
		slog.String("model", spec.Name),
		slog.String("input", fmt.Sprintf("%dx%d %s", spec.Width, spec.Height, spec.Layout)),
		slog.Any("classes", engine.Classes().Names()),
	)

	if len(os.Args) > 1 {
		code := 0
		for _, path := range os.Args[1:] {
			msg := Render(engine.Classify(path))
			fmt.Println(msg)
			if msg.Severity != SeverityInfo {
				code = 1
			}
		}
		return code
	}

	if err := prompt(ctx, engine, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		slog.Error("Failed to read input", slog.String("error", err.Error()))
		return 1
	}
	fmt.Println()
	slog.Info("shutting down")
	return 0
}

func logSummary(r *metrics.Recorder) {
	lines, err := r.Summary()
	if err != nil {
		slog.Error("Failed to gather metrics", slog.String("error", err.Error()))
		return
	}
	for _, l := range lines {
		slog.Info("metric", slog.String("value", l))
	}
}

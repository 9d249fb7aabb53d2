// Package main - точка входа фонового процесса (Worker) level-manager.
//
// Worker периодически приводит прогресс всех учеников в соответствие
// с текущим каталогом тем, уровней и генераторов заданий.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quiz-hub/level-manager/config"
	"github.com/quiz-hub/level-manager/internal/bootstrap"
	"github.com/quiz-hub/level-manager/internal/infrastructure/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := bootstrap.NewLogger(cfg, os.Stdout)
	log.Info("starting level-manager worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩА, СЕРВИС, ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer func() {
		log.Info("closing connections...")
		app.Close()
	}()

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled, running a single refresh")
		return app.Refresh.Run(ctx)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{Logger: log})
	if err := sched.Register(app.Refresh, scheduler.Every(cfg.Scheduler.RefreshInterval)); err != nil {
		return fmt.Errorf("failed to register job: %w", err)
	}

	// Первый прогон сразу, не дожидаясь интервала.
	if _, err := sched.RunNow(ctx, app.Refresh.Name()); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("initial refresh failed", "error", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("worker is running", "refresh_interval", cfg.Scheduler.RefreshInterval.String())

	// ─────────────────────────────────────────────────────────────────────────
	// 4. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("received shutdown signal, stopping...", "timeout", cfg.App.ShutdownTimeout.String())

	done := make(chan error, 1)
	go func() { done <- sched.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("scheduler stop: %w", err)
		}
	case <-time.After(cfg.App.ShutdownTimeout):
		return errors.New("shutdown timed out waiting for running jobs")
	}

	log.Info("shutdown completed successfully")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/invoicesnap/invoicesnap/internal/api"
	"github.com/invoicesnap/invoicesnap/internal/repository"
	"github.com/invoicesnap/invoicesnap/internal/service"
	"github.com/invoicesnap/invoicesnap/pkg/config"
	"github.com/invoicesnap/invoicesnap/pkg/job"
	"github.com/invoicesnap/invoicesnap/pkg/logger"
	"github.com/invoicesnap/invoicesnap/pkg/postgres"
)

const (
	ReadTimeout  = 3 * time.Second
	WriteTimeout = 5 * time.Second
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New(".env")
	panicOnErr("load config", err)

	_, err = logger.New(cfg.Logger.Level)
	panicOnErr("create logger", err)

	pool, err := postgres.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConn)
	panicOnErr("connect to postgres", err)
	defer pool.Close()

	err = postgres.UpMigrations(pool)
	panicOnErr("up migrations", err)

	repo := repository.New(pool)

	s := service.New(repo)

	{
		job.NewScheduler().
			TryRegister(cfg.Jobs.MarkOverdueEnabled, "mark overdue invoices",
				cfg.Jobs.MarkOverdueInterval, s.MarkOverdueInvoices).
			Start(ctx)
	}

	handler := api.NewHandler(s)
	mw := api.NewMiddleware(cfg.Auth.JWTSecret)

	router := api.NewRouter(handler, mw)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicf("listen and serve: %s", err)
		}
	}()

	slog.InfoContext(ctx, "service started", "port", cfg.HTTP.Port)

	wg.Add(1)

	go func() {
		defer wg.Done()

		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
		sig := <-ch

		slog.InfoContext(ctx, "got OS signal", "signal", sig.String())

		err = server.Shutdown(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "server shutdown", "error", err)
		}
	}()

	wg.Wait()
}

func panicOnErr(msg string, err error) {
	if err != nil {
		log.Panicf("%s: %s", msg, err)
	}
}

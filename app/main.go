package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/demo-importer/app/api"
	"github.com/lysyi3m/demo-importer/app/cfg"
	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/importer"
	"github.com/lysyi3m/demo-importer/app/media"
	"github.com/lysyi3m/demo-importer/app/profile"
	"github.com/lysyi3m/demo-importer/app/shortcode"
	"github.com/lysyi3m/demo-importer/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if appCfg.Mode == cfg.ModeRender {
		if err := render(appCfg.Input, os.Stdout); err != nil {
			slog.Error("Render failed", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("Starting Demo Importer", "version", appCfg.Version, "mode", appCfg.Mode, "profile", appCfg.Profile)

	store, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open content store", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	profiles := profile.NewCache(appCfg.ProfilesDir)
	if err := profiles.Run(); err != nil {
		slog.Error("Failed to load profiles", "error", err)
		os.Exit(1)
	}
	slog.Info("Profiles loaded", "count", profiles.GetProfileCount(), "dir", appCfg.ProfilesDir)

	p, err := profiles.GetProfile(appCfg.Profile)
	if err != nil {
		slog.Error("Failed to select profile", "error", err, "available", profiles.Names())
		os.Exit(1)
	}

	dispatcher := newDispatcher(appCfg, store, p)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch appCfg.Mode {
	case cfg.ModeServe:
		err = serve(ctx, appCfg, store, profiles, dispatcher)
	case cfg.ModeImport:
		err = runImport(ctx, appCfg, dispatcher)
	case cfg.ModeExport:
		err = runExport(ctx, appCfg, dispatcher)
	}

	if err != nil {
		slog.Error("Demo Importer failed", "mode", appCfg.Mode, "error", err)
		store.Close()
		os.Exit(1)
	}
}

func newDispatcher(appCfg *cfg.Cfg, store *database.Store, p *profile.Profile) *tasks.Dispatcher {
	rewriter := media.NewUploadsRewriter(p.UploadsFolder, appCfg.UploadsURL, appCfg.UploadsDir)
	fetcher := media.NewFetcher(media.FetcherOptions{
		UserAgent: appCfg.UserAgent,
		MaxSize:   appCfg.MaxAttachmentSize,
		Rate:      appCfg.FetchRate,
	})

	return tasks.NewDispatcher(store, p, importer.NewCheckpointLog(appCfg.CheckpointPath()), rewriter, fetcher,
		tasks.DispatcherOptions{
			TimeBudget: appCfg.MaxExecutionTime,
			Overwrite:  appCfg.Overwrite,
			SiteURL:    appCfg.SiteURL,
			Version:    appCfg.Version,
		})
}

func serve(ctx context.Context, appCfg *cfg.Cfg, store *database.Store, profiles *profile.Cache, dispatcher *tasks.Dispatcher) error {
	taskTimeout := max(2*appCfg.MaxExecutionTime, 5*time.Minute)
	scheduler := tasks.NewScheduler(appCfg.WorkerCount, taskTimeout)
	scheduler.Start()
	defer scheduler.Stop()

	resumeUnfinishedRun(appCfg, dispatcher, scheduler)

	handler := api.NewHandler(store, profiles, dispatcher, scheduler, shortcode.NewDefaultRegistry(), appCfg.ExportDir, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: appCfg.MaxExecutionTime + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case serverErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serverErr
}

// resumeUnfinishedRun picks up a run the previous process left behind.
func resumeUnfinishedRun(appCfg *cfg.Cfg, dispatcher *tasks.Dispatcher, scheduler tasks.TaskSchedulerInterface) {
	cp, _, err := dispatcher.Status()
	if err != nil {
		slog.Warn("Failed to read checkpoint", "error", err)
		return
	}
	if cp.LastID == 0 || !dispatcher.BeginRun() {
		return
	}

	task := tasks.NewImportRunTask(dispatcher, tasks.Request{
		DataType:         appCfg.DataType,
		FetchAttachments: appCfg.FetchAttachments,
		LastID:           cp.LastID,
	})
	if err := scheduler.EnqueueTask(task); err != nil {
		dispatcher.EndRun()
		slog.Warn("Failed to resume import run", "error", err)
		return
	}
	slog.Info("Resuming unfinished import run", "last_id", cp.LastID, "result", cp.Percent)
}

// runImport drives the importer actions the way the admin client does.
func runImport(ctx context.Context, appCfg *cfg.Cfg, dispatcher *tasks.Dispatcher) error {
	base := tasks.Request{
		DataType:         appCfg.DataType,
		FetchAttachments: appCfg.FetchAttachments,
		ClearTables:      appCfg.ClearTables,
	}

	start := base
	start.Action = tasks.ActionImportStart
	if resp := dispatcher.Dispatch(ctx, start); resp.Error {
		return errors.New(resp.Message)
	}

	cp, _, err := dispatcher.Status()
	if err != nil {
		return err
	}

	req := base
	req.Action = tasks.ActionImportPosts
	req.LastID = cp.LastID
	for {
		result := dispatcher.RunChunk(ctx, req)
		if result.Err != nil {
			return result.Err
		}
		slog.Info("Posts imported", "result", result.Percent, "last_id", result.LastID)
		if result.Percent >= 100 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		req.LastID = result.LastID
	}

	for _, action := range []string{
		tasks.ActionImportMods,
		tasks.ActionImportOptions,
		tasks.ActionImportTpl,
		tasks.ActionImportWidgets,
		tasks.ActionImportEnd,
	} {
		next := base
		next.Action = action
		if resp := dispatcher.Dispatch(ctx, next); resp.Error {
			return errors.New(resp.Message)
		}
	}

	slog.Info("Import completed", "profile", dispatcher.Profile().Name)
	return nil
}

func runExport(ctx context.Context, appCfg *cfg.Cfg, dispatcher *tasks.Dispatcher) error {
	result, err := dispatcher.Export(ctx, appCfg.ExportDir)
	if err != nil {
		return err
	}
	slog.Info("Export completed",
		"mods", result.Mods,
		"options", result.Options,
		"templates", result.Templates,
		"widgets", result.Widgets,
		"content", result.Content)
	return nil
}

func render(input string, out io.Writer) error {
	var (
		data []byte
		err  error
	)
	if input == "" || input == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	_, err = io.WriteString(out, shortcode.NewDefaultRegistry().Render(string(data)))
	return err
}

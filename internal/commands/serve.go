package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/habit-tracker/internal/app"
	"github.com/klabast/wb-services/habit-tracker/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the habit page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, v)
		},
	}

	cmd.Flags().IntP("port", "p", 0, "port to listen on (default 8080)")
	cmd.Flags().Bool("watch", true, "reload when the data file changes on disk")
	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("watch", cmd.Flags().Lookup("watch"))
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	sess, err := openSession(ctx, v)
	if err != nil {
		return err
	}
	defer sess.Close()
	log := sess.log

	auth, err := app.LoadAuth(sess.cfg.AuthFilePath(), log)
	if err != nil {
		return err
	}

	if fs, ok := sess.blob.(*storage.FileStore); ok && sess.cfg.Watch {
		w, err := storage.NewWatcher(fs.Path(sess.cfg.Storage.Key))
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()

		go func() {
			for range w.Changes {
				sess.store.Load()
				log.Debug("reloaded habits after file change", zap.String("path", w.Path))
			}
		}()
		log.Info("watching data file", zap.String("path", w.Path))
	}

	srv := app.NewServer(sess.store, app.WithAuth(auth), app.WithLogger(log))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", sess.cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", httpServer.Addr),
			zap.String("storage", sess.cfg.Storage.Driver),
			zap.Int("habits", sess.store.Len()),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

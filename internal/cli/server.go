package cli

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
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goMarble/internal/config"
	"github.com/LeJamon/goMarble/internal/indexer"
	marblelog "github.com/LeJamon/goMarble/internal/log"
	"github.com/LeJamon/goMarble/internal/rpc"
)

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the marketplace node",
	Long: `Start marbled, which provides:
- HTTP JSON-RPC API endpoints
- WebSocket event streams
- Health check endpoint
- The settlement archive, when indexing is enabled

This is the default command when no subcommand is specified.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Set server as the default command
	rootCmd.RunE = runServer
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := marblelog.NewLogger(marblelog.ApplyFlags(cfg.Log, debug, quiet))
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

// serve runs the node until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, closeDB, err := openStateDB(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDB(); err != nil {
			logger.Warn("failed to close state store", zap.Error(err))
		}
	}()

	chain := newChain(db, logger)
	genesis, err := cfg.BuildGenesis()
	if err != nil {
		return err
	}
	addrs, err := chain.InitGenesis(ctx, *genesis)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	for _, addr := range addrs {
		logger.Info("genesis contract", zap.String("address", addr.String()))
	}

	svc := &rpc.Services{
		Chain:         chain,
		Subscriptions: rpc.NewSubscriptionManager(),
		Version:       Version,
		StartTime:     time.Now(),
	}

	var ix *indexer.Indexer
	if cfg.Index.Enabled {
		archive, err := openArchive(ctx, cfg.Index.Archive, logger)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = archive.Close(closeCtx)
		}()
		if height, err := archive.LastHeight(ctx); err == nil {
			logger.Info("archive ready", zap.Uint64("last_height", height))
		}

		ix, err = indexer.New(archive,
			indexer.WithLogger(logger),
			indexer.WithHistoryLimit(cfg.Index.HistoryLimit),
			indexer.WithCacheSize(cfg.Index.CacheSize),
			indexer.WithQueueSize(cfg.Index.QueueSize))
		if err != nil {
			return err
		}
		chain.AddHooks(ix.Hooks())
		svc.Archive = ix
	}

	publisher := rpc.NewPublisher(svc.Subscriptions, logger)
	chain.AddHooks(publisher.Hooks())

	rpcServer := rpc.NewServer(svc, cfg.Server.ReadTimeout,
		rpc.WithAdmin(cfg.Server.Admin...),
		rpc.WithServerLogger(logger))
	wsServer := rpc.NewWebSocketServer(rpcServer.Registry(), svc.Subscriptions, cfg.Server.ReadTimeout, logger, cfg.Server.Admin...)

	httpServer := &http.Server{
		Addr:         cfg.Server.GetBindAddress(),
		Handler:      rpc.NewHandler(rpcServer, wsServer, cfg.Server.WebSocketPath),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("rpc", "http://"+httpServer.Addr+"/"),
			zap.String("ws", "ws://"+httpServer.Addr+cfg.Server.WebSocketPath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if ix != nil {
		g.Go(func() error { return ix.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		wsServer.Close()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

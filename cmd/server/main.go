package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/config"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

func main() {
	defer logger.Sync()
	log := logger.L().Sugar()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		go func() {
			log.Infow("http_listen", "addr", cfg.HTTPAddr)
			if err := observe.StartHTTP(ctx, cfg.HTTPAddr); err != nil {
				log.Errorw("http_server_exit", "err", err)
			}
		}()
	}

	srv, err := chat.Listen(cfg.TCPAddr, chat.Options{
		MaxLineBytes:   cfg.MaxLineBytes,
		MaxOutboxBytes: cfg.MaxOutboxBytes,
		EventCapacity:  cfg.EventCapacity,
		Logger:         logger.L(),
	})
	if err != nil {
		log.Errorw("tcp_listen_error", "addr", cfg.TCPAddr, "err", err)
		logger.Sync()
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorw("tcp_server_exit", "err", err)
		logger.Sync()
		os.Exit(1)
	}
}

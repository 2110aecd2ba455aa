package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	appcfg "github.com/park285/Cheese-PeerChess/internal/config"
	"github.com/park285/Cheese-PeerChess/internal/msgcat"
	"github.com/park285/Cheese-PeerChess/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cat, err := msgcat.New(cfg.MsgDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, cat, os.Stdout)
	err = a.run(ctx, os.Stdin)
	switch {
	case err == nil, errors.Is(err, errQuit), errors.Is(err, context.Canceled):
		return
	default:
		obslog.L().Error("peerchess_exit", zap.Error(err))
		fmt.Fprintln(os.Stderr, diagnose(cat, err))
		obslog.Sync()
		os.Exit(1)
	}
}

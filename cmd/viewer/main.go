package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pollarena/client"
	"pollarena/logging"
)

// 终端观察端：注册、长轮询同步、插值动画，鼠标点击移动自己
func main() {
	var (
		serverURL string
		tick      time.Duration
		frame     time.Duration
		step      float64
		logFile   string
		logLevel  string
	)
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "sync server base URL")
	flag.DurationVar(&tick, "tick", client.DefaultTickInterval, "animation tick period")
	flag.DurationVar(&frame, "frame", client.DefaultFrameInterval, "redraw period")
	flag.Float64Var(&step, "step", client.DefaultStep, "max pixels per axis per tick")
	flag.StringVar(&logFile, "log", "viewer.log", "log file path (the terminal is used for drawing)")
	flag.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flag.Parse()

	if logFile == "" {
		fmt.Fprintln(os.Stderr, "viewer: -log must name a file, the terminal is used for drawing")
		os.Exit(2)
	}
	log, err := logging.New(logFile, logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(client.Config{BaseURL: serverURL, Logger: log}, step, nil)
	c.TickInterval = tick
	c.FrameInterval = frame

	surface, err := newTermSurface(c.Sync.ID, cancel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer surface.Close()
	c.Surface = surface

	log.Infof("viewer connecting to %s", serverURL)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("viewer stopped: %v", err)
	}
	log.Info("viewer exit")
}

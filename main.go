package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sasha-s/go-deadlock"

	"pollarena/server"
)

// 入口：启动长轮询同步服务与静态资源
func main() {
	var (
		addr            string
		webDir          string
		logFile         string
		logLevel        string
		waitTimeout     time.Duration
		strictMoves     bool
		detectDeadlocks bool
	)
	flag.StringVar(&addr, "addr", ":8080", "server listen address, e.g. :8080")
	flag.StringVar(&webDir, "web", "web", "static asset directory, empty to disable")
	flag.StringVar(&logFile, "log", "app.log", "log file path, empty for stderr")
	flag.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flag.DurationVar(&waitTimeout, "wait-timeout", server.DefaultWaitTimeout, "long-poll hold time")
	flag.BoolVar(&strictMoves, "strict-moves", false, "answer 400 to moves missing id, x or y")
	flag.BoolVar(&detectDeadlocks, "detect-deadlocks", false, "enable lock-order and deadlock detection")
	flag.Parse()

	deadlock.Opts.Disable = !detectDeadlocks

	if err := server.InitLogger(logFile, logLevel); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	cfg := server.DefaultConfig()
	cfg.WaitTimeout = waitTimeout
	cfg.StrictMoves = strictMoves
	hub := server.NewHub(cfg)

	mux := http.NewServeMux()
	server.NewServer(hub).Register(mux, webDir)

	// 不设 WriteTimeout：长轮询需要挂起到 wait-timeout
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * waitTimeout,
	}

	go func() {
		server.Log.Infof("listening on %s; open http://localhost%v/", addr, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("shutdown: %v", err)
	}
}

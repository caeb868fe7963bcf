package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/cloudtodo/internal/auth"
	"github.com/idilsaglam/cloudtodo/internal/config"
	"github.com/idilsaglam/cloudtodo/internal/logging"
	"github.com/idilsaglam/cloudtodo/internal/server"
	"github.com/idilsaglam/cloudtodo/internal/store/blobfs"
	"github.com/idilsaglam/cloudtodo/internal/store/sqlstore"
	"github.com/idilsaglam/cloudtodo/internal/todosync"
)

func main() {
	flag.Usage = printHelp
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		printHelp()
		os.Exit(2)
	}

	cfg, err := config.ReadServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger, closer := logging.New(cfg.Log, "todo-server")

	var code int
	switch args[0] {
	case "serve":
		code = serve(cfg, logger)
	case "keygen":
		code = keygen(cfg, args[1:])
	default:
		printHelp()
		code = 2
	}
	closer.Close()
	os.Exit(code)
}

func printHelp() {
	fmt.Fprint(os.Stderr, `todo-server - record and image backend for todo

Usage:
  todo-server serve
  todo-server keygen [-role anon|service_role] [-ttl 720h]

TODO_JWT_SECRET must be set for both.
`)
}

func serve(cfg *config.Server, logger *log.Logger) int {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logger.Error("create data dir", "err", err)
		return 1
	}
	records, err := sqlstore.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "err", err)
		return 1
	}
	defer records.Close()

	publicBase := fmt.Sprintf("%s/storage/v1/object/public/%s", cfg.PublicURL, cfg.Bucket)
	blobs, err := blobfs.New(cfg.BlobDir, publicBase)
	if err != nil {
		logger.Error("open blob dir", "path", cfg.BlobDir, "err", err)
		return 1
	}

	srv := server.New(records, blobs, server.Options{
		Table:        cfg.Table,
		Bucket:       cfg.Bucket,
		Secret:       []byte(cfg.JWTSecret),
		MaxUpload:    cfg.MaxUploadMB << 20,
		CacheControl: "max-age=" + todosync.CacheControl,
		Logger:       logger,
	})
	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "db", cfg.DBPath, "blobs", blobs.Dir())
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "err", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownAfter)
		defer cancel()
		if err := hs.Shutdown(sctx); err != nil {
			logger.Error("shutdown", "err", err)
			return 1
		}
	}
	return 0
}

func keygen(cfg *config.Server, args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	role := fs.String("role", auth.RoleAnon, "key role: anon or service_role")
	ttl := fs.Duration("ttl", 0, "key lifetime; 0 never expires")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	key, err := auth.GenerateKey([]byte(cfg.JWTSecret), *role, *ttl, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		return 2
	}
	fmt.Println(key)
	return 0
}

// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artifact-registry/registry/internal/accessor"
	"github.com/artifact-registry/registry/internal/api"
	"github.com/artifact-registry/registry/internal/audit"
	"github.com/artifact-registry/registry/internal/cache"
	"github.com/artifact-registry/registry/internal/config"
	"github.com/artifact-registry/registry/internal/downloader"
	"github.com/artifact-registry/registry/internal/ingest"
	"github.com/artifact-registry/registry/internal/objectstore"
	"github.com/artifact-registry/registry/internal/query"
	"github.com/artifact-registry/registry/internal/rating"
	"github.com/artifact-registry/registry/internal/rating/metrics"
	"github.com/artifact-registry/registry/internal/repository"
	"github.com/artifact-registry/registry/pkg/log"
)

func main() {
	var flagEnvFile, flagDBDriver string
	var flagResetDB bool
	flag.StringVar(&flagEnvFile, "env", "./.env", "Load environment variables from `file` if it exists")
	flag.StringVar(&flagDBDriver, "db-driver", "sqlite3", "Database driver ('sqlite3' is the only one migrations ship for today)")
	flag.BoolVar(&flagResetDB, "init-db", false, "Run pending migrations and exit without starting a server")
	flag.Parse()

	if err := config.Init(flagEnvFile); err != nil {
		log.Fatal(err)
	}
	cfg := config.Keys

	if err := repository.Connect(cfg.DBURL); err != nil {
		log.Fatal(err)
	}
	conn := repository.GetConnection()

	if err := repository.MigrateUp(conn.DB.DB, flagDBDriver); err != nil {
		log.Fatal(err)
	}
	repository.CheckVersion(conn.DB.DB, flagDBDriver)

	if flagResetDB {
		log.Info("migrations applied, exiting (-init-db)")
		return
	}

	repo := repository.GetArtifactRepository()
	auditLog := audit.New(conn.DB, cfg.Audit.Enabled)

	objStore, err := objectstore.New(cfg.ObjectStore, time.Duration(cfg.DownloadTTLSeconds)*time.Second)
	if err != nil {
		log.Fatal(err)
	}

	respCache := cache.New(cfg.Cache.Host, cfg.Cache.Port, cfg.Cache.Password, time.Duration(cfg.Cache.TTLSeconds)*time.Second)

	httpClient := resty.New().SetTimeout(30 * time.Second)
	downloads := downloader.NewRegistry(
		downloader.NewHuggingFace(httpClient),
		downloader.NewGitHub(),
	)

	scalars := []rating.Scalar{
		metrics.NewLicense(1),
		metrics.NewBusFactor(10, 1, httpClient),
		metrics.NewRampUpTime(0.3, 0.3, 0.4, 1),
		metrics.NewCodeQuality(1),
		metrics.NewDatasetQuality(1, httpClient),
		metrics.NewReviewedness(1, httpClient, os.Getenv("GITHUB_TOKEN")),
		metrics.NewTreeScore(1),
	}
	structured := []rating.Structured{
		metrics.NewSize(cfg.SizeThresholdsMB.RPi, cfg.SizeThresholdsMB.Jetson, cfg.SizeThresholdsMB.Desktop, cfg.SizeThresholdsMB.AWS, 1),
	}
	rater := rating.NewAggregator(scalars, structured, int64(cfg.RaterProcessesPerJob))

	acc := &accessor.Accessor{
		Repo:       repo,
		Downloads:  downloads,
		Rater:      rater,
		Objects:    objStore,
		Audit:      auditLog,
		Cache:      respCache,
		Links:      accessor.ReadmeLinkExtractor{},
		ScratchDir: os.TempDir(),
		Threshold:  cfg.IngestThreshold,
	}

	deferredMgr := ingest.New(acc, cfg.DeferredQueueCapacity, cfg.RaterWorkers, os.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	if err := deferredMgr.Start(ctx); err != nil {
		log.Fatal(err)
	}

	restApi := &api.RestApi{
		Accessor: acc,
		Repo:     repo,
		Query:    query.New(repo),
		Audit:    auditLog,
		Cache:    respCache,
		Deferred: deferredMgr,
		Async:    cfg.IngestAsynchronous,
		PageSize: cfg.QueryPageSize,
		HardCap:  cfg.QueryHardCap,
	}

	r := mux.NewRouter()
	restApi.MountRoutes(r)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	r.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "X-Actor"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE"}),
		handlers.AllowedOrigins([]string{"*"})))
	loggedRouter := handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Infof("%s %s (%d, %.02fkb, %dms)",
			params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, float32(params.Size)/1024,
			time.Since(params.TimeStamp).Milliseconds())
	})

	server := http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      loggedRouter,
		Addr:         cfg.Addr,
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("registry listening at %s", cfg.Addr)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	wg.Add(1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer wg.Done()
		<-sigs
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
		cancel()
		deferredMgr.Shutdown(shutdownCtx)
	}()

	wg.Wait()
	log.Info("graceful shutdown complete")
}

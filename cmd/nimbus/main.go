//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Command nimbus runs the weather chat HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimbus-ai/nimbus/chat"
	"github.com/nimbus-ai/nimbus/eval"
	"github.com/nimbus-ai/nimbus/log"
	"github.com/nimbus-ai/nimbus/model/openai"
	"github.com/nimbus-ai/nimbus/server"
	"github.com/nimbus-ai/nimbus/telemetry/trace"
	"github.com/nimbus-ai/nimbus/weather"
)

const shutdownTimeout = 10 * time.Second

var (
	addr        = flag.String("addr", ":8080", "listen address")
	logLevel    = flag.String("log-level", log.LevelInfo, "log level: debug, info, warn, error, fatal")
	evalWorkers = flag.Int("eval-workers", 4, "evaluation worker pool size")
)

func main() {
	flag.Parse()
	log.SetLevel(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry is optional: without a collector endpoint spans are no-ops.
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != "" {
		clean, err := trace.Start(ctx)
		if err != nil {
			log.Fatalf("Start telemetry: %v", err)
		}
		defer func() {
			if err := clean(); err != nil {
				log.Errorf("Flush telemetry: %v", err)
			}
		}()
	}

	deployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME")
	if deployment == "" {
		deployment = "gpt-4"
	}
	chatModel := openai.New(deployment,
		openai.WithAzure(os.Getenv("AZURE_OPENAI_ENDPOINT"), os.Getenv("AZURE_OPENAI_API_VERSION")),
		openai.WithAPIKey(os.Getenv("AZURE_OPENAI_API_KEY")),
	)

	orchestrator := chat.New(chatModel, chat.WithTools(weather.New()))

	worker, err := eval.NewWorker(eval.NewJudge(chatModel), *evalWorkers)
	if err != nil {
		log.Fatalf("Create evaluation worker: %v", err)
	}
	defer worker.Release()

	srv := &http.Server{
		Addr:    *addr,
		Handler: server.New(orchestrator, worker).Handler(),
	}
	go func() {
		log.Infof("Listening on %s (model %s)", *addr, deployment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Shutdown: %v", err)
	}
}

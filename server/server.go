//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Package server exposes the weather chat HTTP API.
package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nimbus-ai/nimbus/chat"
	"github.com/nimbus-ai/nimbus/eval"
	"github.com/nimbus-ai/nimbus/log"
	"github.com/nimbus-ai/nimbus/telemetry"
)

// DefaultMessage is used when the request carries no message.
const DefaultMessage = "What is the weather in Dubai?"

// ResponseEnvelope is the success payload.
type ResponseEnvelope struct {
	Response    string `json:"response"`
	UserMessage string `json:"user_message"`
	ResponseID  string `json:"response_id"`
}

// Server wires the orchestrator and the evaluation worker behind HTTP.
type Server struct {
	orchestrator *chat.Orchestrator
	evalWorker   *eval.Worker
	router       *mux.Router
}

// New creates the server. The evaluation worker may be nil, in which case
// answers are not judged.
func New(orchestrator *chat.Orchestrator, evalWorker *eval.Worker) *Server {
	s := &Server{
		orchestrator: orchestrator,
		evalWorker:   evalWorker,
		router:       mux.NewRouter(),
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/weather", s.handleWeatherChat).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWeatherChat answers one weather question and schedules judging of
// the answer.
func (s *Server) handleWeatherChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.Tracer.Start(r.Context(), "weather_chat")
	defer span.End()

	responseID := newResponseID()
	userMessage, err := extractMessage(r)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(telemetry.KeyErrorMessage, err.Error()))
		log.Errorf("Error processing request: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("user.message", userMessage),
		attribute.String(telemetry.KeyGenAIResponseID, responseID),
		attribute.String(telemetry.KeyGenAISystem, telemetry.SystemAzureOpenAI),
	)
	log.Infof("Received message: %s (response_id: %s)", userMessage, responseID)

	result, err := s.orchestrator.Run(ctx, responseID, userMessage)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(telemetry.KeyErrorMessage, err.Error()))
		log.Errorf("Error processing request: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("response.length", len(result.FinalText)))

	if s.evalWorker != nil && result.FinalText != "" {
		s.evalWorker.Submit(ctx, eval.Input{
			ResponseID:       responseID,
			ResponseText:     result.FinalText,
			UserQuery:        userMessage,
			GroundingContext: result.GroundingContext,
		})
	}

	s.writeJSON(w, http.StatusOK, ResponseEnvelope{
		Response:    result.FinalText,
		UserMessage: userMessage,
		ResponseID:  responseID,
	})
}

// newResponseID generates the request-scoped correlation id,
// "resp_" followed by 12 hex characters.
func newResponseID() string {
	id := uuid.New()
	return fmt.Sprintf("resp_%s", hex.EncodeToString(id[:])[:12])
}

// extractMessage reads the message from the POST body or the query string,
// falling back to the default question when it is absent. A message field
// that is present but empty is used as-is. A malformed body is an error.
func extractMessage(r *http.Request) (string, error) {
	if r.Method == http.MethodPost {
		var body struct {
			Message *string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			if errors.Is(err, io.EOF) {
				// No body at all.
				return DefaultMessage, nil
			}
			return "", fmt.Errorf("parse request body: %w", err)
		}
		if body.Message == nil {
			return DefaultMessage, nil
		}
		return *body.Message, nil
	}
	if msg := r.URL.Query().Get("message"); msg != "" {
		return msg, nil
	}
	return DefaultMessage, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

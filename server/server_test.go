//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-ai/nimbus/chat"
	"github.com/nimbus-ai/nimbus/eval"
	"github.com/nimbus-ai/nimbus/model"
	"github.com/nimbus-ai/nimbus/weather"
)

// stubModel always answers with fixed text, or fails.
type stubModel struct {
	content string
	err     error
	calls   atomic.Int64
}

func (s *stubModel) GenerateContent(_ context.Context, _ *model.Request) (*model.Response, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &model.Response{
		Choices: []model.Choice{{
			Message: model.NewAssistantMessage(s.content),
		}},
	}, nil
}

func (s *stubModel) Info() model.Info {
	return model.Info{Name: "stub-model"}
}

func newTestServer(m model.Model, worker *eval.Worker) *Server {
	return New(chat.New(m, chat.WithTools(weather.New())), worker)
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWeatherChatDefaultsMessage(t *testing.T) {
	s := newTestServer(&stubModel{content: "Sunny, 22C."}, nil)
	rec := doRequest(t, s, http.MethodGet, "/weather", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Sunny, 22C.", envelope.Response)
	assert.Equal(t, DefaultMessage, envelope.UserMessage)
	assert.Regexp(t, `^resp_[0-9a-f]{12}$`, envelope.ResponseID)
}

func TestWeatherChatQueryMessage(t *testing.T) {
	s := newTestServer(&stubModel{content: "Rainy."}, nil)
	rec := doRequest(t, s, http.MethodGet, "/weather?message=Weather+in+London%3F", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Weather in London?", envelope.UserMessage)
}

func TestWeatherChatPostBody(t *testing.T) {
	s := newTestServer(&stubModel{content: "Hot."}, nil)
	rec := doRequest(t, s, http.MethodPost, "/weather", `{"message":"Weather in Cairo?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Weather in Cairo?", envelope.UserMessage)
}

func TestWeatherChatPostWithoutMessageDefaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"no body", ""},
		{"message null", `{"message":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&stubModel{content: "Sunny."}, nil)
			rec := doRequest(t, s, http.MethodPost, "/weather", tt.body)

			require.Equal(t, http.StatusOK, rec.Code)
			var envelope ResponseEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
			assert.Equal(t, DefaultMessage, envelope.UserMessage)
		})
	}
}

func TestWeatherChatPostEmptyMessageIsKept(t *testing.T) {
	s := newTestServer(&stubModel{content: "Sunny."}, nil)
	rec := doRequest(t, s, http.MethodPost, "/weather", `{"message":""}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	// A message that is present but empty is not replaced by the default.
	assert.Equal(t, "", envelope.UserMessage)
}

func TestWeatherChatMalformedBody(t *testing.T) {
	m := &stubModel{content: "Sunny."}
	s := newTestServer(m, nil)
	rec := doRequest(t, s, http.MethodPost, "/weather", `{not json`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "parse request body")
	assert.NotContains(t, body, "response")
	assert.NotContains(t, body, "response_id")
	// The model is never consulted for an unparseable request.
	assert.Zero(t, m.calls.Load())
}

func TestWeatherChatFailureEnvelope(t *testing.T) {
	s := newTestServer(&stubModel{err: errors.New("upstream unavailable")}, nil)
	rec := doRequest(t, s, http.MethodGet, "/weather", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "upstream unavailable")
	assert.NotContains(t, body, "response")
	assert.NotContains(t, body, "response_id")
}

func TestWeatherChatSubmitsEvaluation(t *testing.T) {
	judgeModel := &stubModel{content: `{"score":0.9,"reasoning":"fine"}`}
	worker, err := eval.NewWorker(eval.NewJudge(judgeModel, eval.WithAttempts(1)), 2)
	require.NoError(t, err)
	defer worker.Release()

	s := newTestServer(&stubModel{content: "Sunny."}, worker)
	rec := doRequest(t, s, http.MethodGet, "/weather", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// One judge call per criterion, issued off the request path.
	require.Eventually(t, func() bool {
		return judgeModel.calls.Load() == 4
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&stubModel{content: "ok"}, nil)
	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRouteNotFound(t *testing.T) {
	s := newTestServer(&stubModel{content: "ok"}, nil)
	rec := doRequest(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Package eval scores produced answers with LLM-as-judge calls, one per
// criterion. Results surface only through telemetry spans and logs.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nimbus-ai/nimbus/log"
	"github.com/nimbus-ai/nimbus/model"
	"github.com/nimbus-ai/nimbus/telemetry"
)

// judgeSystemPrompt pins the judge into strict JSON output.
const judgeSystemPrompt = "You are a precise evaluator. Score the given response and always answer with valid JSON."

// Outcome distinguishes a real judge verdict from a neutral fallback.
type Outcome string

const (
	// OutcomeOK means the judge call succeeded and parsed cleanly.
	OutcomeOK Outcome = "ok"
	// OutcomeDegraded means the call or parse failed and the score is the
	// neutral fallback.
	OutcomeDegraded Outcome = "degraded"
)

const (
	degradedScore = 0.5

	defaultJudgeMaxTokens = 256
	defaultAttempts       = 3
	defaultRetryDelay     = 200 * time.Millisecond
)

// Input is everything the judge needs to score one answer.
type Input struct {
	// ResponseID correlates evaluation spans with the chat spans.
	ResponseID string
	// ResponseText is the answer under evaluation.
	ResponseText string
	// UserQuery is the original question.
	UserQuery string
	// GroundingContext is the JSON-encoded tool result, empty if none.
	GroundingContext string
}

// Result is one criterion's verdict.
type Result struct {
	Criterion Criterion `json:"criterion"`
	Score     float64   `json:"score"`
	Reasoning string    `json:"reasoning"`
	Outcome   Outcome   `json:"outcome"`
}

// Judge scores answers against the fixed criteria using a chat model.
type Judge struct {
	model     model.Model
	maxTokens int
	attempts  uint
}

// JudgeOption configures a Judge.
type JudgeOption func(*Judge)

// WithMaxTokens caps the judge reply length.
func WithMaxTokens(n int) JudgeOption {
	return func(j *Judge) {
		j.maxTokens = n
	}
}

// WithAttempts sets how many times a failed judge call is tried before the
// neutral fallback is used.
func WithAttempts(n uint) JudgeOption {
	return func(j *Judge) {
		j.attempts = n
	}
}

// NewJudge creates a judge backed by the given model.
func NewJudge(m model.Model, opts ...JudgeOption) *Judge {
	j := &Judge{
		model:     m,
		maxTokens: defaultJudgeMaxTokens,
		attempts:  defaultAttempts,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Evaluate scores the input on every criterion. It always returns exactly
// one result per criterion; individual failures degrade to a neutral score
// instead of aborting the batch.
func (j *Judge) Evaluate(ctx context.Context, input Input) []Result {
	results := make([]Result, 0, len(Criteria))
	for _, criterion := range Criteria {
		results = append(results, j.judge(ctx, criterion, input))
	}
	return results
}

// judge scores one criterion and records the evaluation span.
func (j *Judge) judge(ctx context.Context, criterion Criterion, input Input) Result {
	ctx, span := telemetry.Tracer.Start(ctx, telemetry.NewEvaluationSpanName(string(criterion)))
	defer span.End()

	result := j.judgeOnce(ctx, criterion, input)

	span.SetAttributes(
		attribute.String(telemetry.KeyGenAIEvaluationID, uuid.NewString()),
		attribute.Float64(telemetry.KeyGenAIEvaluationScore, result.Score),
		attribute.String(telemetry.KeyGenAIEvaluatorName, string(criterion)),
		attribute.String(telemetry.KeyGenAIResponseID, input.ResponseID),
		attribute.String("gen_ai.evaluation.reasoning", result.Reasoning),
	)
	if result.Outcome == OutcomeDegraded {
		span.SetAttributes(attribute.String(telemetry.KeyErrorMessage, result.Reasoning))
		log.Warnf("Evaluation %s degraded: %s", criterion, result.Reasoning)
	} else {
		log.Infof("Evaluation %s: %.2f", criterion, result.Score)
	}
	return result
}

func (j *Judge) judgeOnce(ctx context.Context, criterion Criterion, input Input) Result {
	temperature := 0.0
	maxTokens := j.maxTokens
	req := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage(judgeSystemPrompt),
			model.NewUserMessage(rubricPrompt(criterion, input.UserQuery, input.ResponseText, input.GroundingContext)),
		},
		GenerationConfig: model.GenerationConfig{
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		},
	}

	// Only the transport call is retried. A reply that parses badly is a
	// model problem, not a transient one.
	rsp, err := retry.DoWithData(
		func() (*model.Response, error) {
			return j.model.GenerateContent(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(j.attempts),
		retry.Delay(defaultRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return degraded(criterion, err)
	}
	if len(rsp.Choices) == 0 {
		return degraded(criterion, fmt.Errorf("judge reply has no choices"))
	}

	var verdict struct {
		Score     *float64 `json:"score"`
		Reasoning string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(rsp.Choices[0].Message.Content), &verdict); err != nil {
		return degraded(criterion, fmt.Errorf("parse judge reply: %w", err))
	}

	score := 0.0
	if verdict.Score != nil {
		score = clamp(*verdict.Score, 0.0, 1.0)
	}
	reasoning := verdict.Reasoning
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}
	return Result{
		Criterion: criterion,
		Score:     score,
		Reasoning: reasoning,
		Outcome:   OutcomeOK,
	}
}

func degraded(criterion Criterion, err error) Result {
	return Result{
		Criterion: criterion,
		Score:     degradedScore,
		Reasoning: fmt.Sprintf("Evaluation failed: %v", err),
		Outcome:   OutcomeDegraded,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

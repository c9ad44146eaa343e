//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Package telemetry provides tracing helpers and the GenAI semantic
// convention attribute keys used across the service.
package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// telemetry service constants.
const (
	ServiceName      = "nimbus"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "nimbus-ai"
	InstrumentName   = "nimbus.ai"

	OperationChat        = "chat"
	OperationExecuteTool = "execute_tool"
	OperationEvaluation  = "evaluation"
)

// Tracer is the tracer used for all service spans. It resolves through the
// global provider, so spans recorded before trace.Start are no-ops.
var Tracer trace.Tracer = otel.Tracer(InstrumentName)

// GenAI semantic convention attribute keys.
const (
	KeyGenAISystem                = "gen_ai.system"
	KeyGenAIOperationName         = "gen_ai.operation.name"
	KeyGenAIRequestModel          = "gen_ai.request.model"
	KeyGenAIRequestTemperature    = "gen_ai.request.temperature"
	KeyGenAIRequestMaxTokens      = "gen_ai.request.max_tokens"
	KeyGenAIResponseID            = "gen_ai.response.id"
	KeyGenAIResponseModel         = "gen_ai.response.model"
	KeyGenAIResponseFinishReason  = "gen_ai.response.finish_reason"
	KeyGenAIUsageInputTokens      = "gen_ai.usage.input_tokens"
	KeyGenAIUsageOutputTokens     = "gen_ai.usage.output_tokens"
	KeyGenAIUsageTotalTokens      = "gen_ai.usage.total_tokens"
	KeyGenAIToolName              = "gen_ai.tool.name"
	KeyGenAIToolDescription       = "gen_ai.tool.description"
	KeyGenAIToolCallID            = "gen_ai.tool.call.id"
	KeyGenAIToolCallArguments     = "gen_ai.tool.call.arguments"
	KeyGenAIToolCallResult        = "gen_ai.tool.call.result"
	KeyGenAIEvaluationID          = "gen_ai.evaluation.id"
	KeyGenAIEvaluationScore       = "gen_ai.evaluation.score"
	KeyGenAIEvaluatorName         = "gen_ai.evaluator.name"

	KeyErrorType    = "error.type"
	KeyErrorMessage = "error.message"

	// SystemAzureOpenAI identifies the model provider on GenAI spans.
	SystemAzureOpenAI = "azure_openai"
)

// NewChatSpanName creates a new chat span name, e.g. "chat gpt-4".
func NewChatSpanName(requestModel string) string {
	if requestModel == "" {
		return OperationChat
	}
	return fmt.Sprintf("%s %s", OperationChat, requestModel)
}

// NewExecuteToolSpanName creates a new execute tool span name.
func NewExecuteToolSpanName(toolName string) string {
	return fmt.Sprintf("%s %s", OperationExecuteTool, toolName)
}

// NewEvaluationSpanName creates a new evaluation span name,
// e.g. "gen_ai.evaluation.relevance".
func NewEvaluationSpanName(evaluatorName string) string {
	return fmt.Sprintf("gen_ai.%s.%s", OperationEvaluation, evaluatorName)
}

// NewGRPCConn creates a gRPC connection to an OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	// Note the use of insecure transport here. TLS is recommended in production.
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}

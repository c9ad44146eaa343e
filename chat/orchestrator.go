//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Package chat drives the two-call conversation protocol against the chat
// completion endpoint: the first call offers tools, and when the model
// requests one the tool result is injected into history for a second call.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nimbus-ai/nimbus/log"
	"github.com/nimbus-ai/nimbus/model"
	"github.com/nimbus-ai/nimbus/telemetry"
	"github.com/nimbus-ai/nimbus/tool"
)

// SystemPrompt is the fixed system instruction for the conversation.
const SystemPrompt = "You are a helpful weather assistant. Use the get_weather function to fetch weather information."

// UnknownToolPolicy controls what happens when the model requests a tool
// that is not registered.
type UnknownToolPolicy string

const (
	// UnknownToolIgnore drops the tool call with a warning log. No tool
	// message is appended for it.
	UnknownToolIgnore UnknownToolPolicy = "ignore"
	// UnknownToolError appends a tool message describing the error, so the
	// model sees a result for every call it issued.
	UnknownToolError UnknownToolPolicy = "error"
)

// Result is the outcome of one orchestrated conversation.
type Result struct {
	// FinalText is the assistant's answer shown to the user.
	FinalText string
	// GroundingContext is the JSON-encoded tool result the answer is based
	// on. Empty when no tool was invoked.
	GroundingContext string
}

// Orchestrator runs the conversation protocol for a single model.
type Orchestrator struct {
	model             model.Model
	tools             map[string]tool.CallableTool
	unknownToolPolicy UnknownToolPolicy
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithTools registers callable tools offered to the model on the first call.
func WithTools(tools ...tool.CallableTool) Option {
	return func(o *Orchestrator) {
		for _, t := range tools {
			o.tools[t.Declaration().Name] = t
		}
	}
}

// WithUnknownToolPolicy sets the policy for tool calls naming an
// unregistered tool.
func WithUnknownToolPolicy(policy UnknownToolPolicy) Option {
	return func(o *Orchestrator) {
		o.unknownToolPolicy = policy
	}
}

// New creates an orchestrator backed by the given model.
func New(m model.Model, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:             m,
		tools:             make(map[string]tool.CallableTool),
		unknownToolPolicy: UnknownToolIgnore,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the conversation for one user message. The responseID is the
// request-scoped correlation id recorded on every span.
func (o *Orchestrator) Run(ctx context.Context, responseID, userMessage string) (*Result, error) {
	messages := []model.Message{
		model.NewSystemMessage(SystemPrompt),
		model.NewUserMessage(userMessage),
	}

	// First call: offer the tools, let the model decide.
	rsp, err := o.generate(ctx, responseID, &model.Request{
		Messages:   messages,
		Tools:      o.modelTools(),
		ToolChoice: model.ToolChoiceAuto,
	})
	if err != nil {
		return nil, err
	}
	reply := rsp.Choices[0].Message

	if len(reply.ToolCalls) == 0 {
		return &Result{FinalText: reply.Content}, nil
	}

	messages = append(messages, reply)
	groundingContext := ""
	for _, toolCall := range reply.ToolCalls {
		name := toolCall.Function.Name
		t, ok := o.tools[name]
		if !ok {
			switch o.unknownToolPolicy {
			case UnknownToolError:
				messages = append(messages, model.NewToolMessage(
					toolCall.ID, name, fmt.Sprintf(`{"error":"unknown tool %s"}`, name)))
			default:
				log.Warnf("Ignoring call to unknown tool %q", name)
			}
			continue
		}
		log.Infof("Calling tool: %s with args: %s", name, toolCall.Function.Arguments)
		result, err := t.Call(ctx, toolCall.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		content, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal result of tool %s: %w", name, err)
		}
		messages = append(messages, model.NewToolMessage(toolCall.ID, name, string(content)))
		groundingContext = string(content)
	}

	// Second call: tool results are in the history, no tools offered.
	rsp, err = o.generate(ctx, responseID, &model.Request{Messages: messages})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalText:        rsp.Choices[0].Message.Content,
		GroundingContext: groundingContext,
	}, nil
}

// generate issues one chat completion wrapped in a chat span.
func (o *Orchestrator) generate(ctx context.Context, responseID string, req *model.Request) (*model.Response, error) {
	requestModel := o.model.Info().Name
	ctx, span := telemetry.Tracer.Start(ctx, telemetry.NewChatSpanName(requestModel))
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.KeyGenAISystem, telemetry.SystemAzureOpenAI),
		attribute.String(telemetry.KeyGenAIOperationName, telemetry.OperationChat),
		attribute.String(telemetry.KeyGenAIRequestModel, requestModel),
		attribute.String(telemetry.KeyGenAIResponseID, responseID),
	)

	rsp, err := o.model.GenerateContent(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(telemetry.KeyErrorMessage, err.Error()))
		return nil, err
	}
	if len(rsp.Choices) == 0 {
		err := errors.New("chat completion returned no choices")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if usage := rsp.Usage; usage != nil {
		span.SetAttributes(
			attribute.Int(telemetry.KeyGenAIUsageInputTokens, usage.PromptTokens),
			attribute.Int(telemetry.KeyGenAIUsageOutputTokens, usage.CompletionTokens),
			attribute.Int(telemetry.KeyGenAIUsageTotalTokens, usage.TotalTokens),
		)
		log.Infof("Chat request tokens - Input: %d, Output: %d", usage.PromptTokens, usage.CompletionTokens)
	}
	if fr := rsp.Choices[0].FinishReason; fr != nil {
		span.SetAttributes(attribute.String(telemetry.KeyGenAIResponseFinishReason, *fr))
	}
	return rsp, nil
}

// modelTools exposes the registered tools in the form the model layer expects.
func (o *Orchestrator) modelTools() map[string]tool.Tool {
	if len(o.tools) == 0 {
		return nil
	}
	tools := make(map[string]tool.Tool, len(o.tools))
	for name, t := range o.tools {
		tools[name] = t
	}
	return tools
}

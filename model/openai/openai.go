//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Package openai provides an OpenAI-compatible model implementation, including
// Azure OpenAI deployments.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/nimbus-ai/nimbus/log"
	"github.com/nimbus-ai/nimbus/model"
	"github.com/nimbus-ai/nimbus/tool"
)

const (
	functionToolType string = "function"

	// defaultAzureAPIVersion is used when no API version is configured.
	defaultAzureAPIVersion = "2024-02-01"
)

// Model implements the model.Model interface on top of the OpenAI API.
type Model struct {
	client openai.Client
	name   string
}

// New creates a new OpenAI-like model. The name is the model or Azure
// deployment name used for chat completions.
func New(name string, opts ...Option) *Model {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}

	var clientOpts []openaiopt.RequestOption

	if o.AzureEndpoint != "" {
		clientOpts = append(clientOpts, azure.WithEndpoint(o.AzureEndpoint, o.AzureAPIVersion))
		if o.APIKey != "" {
			clientOpts = append(clientOpts, azure.WithAPIKey(o.APIKey))
		}
	} else {
		if o.APIKey != "" {
			clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.APIKey))
		}
		if o.BaseURL != "" {
			clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.BaseURL))
		}
	}
	clientOpts = append(clientOpts, o.OpenAIOptions...)

	return &Model{
		client: openai.NewClient(clientOpts...),
		name:   name,
	}
}

// Info returns basic information about the model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.name}
}

// GenerateContent produces one chat completion for the request.
func (m *Model) GenerateContent(
	ctx context.Context,
	request *model.Request,
) (*model.Response, error) {
	if request == nil {
		return nil, errors.New("request cannot be nil")
	}
	chatRequest := m.buildChatRequest(request)
	chatCompletion, err := m.client.Chat.Completions.New(ctx, chatRequest)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	return convertResponse(chatCompletion), nil
}

// buildChatRequest converts our Request to OpenAI API format.
func (m *Model) buildChatRequest(request *model.Request) openai.ChatCompletionNewParams {
	chatRequest := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.name),
		Messages: convertMessages(request.Messages),
		Tools:    convertTools(request.Tools),
	}

	// MaxTokens is deprecated and not compatible with o-series models.
	// Use MaxCompletionTokens instead.
	if request.MaxTokens != nil {
		chatRequest.MaxCompletionTokens = openai.Int(int64(*request.MaxTokens))
	}
	if request.Temperature != nil {
		chatRequest.Temperature = openai.Float(*request.Temperature)
	}
	if request.ToolChoice != "" && len(chatRequest.Tools) > 0 {
		chatRequest.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(request.ToolChoice)),
		}
	}
	return chatRequest
}

// convertMessages converts our messages to OpenAI API format, preserving
// order.
func convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			}
		case model.RoleAssistant:
			assistantMsg := &openai.ChatCompletionAssistantMessageParam{
				ToolCalls: convertToolCalls(msg.ToolCalls),
			}
			if msg.Content != "" {
				assistantMsg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				}
			}
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfAssistant: assistantMsg,
			}
		case model.RoleTool:
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
					ToolCallID: msg.ToolID,
				},
			}
		default: // Default to user message if role is unknown.
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			}
		}
	}
	return result
}

func convertToolCalls(toolCalls []model.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	var result []openai.ChatCompletionMessageToolCallParam
	for _, toolCall := range toolCalls {
		result = append(result, openai.ChatCompletionMessageToolCallParam{
			ID: toolCall.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      toolCall.Function.Name,
				Arguments: string(toolCall.Function.Arguments),
			},
		})
	}
	return result
}

func convertTools(tools map[string]tool.Tool) []openai.ChatCompletionToolParam {
	var result []openai.ChatCompletionToolParam
	for _, t := range tools {
		declaration := t.Declaration()
		// Convert the InputSchema to JSON to correctly map to OpenAI's expected format.
		schemaBytes, err := json.Marshal(declaration.InputSchema)
		if err != nil {
			log.Errorf("failed to marshal tool schema for %s: %v", declaration.Name, err)
			continue
		}
		var parameters shared.FunctionParameters
		if err := json.Unmarshal(schemaBytes, &parameters); err != nil {
			log.Errorf("failed to unmarshal tool schema for %s: %v", declaration.Name, err)
			continue
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        declaration.Name,
				Description: openai.String(declaration.Description),
				Parameters:  parameters,
			},
		})
	}
	return result
}

// convertResponse converts an OpenAI chat completion to our response type.
func convertResponse(chatCompletion *openai.ChatCompletion) *model.Response {
	response := &model.Response{
		ID:    chatCompletion.ID,
		Model: chatCompletion.Model,
	}
	if len(chatCompletion.Choices) > 0 {
		response.Choices = make([]model.Choice, len(chatCompletion.Choices))
		for i, choice := range chatCompletion.Choices {
			response.Choices[i] = model.Choice{
				Index: int(choice.Index),
				Message: model.Message{
					Role:    model.RoleAssistant,
					Content: choice.Message.Content,
				},
			}
			if len(choice.Message.ToolCalls) > 0 {
				response.Choices[i].Message.ToolCalls = make([]model.ToolCall, len(choice.Message.ToolCalls))
				for j, toolCall := range choice.Message.ToolCalls {
					synthesizedID := toolCall.ID
					if synthesizedID == "" {
						// Synthesize ID for providers that omit it.
						synthesizedID = fmt.Sprintf("auto_call_%d", j)
					}
					response.Choices[i].Message.ToolCalls[j] = model.ToolCall{
						ID:   synthesizedID,
						Type: functionToolType,
						Function: model.FunctionDefinitionParam{
							Name:      toolCall.Function.Name,
							Arguments: []byte(toolCall.Function.Arguments),
						},
					}
				}
			}
			if choice.FinishReason != "" {
				finishReason := choice.FinishReason
				response.Choices[i].FinishReason = &finishReason
			}
		}
	}
	if chatCompletion.Usage.PromptTokens > 0 || chatCompletion.Usage.CompletionTokens > 0 {
		response.Usage = &model.Usage{
			PromptTokens:     int(chatCompletion.Usage.PromptTokens),
			CompletionTokens: int(chatCompletion.Usage.CompletionTokens),
			TotalTokens:      int(chatCompletion.Usage.TotalTokens),
		}
	}
	return response
}

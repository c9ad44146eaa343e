//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-ai/nimbus/model"
	"github.com/nimbus-ai/nimbus/weather"
)

// fakeModel returns scripted responses and records every request it sees.
type fakeModel struct {
	responses []*model.Response
	errs      []error
	requests  []*model.Request
}

func (f *fakeModel) GenerateContent(_ context.Context, req *model.Request) (*model.Response, error) {
	call := len(f.requests)
	f.requests = append(f.requests, req)
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	return f.responses[call], nil
}

func (f *fakeModel) Info() model.Info {
	return model.Info{Name: "fake-model"}
}

func textResponse(content string) *model.Response {
	finishReason := "stop"
	return &model.Response{
		Choices: []model.Choice{{
			Message:      model.NewAssistantMessage(content),
			FinishReason: &finishReason,
		}},
	}
}

func toolCallResponse(toolCalls ...model.ToolCall) *model.Response {
	finishReason := "tool_calls"
	return &model.Response{
		Choices: []model.Choice{{
			Message: model.Message{
				Role:      model.RoleAssistant,
				ToolCalls: toolCalls,
			},
			FinishReason: &finishReason,
		}},
	}
}

func weatherCall(id, args string) model.ToolCall {
	return model.ToolCall{
		ID:   id,
		Type: "function",
		Function: model.FunctionDefinitionParam{
			Name:      weather.ToolName,
			Arguments: []byte(args),
		},
	}
}

func TestRunNoToolCall(t *testing.T) {
	m := &fakeModel{responses: []*model.Response{
		textResponse("It is sunny."),
	}}
	o := New(m, WithTools(weather.New()))

	result, err := o.Run(context.Background(), "resp_0123456789ab", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "It is sunny.", result.FinalText)
	assert.Empty(t, result.GroundingContext)
	// No second call was issued.
	assert.Len(t, m.requests, 1)

	// The first call offered the tool with auto tool choice.
	require.Contains(t, m.requests[0].Tools, weather.ToolName)
	assert.Equal(t, model.ToolChoiceAuto, m.requests[0].ToolChoice)
}

func TestRunWithToolCall(t *testing.T) {
	m := &fakeModel{responses: []*model.Response{
		toolCallResponse(weatherCall("call_1", `{"location":"Paris","unit":"fahrenheit"}`)),
		textResponse("It is 72F and sunny in Paris."),
	}}
	o := New(m, WithTools(weather.New()))

	result, err := o.Run(context.Background(), "resp_0123456789ab", "Weather in Paris?")
	require.NoError(t, err)
	assert.Equal(t, "It is 72F and sunny in Paris.", result.FinalText)

	wantRecord := `{"location":"Paris","temperature":72,"unit":"fahrenheit","condition":"Sunny","humidity":65,"wind_speed":10}`
	assert.JSONEq(t, wantRecord, result.GroundingContext)

	// Second call carries the full history in order and offers no tools.
	require.Len(t, m.requests, 2)
	second := m.requests[1]
	assert.Empty(t, second.Tools)
	require.Len(t, second.Messages, 4)
	assert.Equal(t, model.RoleSystem, second.Messages[0].Role)
	assert.Equal(t, SystemPrompt, second.Messages[0].Content)
	assert.Equal(t, model.RoleUser, second.Messages[1].Role)
	assert.Equal(t, model.RoleAssistant, second.Messages[2].Role)
	require.Len(t, second.Messages[2].ToolCalls, 1)
	assert.Equal(t, model.RoleTool, second.Messages[3].Role)
	assert.Equal(t, "call_1", second.Messages[3].ToolID)
	assert.Equal(t, weather.ToolName, second.Messages[3].ToolName)
	assert.JSONEq(t, wantRecord, second.Messages[3].Content)
}

func TestRunUnknownToolIgnored(t *testing.T) {
	unknown := model.ToolCall{
		ID:   "call_x",
		Type: "function",
		Function: model.FunctionDefinitionParam{
			Name:      "get_stock_price",
			Arguments: []byte(`{"symbol":"ACME"}`),
		},
	}
	m := &fakeModel{responses: []*model.Response{
		toolCallResponse(unknown),
		textResponse("I cannot help with that."),
	}}
	o := New(m, WithTools(weather.New()))

	result, err := o.Run(context.Background(), "resp_0123456789ab", "Stock price of ACME?")
	require.NoError(t, err)
	assert.Equal(t, "I cannot help with that.", result.FinalText)
	assert.Empty(t, result.GroundingContext)

	// No tool message was appended for the dropped call.
	require.Len(t, m.requests, 2)
	require.Len(t, m.requests[1].Messages, 3)
	assert.Equal(t, model.RoleAssistant, m.requests[1].Messages[2].Role)
}

func TestRunUnknownToolErrorPolicy(t *testing.T) {
	unknown := model.ToolCall{
		ID:   "call_x",
		Type: "function",
		Function: model.FunctionDefinitionParam{
			Name:      "get_stock_price",
			Arguments: []byte(`{}`),
		},
	}
	m := &fakeModel{responses: []*model.Response{
		toolCallResponse(unknown),
		textResponse("Sorry."),
	}}
	o := New(m, WithTools(weather.New()), WithUnknownToolPolicy(UnknownToolError))

	_, err := o.Run(context.Background(), "resp_0123456789ab", "Stock price?")
	require.NoError(t, err)

	require.Len(t, m.requests, 2)
	history := m.requests[1].Messages
	require.Len(t, history, 4)
	assert.Equal(t, model.RoleTool, history[3].Role)
	assert.Equal(t, "call_x", history[3].ToolID)
	assert.Contains(t, history[3].Content, "unknown tool")
}

func TestRunMalformedToolArgsFailsRequest(t *testing.T) {
	m := &fakeModel{responses: []*model.Response{
		toolCallResponse(weatherCall("call_1", `{not json`)),
	}}
	o := New(m, WithTools(weather.New()))

	_, err := o.Run(context.Background(), "resp_0123456789ab", "Weather?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), weather.ToolName)
}

func TestRunFirstCallErrorPropagates(t *testing.T) {
	m := &fakeModel{
		responses: []*model.Response{nil},
		errs:      []error{assert.AnError},
	}
	o := New(m, WithTools(weather.New()))

	_, err := o.Run(context.Background(), "resp_0123456789ab", "Weather?")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRunEmptyChoices(t *testing.T) {
	m := &fakeModel{responses: []*model.Response{{}}}
	o := New(m, WithTools(weather.New()))

	_, err := o.Run(context.Background(), "resp_0123456789ab", "Weather?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

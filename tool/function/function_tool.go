//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Package function provides function-based tool implementations.
package function

import (
	"context"
	"encoding/json"

	"github.com/nimbus-ai/nimbus/log"
	"github.com/nimbus-ai/nimbus/tool"
)

// FunctionTool wraps a Go function as a tool that can be called with JSON
// arguments and returns a JSON-serializable result.
type FunctionTool[I, O any] struct {
	name        string
	description string
	inputSchema *tool.Schema
	fn          func(context.Context, I) (O, error)
}

// Option configures a FunctionTool.
type Option func(*functionToolOptions)

type functionToolOptions struct {
	name        string
	description string
	inputSchema *tool.Schema
}

// WithName sets the name of the function tool.
//
// Note: tool names must comply with LLM API requirements; use only English
// letters, numbers, underscores, and hyphens.
func WithName(name string) Option {
	return func(opts *functionToolOptions) {
		opts.name = name
	}
}

// WithDescription sets the description of the function tool.
func WithDescription(description string) Option {
	return func(opts *functionToolOptions) {
		opts.description = description
	}
}

// WithInputSchema sets the input schema for the function tool.
func WithInputSchema(schema *tool.Schema) Option {
	return func(opts *functionToolOptions) {
		opts.inputSchema = schema
	}
}

// NewFunctionTool creates a new FunctionTool wrapping fn.
func NewFunctionTool[I, O any](fn func(context.Context, I) (O, error), opts ...Option) *FunctionTool[I, O] {
	options := &functionToolOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.name == "" {
		log.Warnf("FunctionTool: name is empty")
	}
	if options.description == "" {
		log.Warnf("FunctionTool: description is empty")
	}
	return &FunctionTool[I, O]{
		name:        options.name,
		description: options.description,
		inputSchema: options.inputSchema,
		fn:          fn,
	}
}

// Call executes the function tool with the provided JSON arguments.
// It unmarshals the arguments into the tool's input type, then calls the
// underlying function.
func (ft *FunctionTool[I, O]) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	var input I
	if err := json.Unmarshal(jsonArgs, &input); err != nil {
		return nil, err
	}
	return ft.fn(ctx, input)
}

// Declaration returns the tool's declaration information.
func (ft *FunctionTool[I, O]) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        ft.name,
		Description: ft.description,
		InputSchema: ft.inputSchema,
	}
}

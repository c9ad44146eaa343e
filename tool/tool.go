//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Package tool provides tool interfaces used by the chat orchestration layer.
package tool

import "context"

// Tool is the interface that all tools must implement.
type Tool interface {
	// Declaration returns the metadata describing the tool to the model.
	Declaration() *Declaration
}

// CallableTool is a tool that can be executed with JSON-encoded arguments.
type CallableTool interface {
	Tool

	// Call executes the tool with JSON-encoded arguments and returns the
	// result, which is JSON-serializable.
	Call(ctx context.Context, jsonArgs []byte) (any, error)
}

// Declaration describes a tool: its name, purpose, and argument schema.
type Declaration struct {
	// Name is the function name offered to the model.
	// Must match ^[a-zA-Z0-9_-]+$ for LLM API compatibility.
	Name string `json:"name"`
	// Description tells the model when and how to call the tool.
	Description string `json:"description"`
	// InputSchema is the JSON schema of the tool arguments.
	InputSchema *Schema `json:"input_schema,omitempty"`
	// OutputSchema is the JSON schema of the tool result.
	OutputSchema *Schema `json:"output_schema,omitempty"`
}

// Schema is a JSON schema fragment describing tool inputs or outputs.
type Schema struct {
	// Type is the JSON schema type: "object", "string", "number", etc.
	Type string `json:"type,omitempty"`
	// Description is the human-readable description of the value.
	Description string `json:"description,omitempty"`
	// Properties maps field names to their schemas for object types.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Required lists the property names that must be present.
	Required []string `json:"required,omitempty"`
	// Enum restricts string values to a fixed set.
	Enum []string `json:"enum,omitempty"`
	// Items is the schema of array elements.
	Items *Schema `json:"items,omitempty"`
}

//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

package openai

import (
	openaiopt "github.com/openai/openai-go/option"
)

// options contains configuration options for the OpenAI-compatible model.
type options struct {
	// APIKey is the API key for authentication.
	APIKey string
	// BaseURL is the base URL for a plain OpenAI-compatible endpoint.
	BaseURL string
	// AzureEndpoint is the Azure OpenAI resource endpoint. When set, the
	// client authenticates against Azure instead of a plain endpoint.
	AzureEndpoint string
	// AzureAPIVersion is the Azure OpenAI API version query parameter.
	AzureAPIVersion string
	// OpenAIOptions are extra request options passed through to the client.
	OpenAIOptions []openaiopt.RequestOption
}

var defaultOptions = options{
	AzureAPIVersion: defaultAzureAPIVersion,
}

// Option configures the model.
type Option func(*options)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.APIKey = key
	}
}

// WithBaseURL sets the base URL for an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.BaseURL = url
	}
}

// WithAzure points the client at an Azure OpenAI resource. The endpoint is
// the resource URL (https://<resource>.openai.azure.com) and apiVersion is
// the Azure API version; an empty apiVersion selects the default.
func WithAzure(endpoint, apiVersion string) Option {
	return func(o *options) {
		o.AzureEndpoint = endpoint
		if apiVersion != "" {
			o.AzureAPIVersion = apiVersion
		}
	}
}

// WithOpenAIOptions appends extra request options for the underlying client.
func WithOpenAIOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) {
		o.OpenAIOptions = append(o.OpenAIOptions, opts...)
	}
}

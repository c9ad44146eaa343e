//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Package weather provides the get_weather tool: a deterministic mock weather
// lookup exposed to the model via function calling.
package weather

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nimbus-ai/nimbus/log"
	"github.com/nimbus-ai/nimbus/telemetry"
	"github.com/nimbus-ai/nimbus/tool"
	"github.com/nimbus-ai/nimbus/tool/function"
)

// ToolName is the function name offered to the model.
const ToolName = "get_weather"

// Temperature unit constants.
const (
	UnitCelsius    = "celsius"
	UnitFahrenheit = "fahrenheit"
)

// query is the tool input parsed from the model's JSON arguments.
type query struct {
	Location string `json:"location"`
	Unit     string `json:"unit,omitempty"`
}

// Report is the weather data returned to the model.
type Report struct {
	Location    string `json:"location"`
	Temperature int    `json:"temperature"`
	Unit        string `json:"unit"`
	Condition   string `json:"condition"`
	Humidity    int    `json:"humidity"`
	WindSpeed   int    `json:"wind_speed"`
}

// New creates the get_weather tool.
func New() tool.CallableTool {
	return function.NewFunctionTool(
		fetch,
		function.WithName(ToolName),
		function.WithDescription("Get the current weather for a specific location"),
		function.WithInputSchema(&tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"location": {
					Type:        "string",
					Description: "The city and state, e.g., San Francisco, CA",
				},
				"unit": {
					Type:        "string",
					Enum:        []string{UnitCelsius, UnitFahrenheit},
					Description: "The temperature unit to use",
				},
			},
			Required: []string{"location"},
		}),
	)
}

// fetch simulates a weather API call. The data is fixed apart from the unit
// conversion, which keeps the tool deterministic.
func fetch(ctx context.Context, q query) (Report, error) {
	_, span := telemetry.Tracer.Start(ctx, telemetry.NewExecuteToolSpanName(ToolName))
	defer span.End()

	unit := q.Unit
	if unit == "" {
		unit = UnitCelsius
	}
	temperature := 22
	if unit == UnitFahrenheit {
		temperature = 72
	}
	report := Report{
		Location:    q.Location,
		Temperature: temperature,
		Unit:        unit,
		Condition:   "Sunny",
		Humidity:    65,
		WindSpeed:   10,
	}

	span.SetAttributes(
		attribute.String(telemetry.KeyGenAIToolName, ToolName),
		attribute.String("location", q.Location),
		attribute.String("unit", unit),
		attribute.Int("weather.temperature", report.Temperature),
		attribute.String("weather.condition", report.Condition),
	)
	log.Infof("Fetched weather for %s: %+v", q.Location, report)
	return report, nil
}

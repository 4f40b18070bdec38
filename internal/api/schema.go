package api

import (
	"sync"

	"github.com/Jeffail/gabs/v2"

	"github.com/sflowg/workflow-compiler/internal/graph"
)

var (
	schemaOnce sync.Once
	schemaDoc  *gabs.Container
)

// workflowSchema describes the accepted workflow payload as a draft-07 JSON
// schema. Node kinds and retry strategies come from the graph package so the
// document never drifts from what construction accepts.
func workflowSchema() *gabs.Container {
	schemaOnce.Do(func() {
		s := gabs.New()
		s.Set("http://json-schema.org/draft-07/schema#", "$schema")
		s.Set("WorkflowDefinition", "title")
		s.Set("object", "type")
		s.Set([]any{"nodes", "edges"}, "required")

		s.Set("string", "properties", "id", "type")
		s.Set("string", "properties", "name", "type")

		s.Set("array", "properties", "nodes", "type")
		s.SetP("#/definitions/node", "properties.nodes.items.$ref")
		s.Set("array", "properties", "edges", "type")
		s.SetP("#/definitions/edge", "properties.edges.items.$ref")
		s.Set("array", "properties", "variables", "type")
		s.SetP("#/definitions/variable", "properties.variables.items.$ref")
		s.SetP("#/definitions/settings", "properties.settings.$ref")

		kinds := make([]any, 0)
		for _, k := range graph.Kinds() {
			kinds = append(kinds, string(k))
		}
		node, _ := s.Object("definitions", "node")
		node.Set("object", "type")
		node.Set([]any{"id", "type"}, "required")
		node.Set("string", "properties", "id", "type")
		node.Set(kinds, "properties", "type", "enum")
		node.Set("object", "properties", "data", "type")
		for _, field := range []string{
			"label", "componentId", "componentName", "activityName", "signalName",
			"workflowId", "condition", "triggerType", "schedule", "timeout", "description",
		} {
			node.Set("string", "properties", "data", "properties", field, "type")
		}
		node.Set("#/definitions/retryPolicy", "properties", "data", "properties", "retryPolicy", "$ref")
		node.Set("object", "properties", "data", "properties", "config", "type")
		node.Set("object", "properties", "position", "type")

		edge, _ := s.Object("definitions", "edge")
		edge.Set("object", "type")
		edge.Set([]any{"id", "source", "target"}, "required")
		for _, field := range []string{"id", "source", "target", "sourceHandle", "targetHandle", "label", "type"} {
			edge.Set("string", "properties", field, "type")
		}

		variable, _ := s.Object("definitions", "variable")
		variable.Set("object", "type")
		variable.Set([]any{"name", "type"}, "required")
		variable.Set("string", "properties", "name", "type")
		variable.Set([]any{
			string(graph.VarString), string(graph.VarNumber), string(graph.VarBoolean),
			string(graph.VarArray), string(graph.VarObject),
		}, "properties", "type", "enum")
		variable.Set("boolean", "properties", "required", "type")

		retry, _ := s.Object("definitions", "retryPolicy")
		retry.Set("object", "type")
		retry.Set([]any{"strategy"}, "required")
		retry.Set([]any{
			string(graph.RetryKeepTrying), string(graph.RetryFailAfterX),
			string(graph.RetryExponentialBackoff), string(graph.RetryNone),
		}, "properties", "strategy", "enum")
		retry.Set("integer", "properties", "maxAttempts", "type")
		retry.Set(1, "properties", "maxAttempts", "minimum")
		retry.Set("string", "properties", "initialInterval", "type")
		retry.Set("string", "properties", "maxInterval", "type")
		retry.Set("number", "properties", "backoffCoefficient", "type")
		retry.Set(1, "properties", "backoffCoefficient", "minimum")

		settings, _ := s.Object("definitions", "settings")
		settings.Set("object", "type")
		for _, field := range []string{"timeout", "taskQueue", "description", "version"} {
			settings.Set("string", "properties", field, "type")
		}
		settings.Set("#/definitions/retryPolicy", "properties", "retryPolicy", "$ref")

		schemaDoc = s
	})
	return schemaDoc
}

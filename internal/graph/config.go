package graph

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// LoopConfig is the typed form of a loop node's config map.
type LoopConfig struct {
	Condition     string `json:"condition"`
	MaxIterations int    `json:"maxIterations"`
	Collection    string `json:"collection"`
}

// StateVariableConfig is the typed form of a state-variable node's config map.
type StateVariableConfig struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Operation    string `json:"operation"`
	DefaultValue any    `json:"defaultValue"`
	Value        any    `json:"value"`
}

// APIEndpointConfig is the typed form of an api-endpoint node's config map.
type APIEndpointConfig struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	RequestSchema  map[string]any `json:"requestSchema"`
	ResponseSchema map[string]any `json:"responseSchema"`
}

// DecodeConfig maps a node's open config map onto target using json tag names.
// Unset keys leave target's fields untouched.
func DecodeConfig(cfg map[string]any, target any) error {
	if len(cfg) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode node config: %w", err)
	}
	return nil
}

// Loop returns the node's loop config. The node-level condition is used when
// the config map does not carry one.
func (n *Node) Loop() (LoopConfig, error) {
	var c LoopConfig
	if err := DecodeConfig(n.Data.Config, &c); err != nil {
		return c, err
	}
	if c.Condition == "" {
		c.Condition = n.Data.Condition
	}
	return c, nil
}

// StateVariable returns the node's state-variable config. The label is the
// variable name when the config map does not name one.
func (n *Node) StateVariable() (StateVariableConfig, error) {
	var c StateVariableConfig
	if err := DecodeConfig(n.Data.Config, &c); err != nil {
		return c, err
	}
	if c.Name == "" {
		c.Name = n.Data.Label
	}
	if c.Operation == "" {
		c.Operation = "set"
	}
	return c, nil
}

// APIEndpoint returns the node's api-endpoint config with GET as default method.
func (n *Node) APIEndpoint() (APIEndpointConfig, error) {
	var c APIEndpointConfig
	if err := DecodeConfig(n.Data.Config, &c); err != nil {
		return c, err
	}
	if c.Method == "" {
		c.Method = "GET"
	}
	return c, nil
}

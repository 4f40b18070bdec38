package codegen

import (
	"encoding/json"
	"fmt"
)

// Versions pinned in generated manifests.
const (
	temporalVersion   = "^1.11.0"
	typescriptVersion = "^5.4.0"
	eslintVersion     = "^8.57.0"
	tsEslintVersion   = "^7.18.0"
	nodeTypesVersion  = "^20.11.0"
)

type npmPackage struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	Private         bool              `json:"private"`
	Main            string            `json:"main"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

type compilerOptions struct {
	Target                           string   `json:"target"`
	Module                           string   `json:"module"`
	Lib                              []string `json:"lib"`
	Strict                           bool     `json:"strict"`
	NoImplicitAny                    bool     `json:"noImplicitAny"`
	EsModuleInterop                  bool     `json:"esModuleInterop"`
	SkipLibCheck                     bool     `json:"skipLibCheck"`
	ForceConsistentCasingInFileNames bool     `json:"forceConsistentCasingInFileNames"`
	OutDir                           string   `json:"outDir"`
	RootDir                          string   `json:"rootDir"`
	Declaration                      bool     `json:"declaration"`
	SourceMap                        bool     `json:"sourceMap"`
}

type tsConfig struct {
	CompilerOptions compilerOptions `json:"compilerOptions"`
	Include         []string        `json:"include"`
	Exclude         []string        `json:"exclude"`
}

func marshalManifest(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return string(data) + "\n", nil
}

func packageManifest(name, version, description string) (string, error) {
	pkg := toKebabCase(name)
	if pkg == "" {
		pkg = "workflow"
	}
	if version == "" {
		version = "1.0.0"
	}
	return marshalManifest(npmPackage{
		Name:        pkg,
		Version:     version,
		Description: description,
		Private:     true,
		Main:        "lib/worker.js",
		Scripts: map[string]string{
			"build": "tsc",
			"start": "node lib/worker.js",
			"lint":  "eslint src --ext .ts",
		},
		Dependencies: map[string]string{
			"@temporalio/activity": temporalVersion,
			"@temporalio/client":   temporalVersion,
			"@temporalio/worker":   temporalVersion,
			"@temporalio/workflow": temporalVersion,
		},
		DevDependencies: map[string]string{
			"@types/node":                      nodeTypesVersion,
			"@typescript-eslint/eslint-plugin": tsEslintVersion,
			"@typescript-eslint/parser":        tsEslintVersion,
			"eslint":                           eslintVersion,
			"typescript":                       typescriptVersion,
		},
	})
}

func buildConfig(strict bool) (string, error) {
	return marshalManifest(tsConfig{
		CompilerOptions: compilerOptions{
			Target:                           "es2020",
			Module:                           "commonjs",
			Lib:                              []string{"es2020"},
			Strict:                           strict,
			NoImplicitAny:                    strict,
			EsModuleInterop:                  true,
			SkipLibCheck:                     true,
			ForceConsistentCasingInFileNames: true,
			OutDir:                           "./lib",
			RootDir:                          "./src",
			Declaration:                      true,
			SourceMap:                        true,
		},
		Include: []string{"src/**/*.ts"},
		Exclude: []string{"node_modules", "lib"},
	})
}

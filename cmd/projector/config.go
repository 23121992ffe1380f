package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hanpama/projector/internal/fixture"
	"github.com/hanpama/projector/internal/logging"
	"github.com/hanpama/projector/internal/registry"
	"github.com/hanpama/projector/internal/schema"
)

type config struct {
	Schema    string
	Data      string
	Query     string
	Type      string
	Variables string
	Operation string

	Concurrency int
	MaxDepth    int
	Pretty      bool
	Metrics     bool

	LogLevel  string
	LogPretty bool

	OtelEndpoint string
	OtelService  string
}

func loadConfig(v *viper.Viper) config {
	return config{
		Schema:       v.GetString("schema"),
		Data:         v.GetString("data"),
		Query:        v.GetString("query"),
		Type:         v.GetString("type"),
		Variables:    v.GetString("variables"),
		Operation:    v.GetString("operation"),
		Concurrency:  v.GetInt("concurrency"),
		MaxDepth:     v.GetInt("max-depth"),
		Pretty:       v.GetBool("pretty"),
		Metrics:      v.GetBool("metrics"),
		LogLevel:     v.GetString("log.level"),
		LogPretty:    v.GetBool("log.pretty"),
		OtelEndpoint: v.GetString("otel.endpoint"),
		OtelService:  v.GetString("otel.service"),
	}
}

func (c config) logger(w io.Writer) (zerolog.Logger, error) {
	return logging.New(w, c.LogLevel, c.LogPretty)
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, fmt.Errorf("--schema is required")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sch, err := schema.BuildFromSDLNamed(path, string(src))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

// loadRegistry registers fixture-backed resolvers for every type of sch.
// Without a data file every type resolves to no records.
func loadRegistry(sch *schema.Schema, dataPath string) (*registry.Registry, fixture.Data, error) {
	data := fixture.Data{}
	if dataPath != "" {
		var err error
		if data, err = fixture.LoadFile(dataPath); err != nil {
			return nil, nil, fmt.Errorf("load data: %w", err)
		}
	}
	reg := registry.New(sch)
	if err := fixture.Register(reg, sch, data); err != nil {
		return nil, nil, fmt.Errorf("register fixture: %w", err)
	}
	return reg, data, nil
}

// parseVariables decodes a YAML (or JSON) mapping of variable values.
func parseVariables(src string) (map[string]any, error) {
	if src == "" {
		return nil, nil
	}
	var vars map[string]any
	if err := yaml.Unmarshal([]byte(src), &vars); err != nil {
		return nil, fmt.Errorf("parse variables: %w", err)
	}
	return vars, nil
}

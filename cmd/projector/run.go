package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hanpama/projector/internal/eventbus"
	"github.com/hanpama/projector/internal/executor"
	"github.com/hanpama/projector/internal/logging"
	"github.com/hanpama/projector/internal/metrics"
	"github.com/hanpama/projector/internal/otel"
	"github.com/hanpama/projector/internal/query"
	"github.com/hanpama/projector/internal/schema"
)

func newRunCmd(v *viper.Viper, stdin io.Reader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [document]",
		Short: "Execute a selection document and print the results as JSON",
		Long: `Execute every root selection of a GraphQL selection document and print
the results as a JSON array, in document order.

The document is taken from the argument, or from --query (a file path, or
"-" for stdin). A root field names the entity type; add @collection to
fetch the [type] collection query instead of the single one.

With --type, no document is read: the query for that type ("post" or
"[post]") runs with --variables as its arguments and returns every field
present on the result.`,
		Example: `  projector run --schema blog.graphql --data blog.yaml '{ post(id: "1") { title comments { text } } }'
  projector run --schema blog.graphql --data blog.yaml --type '[post]'`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, loadConfig(v), stdin, args)
		},
	}
	f := cmd.Flags()
	f.String("query", "", `selection document file, "-" reads stdin`)
	f.String("type", "", `run the query for one type, e.g. "[post]", without a document`)
	f.String("variables", "", "variable values as a YAML or JSON mapping")
	f.String("operation", "", "operation to run when the document has several")
	f.Int("concurrency", 1, "list elements resolved at once")
	f.Int("max-depth", 32, "maximum selection depth")
	f.Bool("pretty", false, "indent JSON output")
	f.Bool("metrics", false, "write Prometheus metrics to stderr after the run")
	f.String("otel.endpoint", "", "OTLP collector endpoint")
	f.String("otel.service", "projector", "OpenTelemetry service name")
	return cmd
}

func runQuery(cmd *cobra.Command, cfg config, stdin io.Reader, args []string) error {
	ctx := cmd.Context()
	var src string
	if cfg.Type == "" {
		var err error
		if src, err = readDocument(cfg.Query, stdin, args); err != nil {
			return err
		}
	} else if len(args) > 0 {
		return fmt.Errorf("--type and a selection document are mutually exclusive")
	}
	logger, err := cfg.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	bus := eventbus.New()
	defer logging.Subscribe(bus, logger)()
	promReg := prometheus.NewRegistry()
	defer metrics.New(promReg).Subscribe(bus)()
	shutdown, err := otel.Setup(ctx, bus, cfg.OtelEndpoint, cfg.OtelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(ctx) }()

	sch, err := loadSchema(cfg.Schema)
	if err != nil {
		return err
	}
	reg, _, err := loadRegistry(sch, cfg.Data)
	if err != nil {
		return err
	}
	vars, err := parseVariables(cfg.Variables)
	if err != nil {
		return err
	}
	qs, err := buildQueries(sch, cfg, src, vars)
	if err != nil {
		return err
	}

	exec := executor.NewExecutor(reg,
		executor.WithConcurrency(cfg.Concurrency),
		executor.WithMaxDepth(cfg.MaxDepth),
		executor.WithEventBus(bus),
	)
	results, err := exec.ExecuteAll(ctx, qs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(results); err != nil {
		return err
	}
	if cfg.Metrics {
		return metrics.Dump(cmd.ErrOrStderr(), promReg)
	}
	return nil
}

func readDocument(path string, stdin io.Reader, args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case path == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case path != "":
		b, err := os.ReadFile(path)
		return string(b), err
	}
	return "", fmt.Errorf("no selection document: pass one as an argument or use --query")
}

func buildQueries(sch *schema.Schema, cfg config, src string, vars map[string]any) ([]*query.Query, error) {
	if cfg.Type != "" {
		ref, err := schema.ParseTypeRef(cfg.Type)
		if err != nil {
			return nil, err
		}
		if err := sch.Check(ref.Elem()); err != nil {
			return nil, err
		}
		return []*query.Query{{Type: ref, Args: vars}}, nil
	}
	qs, err := query.Parse(src, query.ParseOptions{
		Schema:        sch,
		OperationName: cfg.Operation,
		Variables:     vars,
	})
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return qs, nil
}

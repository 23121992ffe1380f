package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(viper.New(), stdin)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(v *viper.Viper, stdin io.Reader) *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "projector",
		Short: "Resolve selection documents against a schema and a data source",
		Long: `projector runs declarative selection documents against entity types
declared in GraphQL SDL. Root queries and @join fields are served from a
YAML fixture; every result is projected to exactly the selected fields and
tagged with its entity type in "__type".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd, cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./projector.yaml)")
	root.PersistentFlags().String("schema", "", "GraphQL SDL file declaring the entity types")
	root.PersistentFlags().String("data", "", "YAML fixture file with records per type")
	root.PersistentFlags().String("log.level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().Bool("log.pretty", false, "human-readable console logs")

	root.AddCommand(newRunCmd(v, stdin), newCheckCmd(v))
	return root
}

// initConfig layers flags over PROJECTOR_* environment variables over the
// config file.
func initConfig(v *viper.Viper, cmd *cobra.Command, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("projector")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("PROJECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return v.BindPFlags(cmd.InheritedFlags())
}

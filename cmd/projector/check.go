package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hanpama/projector/internal/schema"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the schema (and fixture) and print the normalized SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(v)
			logger, err := cfg.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			sch, err := loadSchema(cfg.Schema)
			if err != nil {
				return err
			}
			reg, data, err := loadRegistry(sch, cfg.Data)
			if err != nil {
				return err
			}
			for _, name := range sch.TypeNames() {
				logger.Debug().
					Str("type", name).
					Strs("resolvers", reg.Fields(name)).
					Msg("type registered")
			}
			logger.Info().
				Strs("types", sch.TypeNames()).
				Strs("data", data.Types()).
				Int("queries", len(reg.Queries())).
				Msg("schema ok")
			_, err = fmt.Fprint(cmd.OutOrStdout(), schema.Render(sch))
			return err
		},
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/forestfire/config"
	"github.com/YuminosukeSato/forestfire/pkg/log"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: stage(func(cmd *cobra.Command, _ []string) error {
			out, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "write <path>",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: stage(func(cmd *cobra.Command, args []string) error {
			if err := config.Save(a.cfg, args[0]); err != nil {
				return err
			}
			a.logger.Info("Configuration written", log.PathKey, args[0])
			return nil
		}),
	})
	return cmd
}

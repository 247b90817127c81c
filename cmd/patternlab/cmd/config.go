package cmd

import (
	"github.com/spf13/cobra"
)

var configOut string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print or save the resolved configuration",
	Long: `Print the configuration after defaults, the config file and the
environment are merged. With --out the YAML is written to a file that
--config can load later.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringVarP(&configOut, "out", "o", "", "write the configuration to this file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configOut != "" {
		if err := cfg.SaveToFile(configOut); err != nil {
			return err
		}
		logger.Info("config saved", "path", configOut)
		return nil
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

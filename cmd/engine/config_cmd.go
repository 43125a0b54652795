package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"activitytracker-engine/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and maintain the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config if none exists and print its path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report config errors and warnings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		_, vr := config.NormalizeAndValidate(cfg)
		for _, w := range vr.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
		}
		for _, e := range vr.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", e)
		}
		if !vr.OK() {
			return fmt.Errorf("%s: %d error(s)", path, len(vr.Errors))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		return nil
	},
}

var configNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rewrite the config file in normalized form",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		normalized, vr := config.NormalizeAndValidate(cfg)
		if !vr.OK() {
			return fmt.Errorf("refusing to save invalid config: %v", vr.Errors)
		}
		return config.SaveAtomic(path, normalized)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configValidateCmd, configNormalizeCmd)
	rootCmd.AddCommand(configCmd)
}

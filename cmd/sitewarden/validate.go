package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kaigosha/sitewarden/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the sitewarden configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	green.Printf("Configuration is valid: %s\n", configPath)

	fmt.Printf("  storage:  %s", cfg.Storage.Type)
	if cfg.Storage.Type == "bolt" {
		fmt.Printf(" (%s)", cfg.Storage.Path)
	}
	fmt.Println()
	fmt.Printf("  api:      %s:%d\n", cfg.Server.BindAddress, cfg.Server.APIPort)
	fmt.Printf("  metrics:  %s:%d\n", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	fmt.Printf("  logging:  %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)

	return nil
}

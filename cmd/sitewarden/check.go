package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kaigosha/sitewarden/internal/config"
	"github.com/kaigosha/sitewarden/internal/guard"
	"github.com/kaigosha/sitewarden/internal/limits"
)

var checkCmd = &cobra.Command{
	Use:   "check URL",
	Short: "Check the current decision for a URL",
	Long:  `Check whether sitewarden currently tracks and blocks a URL, using the live stored state.`,
	Example: `  sitewarden -c config.yaml check https://x.com/home
  sitewarden check https://news.example.org/article`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	rawURL := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Quiet logger for check mode
	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	g, err := guard.New(cmd.Context(), guard.Options{
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize guard: %w", err)
	}

	status, err := g.StatusForURL(cmd.Context(), rawURL)
	if err != nil {
		return err
	}

	printCheckResult(rawURL, status)
	return nil
}

// printCheckResult prints the check result with colors
func printCheckResult(rawURL string, status *limits.SiteStatus) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println("──────────────────────────────────────────────────")
	cyan.Println("SITE LIMIT CHECK")
	cyan.Println("──────────────────────────────────────────────────")
	fmt.Println()

	fmt.Printf("URL:        %s\n", rawURL)

	if status == nil {
		fmt.Println()
		cyan.Print("Decision:   ")
		green.Println("NOT TRACKED")
		fmt.Println("            → No configured site matches this URL")
		fmt.Println()
		return
	}

	fmt.Printf("Site:       %s (%s)\n", status.Label, status.ID)
	fmt.Printf("Daily:      %ds used, %ds remaining\n", status.DailyUsedSec, status.DailyRemainingSec)
	fmt.Printf("Session:    %ds used, %ds remaining\n", status.SessionUsedSec, status.SessionRemainingSec)
	fmt.Println()

	cyan.Print("Decision:   ")
	switch {
	case status.BreakGlassActive:
		yellow.Println("OVERRIDE ACTIVE")
		fmt.Printf("            → Break-glass override, %ds remaining\n", status.BreakGlassRemainingSec)
	case status.Blocked && status.Reason == limits.ReasonDaily:
		red.Println("BLOCKED (daily limit)")
		fmt.Println("            → Blocked until next local midnight")
	case status.Blocked:
		red.Println("BLOCKED (cooldown)")
		fmt.Printf("            → Cooldown ends in %ds\n", status.RemainingSec)
	default:
		green.Println("ALLOWED")
	}

	fmt.Println()
	cyan.Println("──────────────────────────────────────────────────")
	fmt.Println()
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/feynmanium/feynmanium/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Write a default configuration",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	path := configFile()

	if fileExists(path) {
		fmt.Printf("Config already exists at %s\n", path)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(path)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, path); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", path)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, path); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", path)
	}

	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	fmt.Printf("\n%s feynmanium is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Enable a channel and add its token in %s\n", path)
	fmt.Println("     or set FEYNMANIUM_DISCORD_TOKEN / FEYNMANIUM_TELEGRAM_TOKEN")
	fmt.Println("  2. Install stockfish for chess above level 0")
	fmt.Println("  3. Try it: feynmanium run roll 6 2")
	fmt.Println("  4. Start the bot: feynmanium gateway")
	return nil
}

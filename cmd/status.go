package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show feynmanium status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	path := configFile()

	fmt.Printf("%s feynmanium Status\n\n", logo)
	fmt.Printf("Config:  %s %s\n", path, mark(fileExists(path)))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Games:   %s %s\n", cfg.StorePath(), mark(fileExists(cfg.StorePath())))
	engine, lookErr := exec.LookPath(cfg.Chess.Engine)
	if lookErr != nil {
		engine = cfg.Chess.Engine + " (not found, only level 0 games will work)"
	}
	fmt.Printf("Engine:  %s %s\n", engine, mark(lookErr == nil))
	fmt.Printf("Prefix:  %s\n", cfg.Bot.Prefix)
	fmt.Printf("Translate: %s\n\n", cfg.Translate.Endpoint)

	fmt.Println("Channels:")
	for _, r := range channelRows(cfg) {
		fmt.Printf("  %-10s %s\n", r.name, r.enabled)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

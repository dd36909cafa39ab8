package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentdeck/agentdeck/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show hub status",
	Long:  `Check whether a hub is serving the configured gateway address.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:%d/healthz", cfg.Gateway.Host, cfg.Gateway.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Println("Status: stopped")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Status: unhealthy (gateway returned %d)\n", resp.StatusCode)
		return nil
	}

	fmt.Println("Status: running")
	fmt.Printf("Gateway: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	return nil
}

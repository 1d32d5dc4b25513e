package main

import (
	"fmt"
	"net/http"

	"github.com/mohammadpnp/theme-setup/internal/application/onboarding"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/ajaxclient"
	"github.com/spf13/cobra"
)

var (
	driveURL     string
	driveNonce   string
	driveDemo    int
	drivePlugins []string
	driveRounds  int
)

var driveCmd = &cobra.Command{
	Use:   "drive [kind...]",
	Short: "Run the setup wizard's import steps against a running server",
	Long: `Post the wizard's Ajax steps to a running server and follow every
redirect until each item is done, fails or stalls.

Kinds default to everything the wizard knows, in wizard order.

Examples:
  setupctl drive --url http://localhost:8080/wp-admin/admin-ajax.php --nonce abc content widgets
  setupctl drive --url http://localhost:8080/wp-admin/admin-ajax.php --nonce abc --plugin contact-form-7`,
	RunE: runDrive,
}

func init() {
	driveCmd.Flags().StringVar(&driveURL, "url", "", "Absolute admin-ajax URL")
	driveCmd.Flags().StringVar(&driveNonce, "nonce", "", "Wizard nonce")
	driveCmd.Flags().IntVar(&driveDemo, "demo", 0, "Selected demo index")
	driveCmd.Flags().StringSliceVar(&drivePlugins, "plugin", nil, "Plugin slugs to install before the content")
	driveCmd.Flags().IntVar(&driveRounds, "max-rounds", 0, "Round cap per item (default 1000)")
	_ = driveCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(driveCmd)
}

func runDrive(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	kinds := args
	if len(kinds) == 0 && len(drivePlugins) == 0 {
		for _, k := range onboarding.Kinds() {
			kinds = append(kinds, string(k))
		}
	}

	var items []ajaxclient.Item
	for _, slug := range drivePlugins {
		items = append(items, ajaxclient.PluginItem(slug))
	}
	for _, kind := range kinds {
		if _, ok := onboarding.ParseKind(kind); !ok {
			return fmt.Errorf("unknown kind %q", kind)
		}
		items = append(items, ajaxclient.ContentItem(kind, driveDemo))
	}

	driver, err := ajaxclient.NewDriver(&http.Client{}, ajaxclient.Config{
		AjaxURL:   driveURL,
		Nonce:     driveNonce,
		MaxRounds: driveRounds,
	}, logger)
	if err != nil {
		return err
	}
	outcomes, err := driver.Run(cmd.Context(), items)
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-8s rounds=%d\n", o.Item, o.Status, o.Rounds)
		if o.Status != ajaxclient.StatusDone {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d items did not finish", failed, len(outcomes))
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/mohammadpnp/theme-setup/internal/application/widget"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var widgetsCmd = &cobra.Command{
	Use:   "widgets <file.json>",
	Short: "Import a widget export into the theme's sidebars",
	Long: `Import a widget export. Widgets placed in sidebars the theme does
not register go to the inactive sidebar. Navigation menu references are
translated through the term mapping of the last content import.`,
	Args: cobra.ExactArgs(1),
	RunE: runWidgets,
}

func init() {
	rootCmd.AddCommand(widgetsCmd)
}

func runWidgets(cmd *cobra.Command, args []string) error {
	app, logger, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	termIDs, err := app.Engine.TermIDs(cmd.Context())
	if err != nil {
		logger.Warn("term mapping unavailable", zap.Error(err))
	}
	report, err := app.Widgets.ImportFile(cmd.Context(), args[0], termIDs)
	if err != nil {
		return fmt.Errorf("import widgets %s: %w", args[0], err)
	}
	fmt.Fprint(cmd.OutOrStdout(), widget.FormatReport(report))
	return nil
}

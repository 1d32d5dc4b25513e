package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.xml>",
	Short: "Import a WXR export in one pass",
	Long: `Import every author, term and post of a WXR export, then remap
parents, menu items and featured images.

Examples:
  setupctl import demo/content.xml
  setupctl import demo/content.xml --driver sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var countCmd = &cobra.Command{
	Use:   "count <file.xml>",
	Short: "Count the importable posts of a WXR export",
	Args:  cobra.ExactArgs(1),
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(countCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	app, logger, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer func() { _ = logger.Sync() }()

	res, err := app.Engine.Import(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	out, err := json.MarshalIndent(map[string]any{
		"users": res.Users,
		"terms": res.Terms,
		"posts": res.Posts,
		"remap": res.Remap,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	app, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	doc, err := app.Engine.Parse(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", doc.CountPosts())
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martinemde/magpie/netlog"
)

func newExtractCommand() *cobra.Command {
	var profileDir string
	var loginURL string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract cookies from an existing browser profile",
		Long: `Extract session cookies from the network traces left in a browser profile,
without running a login task. The cookie string is printed to stdout in
Cookie header form.

Useful when a login completed but the delivery failed, or for inspecting
what a profile currently holds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cookies, err := netlog.Extract(profileDir, loginURL, newLogger(true))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cookies)
			return nil
		},
	}

	cmd.Flags().StringVar(&profileDir, "profile", "browser_profile", "Browser profile directory containing traces/")
	cmd.Flags().StringVar(&loginURL, "login-url", "", "Login URL whose API cookies to extract")
	_ = cmd.MarkFlagRequired("login-url")

	return cmd
}

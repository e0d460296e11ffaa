package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/ocspext/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Extension profile management",
	Long: `List and inspect extension profiles.

A profile is a YAML file naming the extensions to attach to a request or
a response. Builtin profiles are compiled into the binary; any other
profile is referenced by its file path.

Examples:
  # List builtin profiles
  ocspext profile list

  # Show what a profile does
  ocspext profile show responder
  ocspext profile show ./my-profile.yaml`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List builtin profiles",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name|file>",
	Short: "Validate a profile and show its extensions",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
}

func runProfileList(cmd *cobra.Command, args []string) error {
	builtin, err := profile.BuiltinProfiles()
	if err != nil {
		return err
	}
	names, err := profile.ListBuiltinProfileNames()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-12s %-9s %s\n", "NAME", "TARGET", "DESCRIPTION")
	for _, name := range names {
		p := builtin[name]
		fmt.Fprintf(w, "%-12s %-9s %s\n", p.Name, p.Target, p.Description)
	}
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	p, err := profile.LoadProfile(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Name:        %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(w, "Target:      %s\n", p.Target)
	fmt.Fprintf(w, "Policy:      %s\n", p.Policy)
	fmt.Fprintf(w, "Extensions:\n")
	for _, line := range p.Summary() {
		fmt.Fprintf(w, "  %s\n", line)
	}
	return nil
}

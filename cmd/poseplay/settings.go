package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ayusman/poseplay/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the resolved settings as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		s, err := resolveSettings(st)
		if err != nil {
			return err
		}
		out, err := s.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set key=value...",
	Short: "Save settings that apply on every start",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := parseSets(args)
		if err != nil {
			return err
		}

		// Reject values the resolver would silently drop.
		for key, value := range pairs {
			if key == "mode" {
				if _, err := config.ModeSettings(value); err != nil {
					return err
				}
				continue
			}
			if err := config.Validate(key, value); err != nil {
				return err
			}
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		keys := make([]string, 0, len(pairs))
		for k := range pairs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := st.Settings().Set(k, pairs[k]); err != nil {
				return fmt.Errorf("failed to save %s: %w", k, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, pairs[k])
		}
		return nil
	},
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset key...",
	Short: "Remove saved settings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		for _, key := range args {
			if err := st.Settings().Delete(key); err != nil {
				return fmt.Errorf("failed to remove %s: %w", key, err)
			}
		}
		return nil
	},
}

var settingsModesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the available modes",
	Run: func(cmd *cobra.Command, args []string) {
		for _, m := range config.Modes() {
			fmt.Fprintln(cmd.OutOrStdout(), m)
		}
	},
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd, settingsUnsetCmd, settingsModesCmd)
}

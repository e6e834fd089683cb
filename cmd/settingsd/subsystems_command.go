package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"settingsd/internal/daemonrun"
)

func newSubsystemsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "subsystems",
		Short: "List hosted subsystems in start order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			planned := daemonrun.StartOrder(cfg)
			rows := make([][]string, 0, len(planned))
			for i, p := range planned {
				channel := p.Channel
				if channel == "" {
					channel = "-"
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					p.Name,
					channel,
					yesNo(p.Hotplug),
					yesNo(p.Fallible),
				})
			}
			table := renderTable([]column{
				{title: "#", right: true},
				{title: "Subsystem"},
				{title: "Channel"},
				{title: "Hotplug"},
				{title: "Fallible"},
			}, rows)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bondwg/internal/cliui"
	"bondwg/internal/management"
)

func includeCmd(socketPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "include <interface>",
		Short: "Ensure an interface is not excluded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &management.Client{SocketPath: *socketPath}
			if err := c.Include(args[0]); err != nil {
				return err
			}
			fmt.Println(cliui.SuccessMsg(fmt.Sprintf("%s included", args[0])))
			return nil
		},
	}
}

func excludeCmd(socketPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <interface>",
		Short: "Exclude an interface from scheduling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &management.Client{SocketPath: *socketPath}
			if err := c.Exclude(args[0]); err != nil {
				return err
			}
			fmt.Println(cliui.WarnMsg(fmt.Sprintf("%s excluded", args[0])))
			return nil
		},
	}
}

func resetExclusionsCmd(socketPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-exclusions",
		Short: "Clear every runtime exclusion override",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &management.Client{SocketPath: *socketPath}
			if err := c.ResetExclusions(); err != nil {
				return err
			}
			fmt.Println(cliui.SuccessMsg("exclusion overrides reset"))
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bondwg/internal/cliui"
	"bondwg/internal/management"
)

func listCmd(socketPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List links and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &management.Client{SocketPath: *socketPath}
			rows, err := c.List()
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println(cliui.Muted("no links"))
				return nil
			}

			tableRows := make([][]string, len(rows))
			for i, r := range rows {
				status := r.Status
				switch r.Status {
				case "active":
					status = cliui.Success("active")
				case "excluded":
					status = cliui.Warn("excluded")
				}
				since := "-"
				if r.SecondsSinceLastReceive != nil {
					since = fmt.Sprintf("%.1fs", *r.SecondsSinceLastReceive)
				}
				tableRows[i] = []string{r.Name, status, r.SourceAddress, r.DestinationAddress, since}
			}

			fmt.Println(cliui.Table(
				[]string{"Interface", "Status", "Source", "Destination", "Last Receive"},
				tableRows,
			))
			return nil
		},
	}
}

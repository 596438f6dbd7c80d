// cmd/loanctl/tasks.go
package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"loan-workers/pkg/registry"

	"github.com/spf13/cobra"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the service tasks from the activity registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("registry")
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK TYPE\tTIMEOUT\tRETRIES\tERROR CODES")
			for _, a := range reg.Activities {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.TaskType, a.Timeout, a.Retries, strings.Join(a.ErrorCodes, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("registry", "configs/activity-registry.json", "Path to the activity registry")
	return cmd
}

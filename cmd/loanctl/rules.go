// cmd/loanctl/rules.go
package main

import (
	"fmt"
	"text/tabwriter"

	"loan-workers/internal/decisioning"

	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the ordered rule table",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := resolvePolicy(cmd)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tRULE\tCONDITION\tOUTCOME")
			for i, rule := range decisioning.NewPolicy(policy).Rules() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, rule.ID, rule.Condition, rule.Outcome)
			}
			return tw.Flush()
		},
	}
}

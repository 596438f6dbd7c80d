// cmd/loanctl/root.go
package main

import (
	"loan-workers/internal/common/config"
	"loan-workers/internal/decisioning"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "loanctl",
		Short:         "Evaluate loan applications against the decision policy",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config", "", "Path to a worker config file whose policy section is used")
	root.PersistentFlags().Bool("independent", false, "Evaluate the credit score and income thresholds as separate rules")

	root.AddCommand(newDecideCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newTasksCmd())
	return root
}

// resolvePolicy returns the policy from --config (defaults otherwise), then applies --independent.
func resolvePolicy(cmd *cobra.Command) (decisioning.PolicyConfig, error) {
	policy := decisioning.DefaultPolicyConfig()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return decisioning.PolicyConfig{}, err
		}
		policy = cfg.Policy
	}

	if independent, _ := cmd.Flags().GetBool("independent"); independent {
		policy.EvaluateIndependently = true
	}
	return policy, nil
}

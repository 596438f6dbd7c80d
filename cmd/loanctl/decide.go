// cmd/loanctl/decide.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"loan-workers/internal/audit"
	"loan-workers/internal/common/logger"
	"loan-workers/internal/decisioning"

	"github.com/spf13/cobra"
)

var modelLabels = []string{"Decision Tree", "Logistic Regression", "Random Forest"}

func newDecideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Decide one application from a JSON file and the three model votes",
		RunE:  runDecide,
	}
	cmd.Flags().String("applicant", "", "Path to the applicant JSON file")
	cmd.Flags().IntSlice("votes", nil, "Model votes in order decision tree, logistic regression, random forest (e.g. 0,0,1)")
	_ = cmd.MarkFlagRequired("applicant")
	_ = cmd.MarkFlagRequired("votes")
	return cmd
}

func runDecide(cmd *cobra.Command, args []string) error {
	policy, err := resolvePolicy(cmd)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("applicant")
	votes, _ := cmd.Flags().GetIntSlice("votes")

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read applicant: %w", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("parse applicant: %w", err)
	}

	auditLog := logger.NewZapAdapter(logger.New("info", "console", "stderr"))
	engine := decisioning.NewEngine(policy, audit.NewMultiRecorder(audit.NewLogRecorder(auditLog)), auditLog)

	decision, _, err := engine.Evaluate(cmd.Context(), fields, votes)
	if err != nil {
		var missing *decisioning.MissingFieldError
		if errors.As(err, &missing) {
			return fmt.Errorf("please complete all fields (%s)", strings.Join(missing.Fields, ", "))
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status: %s\n", decision.Status)
	fmt.Fprintf(out, "Reason: %s\n\n", decision.Reason)
	fmt.Fprintln(out, "ML Risk Scores:")
	for i, label := range modelLabels {
		fmt.Fprintf(out, "  %s: %d\n", label, votes[i])
	}
	return nil
}

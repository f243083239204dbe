package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <owner/repo>",
	Short: "Report whether a repository publishes documentation builds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := model.ParseRepoFullName(args[0])
		if err != nil {
			return err
		}

		classifier := newClassifier(appConfig, logger)
		verdict := "not a documentation repository"
		if classifier.IsOpsRepo(cmd.Context(), ref) {
			verdict = "documentation repository"
		} else if _, settled := classifier.Cached(ref); !settled {
			verdict = "unknown (probe inconclusive)"
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ref, verdict)
		return nil
	},
}

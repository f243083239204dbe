package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/learnpreview/internal/adapter/driven/browser"
	"github.com/ericfisherdev/learnpreview/internal/application"
	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

var resolveOpen bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <pr-url> <file>",
	Short: "Print the Learn preview URL of one file in a pull request",
	Example: `  learnpreview resolve https://github.com/MicrosoftDocs/azure-docs/pull/42 articles/index.md
  learnpreview resolve --open https://github.com/dotnet/docs/pull/7/files docs/core/whats-new.md`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ref, err := model.ParseRepoRef(args[0])
		if err != nil {
			return err
		}
		if !ref.IsPullRequest() {
			return fmt.Errorf("%s is not a pull request URL", args[0])
		}
		file := model.FileNameFromLinkText(args[1])

		svc, err := newServices(ctx, appConfig, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		if !svc.classifier.IsOpsRepo(ctx, ref) {
			return fmt.Errorf("%s/%s is not a documentation repository", ref.Owner, ref.Repo)
		}

		var opener driven.URLOpener
		if resolveOpen {
			opener = browser.NewOpener(os.Stderr)
		}
		buttons := svc.newButtonManager(opener)
		buttons.SetRef(ref)
		state := buttons.CheckSharedState(ctx, true)
		logger.Debug().Str("gate", state.Gate.String()).Str("sha", state.LatestCommitSHA).Msg("pull request state")

		view, err := buttons.Click(ctx, file)
		if errors.Is(err, application.ErrButtonDisabled) {
			return fmt.Errorf("no preview for %s: %s", file, view.Reason)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), view.PreviewURL)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveOpen, "open", false, "open the preview in the default browser")
}

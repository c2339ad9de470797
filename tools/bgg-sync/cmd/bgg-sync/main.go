package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/logging"
	"github.com/josephcasey/mybgg/tools/bgg-sync/internal/app/bggsync"
)

func newRootCmd() *cobra.Command {
	var o bggsync.Options
	cmd := &cobra.Command{
		Use:   "bgg-sync",
		Short: "Download Marvel Champions plays from BoardGameGeek and index them",
		Long: `Download Marvel Champions plays from BoardGameGeek, attribute each play to a
villain and hero, and push the records to the search index.

Modes:
  index          download, tally and upload (default)
  extract_names  write the hero and villain name caches
  stats          print the villain and hero summary`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lg, err := logging.New(o.Debug)
			if err != nil {
				return err
			}
			defer lg.Sync()

			rep, err := bggsync.Execute(cmd.Context(), o, cmd.OutOrStdout(), lg)
			if err != nil {
				return err
			}
			lg.Info("done",
				zap.String("mode", rep.Mode),
				zap.Int("downloaded", rep.Downloaded),
				zap.Int("parsed", rep.Parsed),
				zap.Int("attributed", rep.Attributed),
				zap.Int("indexed", rep.Indexed))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.ConfigPath, "config", "", "path to config.json (default ./config.json)")
	f.StringVar(&o.APIKey, "apikey", "", "Algolia admin API key (overrides ALGOLIA_API_KEY)")
	f.BoolVar(&o.NoIndexing, "no-indexing", false, "skip the index upload")
	f.BoolVar(&o.CacheBGG, "cache-bgg", false, "cache BoardGameGeek responses in SQLite for a day")
	f.BoolVar(&o.Debug, "debug", false, "debug logging")
	f.StringVar(&o.Mode, "mode", bggsync.ModeIndex, "index | extract_names | stats")
	return cmd
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(bggsync.LambdaEntrypoint)
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/josephcasey/mybgg/internal/cache"
	appconfig "github.com/josephcasey/mybgg/internal/config"
	"github.com/josephcasey/mybgg/internal/logging"
	"github.com/josephcasey/mybgg/tools/card-art/internal/app/art"
)

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		mode    string
		debug   bool
		useOCR  bool
	)
	cmd := &cobra.Command{
		Use:   "card-art",
		Short: "Find hero and villain card images on the Hall of Heroes wiki",
		Long: `Look up card art for every hero and villain in the name caches written by
bgg-sync --mode extract_names, and write hero_images.json / villain_images.json.

Modes: heroes, villains, all`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			lg, err := logging.New(debug)
			if err != nil {
				return err
			}
			defer lg.Sync()

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			var store cache.Store = cache.NewFileStore(cfg.Cache.Dir)
			if cfg.Cache.Backend == "s3" {
				awsCfg, err := config.LoadDefaultConfig(ctx)
				if err != nil {
					return fmt.Errorf("aws config: %w", err)
				}
				store = cache.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Cache.Bucket, cfg.Cache.Prefix)
			}

			svc := &art.Service{
				Store: store,
				NewLocator: art.WebLocators(art.LocatorSettings{
					BrowseURL:    cfg.CardArt.BrowseURL,
					HeroDelay:    cfg.CardArt.HeroDelay,
					VillainDelay: cfg.CardArt.VillainDelay,
					OCRKey:       cfg.OCR.APIKey,
					OCREndpoint:  cfg.OCR.Endpoint,
					UseOCR:       useOCR,
				}, lg),
				Log: lg,
			}
			_, err = svc.Run(ctx, mode)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config.json (default ./config.json)")
	f.StringVar(&mode, "mode", art.ModeAll, "heroes | villains | all")
	f.BoolVar(&debug, "debug", false, "debug logging")
	f.BoolVar(&useOCR, "ocr", true, "read card type lines with OCR to tell hero from alter-ego (needs OCR_SPACE_API_KEY)")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

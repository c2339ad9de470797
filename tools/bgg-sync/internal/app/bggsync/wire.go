package bggsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/bgg"
	"github.com/josephcasey/mybgg/internal/cache"
	"github.com/josephcasey/mybgg/internal/config"
	"github.com/josephcasey/mybgg/internal/index"
	"github.com/josephcasey/mybgg/internal/logging"
)

// Options are the command line switches.
type Options struct {
	ConfigPath string
	APIKey     string
	NoIndexing bool
	CacheBGG   bool
	Debug      bool
	Mode       string
}

// Build wires a Service from configuration. The returned closer releases
// the BGG response cache.
func Build(ctx context.Context, cfg *config.Config, o Options, out io.Writer, lg *zap.Logger) (*Service, func() error, error) {
	lg = logging.OrNop(lg)
	closer := func() error { return nil }

	if err := cfg.RequireBGG(); err != nil {
		return nil, closer, err
	}
	params, err := cfg.BoardGameGeek.CollectionParams()
	if err != nil {
		return nil, closer, err
	}
	if o.APIKey != "" {
		cfg.Algolia.APIKey = o.APIKey
	}
	indexing := o.Mode == ModeIndex && !o.NoIndexing
	if indexing {
		if err := cfg.RequireIndex(); err != nil {
			return nil, closer, err
		}
	}

	copts := bgg.Options{BaseURL: cfg.BoardGameGeek.BaseURL, Logger: lg}
	if o.CacheBGG {
		c, err := bgg.OpenCache(cfg.BoardGameGeek.CachePath, cfg.BoardGameGeek.CacheTTL)
		if err != nil {
			return nil, closer, err
		}
		copts.Cache = c
		closer = c.Close
		if n, err := c.Purge(ctx); err != nil {
			lg.Warn("bgg cache purge failed", zap.Error(err))
		} else if n > 0 {
			lg.Debug("purged stale bgg cache entries", zap.Int64("rows", n))
		}
	}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("aws config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	var store cache.Store = cache.NewFileStore(cfg.Cache.Dir)
	if cfg.Cache.Backend == "s3" {
		ac, err := loadAWS()
		if err != nil {
			return nil, closer, err
		}
		store = cache.NewS3Store(s3.NewFromConfig(ac), cfg.Cache.Bucket, cfg.Cache.Prefix)
	}

	var backend index.Backend
	if indexing {
		switch cfg.Index.Backend {
		case "dynamodb":
			ac, err := loadAWS()
			if err != nil {
				return nil, closer, err
			}
			backend = index.NewDynamo(dynamodb.NewFromConfig(ac), cfg.DynamoDB.Table, lg)
		default:
			backend = index.NewAlgolia(cfg.Algolia.AppID, cfg.Algolia.APIKey, cfg.Algolia.IndexName, lg)
		}
	}

	return &Service{
		Source:    bgg.NewClient(copts),
		Store:     store,
		Backend:   backend,
		Schema:    index.DefaultSchema(cfg.Algolia.HitsPerPage),
		User:      cfg.BoardGameGeek.UserName,
		ParamSets: params,
		Out:       out,
		Log:       lg,
	}, closer, nil
}

// Execute loads configuration, builds the service and runs one mode.
func Execute(ctx context.Context, o Options, out io.Writer, lg *zap.Logger) (Report, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return Report{}, err
	}
	if o.Mode == "" {
		o.Mode = ModeIndex
	}
	svc, closer, err := Build(ctx, cfg, o, out, lg)
	defer closer()
	if err != nil {
		return Report{}, err
	}
	return svc.Run(ctx, o.Mode)
}

// Event is the Lambda payload; empty fields fall back to MODE,
// NO_INDEXING and CONFIG_PATH.
type Event struct {
	Mode       string `json:"mode"`
	NoIndexing *bool  `json:"no_indexing"`
}

// LambdaEntrypoint runs one sync per invocation.
func LambdaEntrypoint(ctx context.Context, raw json.RawMessage) (Report, error) {
	var e Event
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e); err != nil {
			return Report{}, fmt.Errorf("decode event: %w", err)
		}
	}
	o := Options{
		ConfigPath: os.Getenv("CONFIG_PATH"),
		Mode:       strings.TrimSpace(e.Mode),
		NoIndexing: envBool("NO_INDEXING", false),
		Debug:      envBool("DEBUG", false),
	}
	if o.Mode == "" {
		o.Mode = envStr("MODE", ModeIndex)
	}
	if e.NoIndexing != nil {
		o.NoIndexing = *e.NoIndexing
	}
	lg, err := logging.New(o.Debug)
	if err != nil {
		return Report{}, err
	}
	defer lg.Sync()
	return Execute(ctx, o, nil, lg)
}

func envStr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

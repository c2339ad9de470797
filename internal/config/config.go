package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissing marks a required setting that was not provided.
var ErrMissing = errors.New("missing required setting")

type Config struct {
	Project       Project       `mapstructure:"project"`
	BoardGameGeek BoardGameGeek `mapstructure:"boardgamegeek"`
	Algolia       Algolia       `mapstructure:"algolia"`
	Index         Index         `mapstructure:"index"`
	DynamoDB      DynamoDB      `mapstructure:"dynamodb"`
	Cache         Cache         `mapstructure:"cache"`
	OCR           OCR           `mapstructure:"ocr"`
	CardArt       CardArt       `mapstructure:"cardart"`
}

type Project struct {
	Name string `mapstructure:"name"`
}

type BoardGameGeek struct {
	UserName string `mapstructure:"user_name"`
	BaseURL  string `mapstructure:"base_url"`
	// ExtraParams is either one object or a list of objects of collection
	// query parameters; each object becomes one collection request.
	ExtraParams any           `mapstructure:"extra_params"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CachePath   string        `mapstructure:"cache_path"`
}

type Algolia struct {
	AppID       string `mapstructure:"app_id"`
	IndexName   string `mapstructure:"index_name"`
	HitsPerPage int    `mapstructure:"hits_per_page"`
	APIKey      string `mapstructure:"api_key"`
}

type Index struct {
	Backend string `mapstructure:"backend"` // algolia | dynamodb
}

type DynamoDB struct {
	Table string `mapstructure:"table"`
}

type Cache struct {
	Backend string `mapstructure:"backend"` // file | s3
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

type OCR struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

type CardArt struct {
	BrowseURL    string        `mapstructure:"browse_url"`
	HeroDelay    time.Duration `mapstructure:"hero_delay"`
	VillainDelay time.Duration `mapstructure:"villain_delay"`
}

// Load reads config.json (or the file at path), then applies MYBGG_*
// environment overrides. A missing ./config.json is not an error, but a
// missing file named by path is. Required fields are checked by the Require*
// methods of the tool that needs them.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MYBGG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("algolia.api_key", "MYBGG_ALGOLIA_API_KEY", "ALGOLIA_API_KEY")
	_ = v.BindEnv("ocr.api_key", "MYBGG_OCR_API_KEY", "OCR_SPACE_API_KEY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.BoardGameGeek.CachePath == "" && cfg.Project.Name != "" {
		cfg.BoardGameGeek.CachePath = cfg.Project.Name + "-cache.sqlite"
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so AutomaticEnv sees them on Unmarshal.
	v.SetDefault("project.name", "")
	v.SetDefault("boardgamegeek.user_name", "")
	v.SetDefault("boardgamegeek.base_url", "https://www.boardgamegeek.com/xmlapi2")
	v.SetDefault("boardgamegeek.cache_ttl", "24h")
	v.SetDefault("boardgamegeek.cache_path", "")
	v.SetDefault("algolia.app_id", "")
	v.SetDefault("algolia.index_name", "")
	v.SetDefault("algolia.hits_per_page", 48)
	v.SetDefault("index.backend", "algolia")
	v.SetDefault("dynamodb.table", "")
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", ".")
	v.SetDefault("cache.bucket", "")
	v.SetDefault("cache.prefix", "")
	v.SetDefault("ocr.endpoint", "https://api.ocr.space/parse/image")
	v.SetDefault("cardart.browse_url", "https://hallofheroeslcg.com/browse/")
	v.SetDefault("cardart.hero_delay", "1s")
	v.SetDefault("cardart.villain_delay", "500ms")
}

func (c *Config) validate() error {
	switch c.Index.Backend {
	case "algolia", "dynamodb":
	default:
		return fmt.Errorf("index.backend %q: want algolia or dynamodb", c.Index.Backend)
	}
	switch c.Cache.Backend {
	case "file", "s3":
	default:
		return fmt.Errorf("cache.backend %q: want file or s3", c.Cache.Backend)
	}
	if c.Cache.Backend == "s3" && c.Cache.Bucket == "" {
		return fmt.Errorf("cache.bucket: %w", ErrMissing)
	}
	if c.Algolia.HitsPerPage <= 0 {
		return fmt.Errorf("algolia.hits_per_page must be positive")
	}
	return nil
}

// RequireBGG checks the settings needed to download plays.
func (c *Config) RequireBGG() error {
	if c.Project.Name == "" {
		return fmt.Errorf("project.name: %w", ErrMissing)
	}
	if c.BoardGameGeek.UserName == "" {
		return fmt.Errorf("boardgamegeek.user_name: %w", ErrMissing)
	}
	_, err := c.BoardGameGeek.CollectionParams()
	return err
}

// RequireIndex checks the settings needed by the selected index backend.
func (c *Config) RequireIndex() error {
	switch c.Index.Backend {
	case "dynamodb":
		if c.DynamoDB.Table == "" {
			return fmt.Errorf("dynamodb.table: %w", ErrMissing)
		}
	default:
		if c.Algolia.AppID == "" {
			return fmt.Errorf("algolia.app_id: %w", ErrMissing)
		}
		if c.Algolia.IndexName == "" {
			return fmt.Errorf("algolia.index_name: %w", ErrMissing)
		}
		if c.Algolia.APIKey == "" {
			return fmt.Errorf("algolia api key: %w", ErrMissing)
		}
	}
	return nil
}

// CollectionParams normalises extra_params into one query map per request.
// No extra params still yields a single request.
func (b BoardGameGeek) CollectionParams() ([]map[string]string, error) {
	switch p := b.ExtraParams.(type) {
	case nil:
		return []map[string]string{{}}, nil
	case map[string]any:
		return []map[string]string{stringify(p)}, nil
	case []any:
		if len(p) == 0 {
			return []map[string]string{{}}, nil
		}
		out := make([]map[string]string, 0, len(p))
		for i, item := range p {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("boardgamegeek.extra_params[%d]: want object, got %T", i, item)
			}
			out = append(out, stringify(m))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("boardgamegeek.extra_params: want object or list, got %T", p)
	}
}

func stringify(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, raw := range m {
		switch v := raw.(type) {
		case float64:
			out[k] = fmt.Sprintf("%g", v)
		case bool:
			if v {
				out[k] = "1"
			} else {
				out[k] = "0"
			}
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

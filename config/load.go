package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kvesta/imagescan/pkg/vulnlib"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const EnvPrefix = "IMAGESCAN"

type Settings struct {
	OSV      OSVSettings      `mapstructure:"osv"`
	Scan     ScanSettings     `mapstructure:"scan"`
	Extract  ExtractSettings  `mapstructure:"extract"`
	Registry RegistrySettings `mapstructure:"registry"`
	Cache    CacheSettings    `mapstructure:"cache"`
	Log      LogSettings      `mapstructure:"log"`
	Output   OutputSettings   `mapstructure:"output"`
	Metrics  MetricsSettings  `mapstructure:"metrics"`
}

type OSVSettings struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Rate is the request budget per second, 0 disables limiting.
	Rate float64 `mapstructure:"rate"`
}

type ScanSettings struct {
	Concurrency int `mapstructure:"concurrency"`
}

type ExtractSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type RegistrySettings struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheSettings struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
}

type OutputSettings struct {
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type MetricsSettings struct {
	Textfile string `mapstructure:"textfile"`
}

// Load reads .env, the config file and IMAGESCAN_* variables into the
// global viper instance. Flags bound by the caller take precedence.
func Load(cfgFile string) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("imagescan")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".imagescan"))
		}
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("osv.url", vulnlib.OSVUrl)
	viper.SetDefault("osv.timeout", vulnlib.DefaultTimeout)
	viper.SetDefault("osv.rate", 20)
	viper.SetDefault("scan.concurrency", 8)
	viper.SetDefault("extract.timeout", 30*time.Second)
	viper.SetDefault("registry.url", "https://hub.docker.com")
	viper.SetDefault("registry.timeout", 10*time.Second)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.path", vulnlib.DefaultCachePath())
	viper.SetDefault("cache.ttl", vulnlib.DefaultCacheTTL)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("output.format", FormatTable)
	viper.SetDefault("output.file", "")
	viper.SetDefault("metrics.textfile", "")
}

// Current decodes the merged configuration.
func Current() (*Settings, error) {
	s := &Settings{}
	if err := viper.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	switch s.Output.Format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q", s.Output.Format)
	}

	return s, nil
}

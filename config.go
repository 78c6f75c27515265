package s3kit

import (
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// EnvPrefix prefixes the environment variables read by LoadSettings, e.g. S3KIT_REGION.
const EnvPrefix = "S3KIT"

// Settings is the file and environment form of the client options.
type Settings struct {
	Region         string        `mapstructure:"region"`
	Endpoint       string        `mapstructure:"endpoint"`
	MaxRetries     int           `mapstructure:"max_retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Concurrency    int           `mapstructure:"concurrency"`
	ForcePathStyle bool          `mapstructure:"force_path_style"`
	DefaultBucket  string        `mapstructure:"default_bucket"`
}

var settingKeys = []string{
	"region",
	"endpoint",
	"max_retries",
	"timeout",
	"concurrency",
	"force_path_style",
	"default_bucket",
}

// LoadSettings reads settings from an optional config file (any format viper supports)
// and from S3KIT_* environment variables, which take precedence.
//
// Environment files are loaded first without overriding variables that are already set.
// When envFiles is empty a .env file in the working directory is loaded if present.
func LoadSettings(configFile string, envFiles ...string) (*Settings, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, errors.NewError("loadSettings", err).WithCode(errors.CodeInvalidConfig)
	}

	// Private instance so the importer's global viper state is left alone.
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetDefault("max_retries", 3)
	v.SetDefault("concurrency", DefaultConcurrency)
	for _, key := range settingKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.NewError("loadSettings", err).WithCode(errors.CodeInvalidConfig)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewError("loadSettings", err).
				WithPath(configFile).
				WithCode(errors.CodeInvalidConfig)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.NewError("loadSettings", err).WithCode(errors.CodeInvalidConfig)
	}
	if s.Concurrency < 1 {
		return nil, errors.NewError("loadSettings", errors.ErrInvalidInput).
			WithCode(errors.CodeInvalidConfig).
			WithMessage("concurrency must be at least 1")
	}

	return &s, nil
}

func loadEnvFiles(files []string) error {
	if len(files) > 0 {
		return godotenv.Load(files...)
	}
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Options converts the settings into client options. Empty values are skipped so the
// client defaults apply.
func (s *Settings) Options() []s3types.Option {
	opts := []s3types.Option{
		WithMaxRetries(s.MaxRetries),
		WithConcurrency(s.Concurrency),
		WithForcePathStyle(s.ForcePathStyle),
	}
	if s.Region != "" {
		opts = append(opts, WithRegion(s.Region))
	}
	if s.Endpoint != "" {
		opts = append(opts, WithEndpoint(s.Endpoint))
	}
	if s.Timeout > 0 {
		opts = append(opts, WithTimeout(s.Timeout))
	}
	if s.DefaultBucket != "" {
		opts = append(opts, WithDefaultBucket(s.DefaultBucket))
	}
	return opts
}

// LoadOptions is LoadSettings followed by Settings.Options.
//
// Example:
//
//	opts, err := s3kit.LoadOptions("s3kit.yaml")
//	if err != nil {
//	    return err
//	}
//	client, err := s3kit.New(append(opts, s3kit.WithLogger(logger))...)
func LoadOptions(configFile string, envFiles ...string) ([]s3types.Option, error) {
	s, err := LoadSettings(configFile, envFiles...)
	if err != nil {
		return nil, err
	}
	return s.Options(), nil
}

// Package cfg loads the mergeq configuration from a TOML file and
// environment variables.
package cfg

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/simplesurance/mergeq/internal/mqerr"
)

const (
	DefWebhookEndpoint = "/webhook"
	DefListenPort      = 8080
	DefGithubAPIURL    = "https://api.github.com/"
	DefLogFormat       = "logfmt"
	DefLogTimeKey      = "time_iso8601"
	DefLogLevel        = "info"
	DefCIStatusSource  = CIStatusSourceCombinedStatus
)

// HealthEndpoint is the http path of the health probe.
const HealthEndpoint = "/healthz"

const (
	CIStatusSourceCombinedStatus    = "combined_status"
	CIStatusSourceStatusCheckRollup = "status_check_rollup"
)

// Environment variables that override the values from the configuration
// file.
const (
	EnvWebhookEndpoint    = "MERGEQ_WEBHOOK_PATH"
	EnvListenPort         = "MERGEQ_LISTEN_PORT"
	EnvGithubAPIToken     = "MERGEQ_GITHUB_TOKEN"
	EnvGithubAPIURL       = "MERGEQ_GITHUB_API_URL"
	EnvLogFormat          = "MERGEQ_LOG_FORMAT"
	EnvLogLevel           = "MERGEQ_LOG_LEVEL"
	EnvCIStatusSource     = "MERGEQ_CI_STATUS_SOURCE"
	EnvCommandFilterQuery = "MERGEQ_COMMAND_FILTER_QUERY"
	EnvDryRun             = "MERGEQ_DRY_RUN"
)

type Config struct {
	HTTPListenPort            int    `toml:"http_server_listen_port"`
	HTTPGithubWebhookEndpoint string `toml:"github_webhook_endpoint"`
	GithubAPIToken            string `toml:"github_api_token"`
	GithubAPIURL              string `toml:"github_api_url"`
	LogFormat                 string `toml:"log_format"`
	LogTimeKey                string `toml:"log_time_key"`
	LogLevel                  string `toml:"log_level"`
	CIStatusSource            string `toml:"ci_status_source"`
	// CommandFilterQuery is a jq expression that is evaluated on the JSON
	// issue_comment event. Commands are only accepted when it evaluates
	// to true.
	CommandFilterQuery string `toml:"command_filter_query"`
	DryRun             bool   `toml:"dry_run"`
}

// Load parses a TOML configuration.
func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(c)
}

// LookupEnvFunc has the same signature as os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// ApplyEnv overwrites configuration values with the ones set via environment
// variables.
func (c *Config) ApplyEnv(lookupEnv LookupEnvFunc) error {
	strOpts := map[string]*string{
		EnvWebhookEndpoint:    &c.HTTPGithubWebhookEndpoint,
		EnvGithubAPIToken:     &c.GithubAPIToken,
		EnvGithubAPIURL:       &c.GithubAPIURL,
		EnvLogFormat:          &c.LogFormat,
		EnvLogLevel:           &c.LogLevel,
		EnvCIStatusSource:     &c.CIStatusSource,
		EnvCommandFilterQuery: &c.CommandFilterQuery,
	}

	for env, ptr := range strOpts {
		if v, ok := lookupEnv(env); ok {
			*ptr = v
		}
	}

	if v, ok := lookupEnv(EnvListenPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return mqerr.NewConfigError(EnvListenPort, fmt.Sprintf("%q is not a valid port number", v))
		}

		c.HTTPListenPort = port
	}

	if v, ok := lookupEnv(EnvDryRun); ok {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return mqerr.NewConfigError(EnvDryRun, fmt.Sprintf("%q is not a boolean value", v))
		}

		c.DryRun = dryRun
	}

	return nil
}

// SetDefaults sets default values for unset options that have defaults.
// The GitHub API token has no default.
func (c *Config) SetDefaults() {
	if c.HTTPGithubWebhookEndpoint == "" {
		c.HTTPGithubWebhookEndpoint = DefWebhookEndpoint
	}

	if c.HTTPListenPort == 0 {
		c.HTTPListenPort = DefListenPort
	}

	if c.GithubAPIURL == "" {
		c.GithubAPIURL = DefGithubAPIURL
	}

	if c.LogFormat == "" {
		c.LogFormat = DefLogFormat
	}

	if c.LogTimeKey == "" {
		c.LogTimeKey = DefLogTimeKey
	}

	if c.LogLevel == "" {
		c.LogLevel = DefLogLevel
	}

	if c.CIStatusSource == "" {
		c.CIStatusSource = DefCIStatusSource
	}
}

// Validate returns a *mqerr.ConfigError if a required option is missing or an
// option has an invalid value.
func (c *Config) Validate() error {
	if c.GithubAPIToken == "" {
		return mqerr.NewConfigError("github_api_token", "must be set (env: "+EnvGithubAPIToken+")")
	}

	if c.HTTPGithubWebhookEndpoint == "" {
		return mqerr.NewConfigError("github_webhook_endpoint", "must be set (env: "+EnvWebhookEndpoint+")")
	}

	if !strings.HasPrefix(c.HTTPGithubWebhookEndpoint, "/") {
		return mqerr.NewConfigError("github_webhook_endpoint", "must start with a slash")
	}

	if c.HTTPListenPort <= 0 || c.HTTPListenPort > 65535 {
		return mqerr.NewConfigError("http_server_listen_port", fmt.Sprintf("%d is out of range", c.HTTPListenPort))
	}

	switch c.CIStatusSource {
	case CIStatusSourceCombinedStatus, CIStatusSourceStatusCheckRollup:
	default:
		return mqerr.NewConfigError(
			"ci_status_source",
			fmt.Sprintf("unsupported value %q, must be %s or %s",
				c.CIStatusSource, CIStatusSourceCombinedStatus, CIStatusSourceStatusCheckRollup),
		)
	}

	switch c.LogFormat {
	case "logfmt", "console", "json":
	default:
		return mqerr.NewConfigError("log_format", fmt.Sprintf("unsupported value %q", c.LogFormat))
	}

	return nil
}

// ListenAddr returns the address the http server listens on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.HTTPListenPort)
}

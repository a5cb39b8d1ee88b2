package cfg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplesurance/mergeq/internal/mqerr"
)

func envMap(m map[string]string) LookupEnvFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	const cfgFile = `
http_server_listen_port = 9090
github_webhook_endpoint = "/hooks/github"
github_api_token = "abc"
log_format = "json"
ci_status_source = "status_check_rollup"
command_filter_query = '.comment.author_association == "MEMBER"'
dry_run = true
`

	config, err := Load(strings.NewReader(cfgFile))
	require.NoError(t, err)

	assert.Equal(t, 9090, config.HTTPListenPort)
	assert.Equal(t, "/hooks/github", config.HTTPGithubWebhookEndpoint)
	assert.Equal(t, "abc", config.GithubAPIToken)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, CIStatusSourceStatusCheckRollup, config.CIStatusSource)
	assert.Equal(t, `.comment.author_association == "MEMBER"`, config.CommandFilterQuery)
	assert.True(t, config.DryRun)

	config.SetDefaults()
	require.NoError(t, config.Validate())
}

func TestEnvOverridesFile(t *testing.T) {
	config, err := Load(strings.NewReader(`github_webhook_endpoint = "/from-file"`))
	require.NoError(t, err)

	err = config.ApplyEnv(envMap(map[string]string{
		EnvWebhookEndpoint: "/from-env",
		EnvListenPort:      "1234",
		EnvGithubAPIToken:  "tok",
		EnvDryRun:          "true",
	}))
	require.NoError(t, err)

	config.SetDefaults()
	require.NoError(t, config.Validate())

	assert.Equal(t, "/from-env", config.HTTPGithubWebhookEndpoint)
	assert.Equal(t, 1234, config.HTTPListenPort)
	assert.Equal(t, ":1234", config.ListenAddr())
	assert.Equal(t, "tok", config.GithubAPIToken)
	assert.True(t, config.DryRun)
}

func TestDefaults(t *testing.T) {
	var config Config

	require.NoError(t, config.ApplyEnv(envMap(map[string]string{EnvGithubAPIToken: "tok"})))
	config.SetDefaults()
	require.NoError(t, config.Validate())

	assert.Equal(t, DefWebhookEndpoint, config.HTTPGithubWebhookEndpoint)
	assert.Equal(t, DefListenPort, config.HTTPListenPort)
	assert.Equal(t, DefGithubAPIURL, config.GithubAPIURL)
	assert.Equal(t, DefCIStatusSource, config.CIStatusSource)
	assert.Equal(t, DefLogFormat, config.LogFormat)
}

func TestMissingTokenIsConfigError(t *testing.T) {
	var config Config
	config.SetDefaults()

	err := config.Validate()
	require.Error(t, err)

	var cfgErr *mqerr.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "github_api_token", cfgErr.Option)
}

func TestInvalidValues(t *testing.T) {
	testcases := []struct {
		name   string
		modify func(*Config)
		option string
	}{
		{
			name:   "endpoint without slash",
			modify: func(c *Config) { c.HTTPGithubWebhookEndpoint = "webhook" },
			option: "github_webhook_endpoint",
		},
		{
			name:   "port out of range",
			modify: func(c *Config) { c.HTTPListenPort = 70000 },
			option: "http_server_listen_port",
		},
		{
			name:   "unknown ci status source",
			modify: func(c *Config) { c.CIStatusSource = "checks" },
			option: "ci_status_source",
		},
		{
			name:   "unknown log format",
			modify: func(c *Config) { c.LogFormat = "xml" },
			option: "log_format",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			config := Config{GithubAPIToken: "tok"}
			config.SetDefaults()
			tc.modify(&config)

			var cfgErr *mqerr.ConfigError
			require.ErrorAs(t, config.Validate(), &cfgErr)
			assert.Equal(t, tc.option, cfgErr.Option)
		})
	}
}

func TestInvalidEnvValues(t *testing.T) {
	var config Config

	var cfgErr *mqerr.ConfigError
	require.ErrorAs(t, config.ApplyEnv(envMap(map[string]string{EnvListenPort: "http"})), &cfgErr)
	assert.Equal(t, EnvListenPort, cfgErr.Option)

	require.ErrorAs(t, config.ApplyEnv(envMap(map[string]string{EnvDryRun: "maybe"})), &cfgErr)
	assert.Equal(t, EnvDryRun, cfgErr.Option)
}

func TestMarshalRoundtripKeepsToken(t *testing.T) {
	config := Config{GithubAPIToken: "tok", HTTPListenPort: 8081}

	var buf bytes.Buffer
	require.NoError(t, config.Marshal(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, config, *loaded)
}

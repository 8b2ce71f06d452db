package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFile is read from the working directory when no settings
	// file is named explicitly.
	DefaultConfigFile = "mt32pi-updater.toml"

	DefaultHost        = "mt32-pi"
	DefaultUsername    = "mt32-pi"
	DefaultPassword    = "mt32-pi"
	DefaultIgnoreList  = "roms/, soundfonts/"
	DefaultMaxRetries  = 5
	DefaultTimeout     = 5 * time.Second
	DefaultRetryDelay  = 500 * time.Millisecond
	EnvPassword        = "MT32PI_FTP_PASSWORD"
	defaultRebootAfter = true
)

type Config struct {
	Host       string
	Username   string
	Password   string
	Timeout    time.Duration
	IgnoreList IgnoreList
	MaxRetries int
	RetryDelay time.Duration

	// DeprecationsPath names a YAML deprecation policy. Empty selects the
	// built-in policy.
	DeprecationsPath string

	// ReleaseVersion is the version of ReleaseDir. Empty means it is taken
	// from the directory name when possible.
	ReleaseVersion string

	// ForceUpdate installs the release even when the device already runs
	// the same or a newer version.
	ForceUpdate bool

	Reboot bool
	DryRun bool

	// ReleaseDir is the extracted release to install.
	ReleaseDir string
}

type fileConfig struct {
	Host              string  `toml:"host"`
	FTPUsername       string  `toml:"ftp_username"`
	FTPPassword       string  `toml:"ftp_password"`
	ConnectionTimeout float64 `toml:"connection_timeout"`
	IgnoreList        string  `toml:"ignore_list"`
	MaxRetries        int     `toml:"max_retries"`
	RetryDelay        string  `toml:"retry_delay"`
	Deprecations      string  `toml:"deprecations"`
	Reboot            bool    `toml:"reboot"`
	ReleaseVersion    string  `toml:"release_version"`
	ForceUpdate       bool    `toml:"force_update"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Host:       DefaultHost,
		Username:   DefaultUsername,
		Password:   DefaultPassword,
		Timeout:    DefaultTimeout,
		IgnoreList: ParseIgnoreList(DefaultIgnoreList),
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Reboot:     defaultRebootAfter,
	}
}

// LoadConfig builds the configuration from the defaults, the TOML settings
// file at path and the environment, in increasing order of precedence. An
// empty path falls back to DefaultConfigFile, which may be absent.
func LoadConfig(path string, environment []string) (Config, error) {
	lookup := make(map[string]string)
	for _, variable := range environment {
		key, value, ok := strings.Cut(variable, "=")
		if ok {
			lookup[key] = value
		}
	}

	defaults := DefaultConfig()
	raw := fileConfig{
		Host:              defaults.Host,
		FTPUsername:       defaults.Username,
		FTPPassword:       defaults.Password,
		ConnectionTimeout: defaults.Timeout.Seconds(),
		IgnoreList:        DefaultIgnoreList,
		MaxRetries:        defaults.MaxRetries,
		RetryDelay:        defaults.RetryDelay.String(),
		Reboot:            defaults.Reboot,
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		md, err := toml.Decode(string(content), &raw)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse settings file %q: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown setting %q in %q\nCheck the spelling against the documented settings", undecoded[0].String(), path)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return Config{}, fmt.Errorf("failed to read settings file %q: %w", path, err)
	}

	retryDelay, err := time.ParseDuration(raw.RetryDelay)
	if err != nil {
		return Config{}, fmt.Errorf("invalid retry_delay %q in %q: %w\nUse a duration such as \"500ms\" or \"2s\"", raw.RetryDelay, path, err)
	}

	config := Config{
		Host:             strings.TrimSpace(raw.Host),
		Username:         raw.FTPUsername,
		Password:         raw.FTPPassword,
		Timeout:          time.Duration(raw.ConnectionTimeout * float64(time.Second)),
		IgnoreList:       ParseIgnoreList(raw.IgnoreList),
		MaxRetries:       raw.MaxRetries,
		RetryDelay:       retryDelay,
		DeprecationsPath: raw.Deprecations,
		ReleaseVersion:   raw.ReleaseVersion,
		ForceUpdate:      raw.ForceUpdate,
		Reboot:           raw.Reboot,
	}

	if password, ok := lookup[EnvPassword]; ok {
		config.Password = password
	}

	return config, nil
}

// Validate checks that the configuration can drive an update.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host is required\nSet it in %s or pass --host", DefaultConfigFile)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("connection timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative, got %s", c.RetryDelay)
	}
	if c.ReleaseVersion != "" && !ValidVersion(c.ReleaseVersion) {
		return fmt.Errorf("invalid release version %q\nUse the release tag, such as \"v0.13.0\"", c.ReleaseVersion)
	}
	if c.ReleaseDir == "" {
		return fmt.Errorf("release directory is required\nExtract the release archive and pass its path")
	}

	info, err := os.Stat(c.ReleaseDir)
	if err != nil {
		return fmt.Errorf("failed to open release directory %q: %w", c.ReleaseDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("release path %q is not a directory\nExtract the release archive first", c.ReleaseDir)
	}

	return nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryanmoran/mt32pi-updater/internal"
	"github.com/ryanmoran/mt32pi-updater/internal/ftp"
)

type flagValues struct {
	configPath     string
	host           string
	username       string
	password       string
	timeout        time.Duration
	ignore         string
	deprecations   string
	releaseVersion string
	force          bool
	noReboot       bool
	dryRun         bool
}

// newRootCommand builds the mt32pi-updater command. Settings are resolved
// from defaults, the settings file, the environment and finally the flags
// the user actually passed.
func newRootCommand(env []string, w internal.Writer, dial ftp.Dialer) *cobra.Command {
	var flags flagValues

	cmd := &cobra.Command{
		Use:   "mt32pi-updater <release-dir>",
		Short: "Update an mt32-pi over FTP",
		Long: `mt32pi-updater installs an extracted mt32-pi release onto a running device.

It downloads your mt32-pi.cfg, config.txt and wpa_supplicant.conf, merges your
settings into the new release's mt32-pi.cfg, uploads the release to the SD card
and reboots the device.

Examples:
  # Update the device at the default hostname
  mt32pi-updater ./mt32-pi-v0.13.0

  # Update a device by address without rebooting it
  mt32pi-updater ./mt32-pi-v0.13.0 --host 192.168.1.20 --no-reboot

  # Merge settings and list what would be uploaded
  mt32pi-updater ./mt32-pi-v0.13.0 --dry-run`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := internal.LoadConfig(flags.configPath, env)
			if err != nil {
				return err
			}

			applyFlags(cmd, flags, &config)
			config.ReleaseDir = args[0]

			if err := config.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				select {
				case <-sigChan:
					cancel()
				case <-ctx.Done():
				}
			}()

			return run(ctx, config, w, dial)
		},
	}

	cmd.SetOut(w.GetWriter())

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "settings file (default ./"+internal.DefaultConfigFile+")")
	cmd.Flags().StringVar(&flags.host, "host", internal.DefaultHost, "hostname or address of the mt32-pi")
	cmd.Flags().StringVar(&flags.username, "user", internal.DefaultUsername, "FTP username")
	cmd.Flags().StringVar(&flags.password, "password", internal.DefaultPassword, "FTP password (or set "+internal.EnvPassword+")")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", internal.DefaultTimeout, "connection timeout")
	cmd.Flags().StringVar(&flags.ignore, "ignore", internal.DefaultIgnoreList, "comma separated paths that are never uploaded")
	cmd.Flags().StringVar(&flags.deprecations, "deprecations", "", "YAML file listing settings to drop while merging")
	cmd.Flags().BoolVar(&flags.noReboot, "no-reboot", false, "do not reboot the device after uploading")
	cmd.Flags().StringVar(&flags.releaseVersion, "release-version", "", "version of the release, such as v0.13.0 (default: taken from the directory name)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "install even when the device is up to date")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "merge settings and list files without uploading")

	return cmd
}

// applyFlags overrides config with the flags set on the command line.
func applyFlags(cmd *cobra.Command, flags flagValues, config *internal.Config) {
	changed := cmd.Flags().Changed

	if changed("host") {
		config.Host = flags.host
	}
	if changed("user") {
		config.Username = flags.username
	}
	if changed("password") {
		config.Password = flags.password
	}
	if changed("timeout") {
		config.Timeout = flags.timeout
	}
	if changed("ignore") {
		config.IgnoreList = internal.ParseIgnoreList(flags.ignore)
	}
	if changed("deprecations") {
		config.DeprecationsPath = flags.deprecations
	}
	if changed("release-version") {
		config.ReleaseVersion = flags.releaseVersion
	}
	if changed("force") {
		config.ForceUpdate = flags.force
	}
	if changed("no-reboot") {
		config.Reboot = !flags.noReboot
	}
	config.DryRun = flags.dryRun
}

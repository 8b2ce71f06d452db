package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ryanmoran/mt32pi-updater/internal"
	"github.com/ryanmoran/mt32pi-updater/internal/cfgmerge"
	"github.com/ryanmoran/mt32pi-updater/internal/ftp"
	"github.com/ryanmoran/mt32pi-updater/internal/logging"
	"github.com/ryanmoran/mt32pi-updater/internal/transfer"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic occurred: %v", r)
			os.Exit(1)
		}
	}()

	logging.ConfigureRuntime()

	cmd := newRootCommand(os.Environ(), internal.NewStandardWriter(), ftp.Dial)
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, config internal.Config, w internal.Writer, dial ftp.Dialer) error {
	logger := logging.For("updater")

	cleanupMgr := internal.NewCleanupManager(logging.For("cleanup"))
	defer cleanupMgr.Execute()

	update := internal.NewRun()
	logger = logger.With().Str("run", update.ID()).Logger()

	policy := cfgmerge.DefaultPolicy()
	if config.DeprecationsPath != "" {
		var err error
		policy, err = cfgmerge.LoadPolicy(config.DeprecationsPath)
		if err != nil {
			return err
		}
	}

	stagingDir, err := os.MkdirTemp("", update.StagingPattern())
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w\nCheck disk space and temp directory permissions", err)
	}
	if !config.DryRun {
		cleanupMgr.Add("staging", func() error {
			return os.RemoveAll(stagingDir)
		})
	}
	logger.Debug().Str("dir", stagingDir).Msg("staging directory created")

	retrievedDir := filepath.Join(stagingDir, "retrieved")
	installDir := filepath.Join(stagingDir, "install")
	if err := os.MkdirAll(retrievedDir, 0755); err != nil {
		return fmt.Errorf("failed to create %q: %w", retrievedDir, err)
	}

	w.Status(fmt.Sprintf("Connecting to %s...", internal.Highlight(config.Host)))
	session, err := ftp.NewSession(dial, ftp.Params{
		Host:     config.Host,
		Username: config.Username,
		Password: config.Password,
		Timeout:  config.Timeout,
	},
		ftp.WithMaxRetries(config.MaxRetries),
		ftp.WithRetryDelay(config.RetryDelay),
		ftp.WithLogger(logging.For("ftp").With().Str("run", update.ID()).Logger()),
	)
	if err != nil {
		w.Result("FAILED!", internal.ColorFailure)
		return fmt.Errorf("failed to connect to mt32-pi at %q: %w\nCheck that the device is powered on, networking and FTP are enabled in mt32-pi.cfg, and the credentials are correct", config.Host, err)
	}
	w.Result("OK!", internal.ColorOK)
	cleanupMgr.Add("ftp-session", session.Close)

	if upToDate(config, session.Welcome(), w) {
		w.Println("Your mt32-pi is up to date.")
		return nil
	}

	outcomes, err := transfer.DownloadLegacyFiles(ctx, session, transfer.LegacyFiles, retrievedDir, w)
	if err != nil {
		return err
	}

	w.Status("Staging release...")
	if err := transfer.StageRelease(config.ReleaseDir, installDir); err != nil {
		w.Result("FAILED!", internal.ColorFailure)
		return fmt.Errorf("failed to stage release from %q: %w", config.ReleaseDir, err)
	}
	w.Result("DONE!", internal.ColorOK)

	var notes []string

	if outcomes[transfer.MainConfigFile] == transfer.Retrieved {
		backup, err := transfer.BackupConfig(filepath.Join(retrievedDir, transfer.MainConfigFile), installDir)
		if err != nil {
			return err
		}

		w.Status(fmt.Sprintf("Merging %s...", internal.Highlight(transfer.MainConfigFile)))
		result, err := cfgmerge.MergeFiles(backup, filepath.Join(installDir, transfer.MainConfigFile), policy)
		if err != nil {
			w.Result("FAILED!", internal.ColorFailure)
			return fmt.Errorf("failed to merge your %s into the new release: %w", transfer.MainConfigFile, err)
		}
		w.Result("DONE!", internal.ColorOK)
		logger.Debug().Int("applied", result.Applied).Strs("skipped", result.Skipped).Msg("configuration merged")

		for _, skipped := range result.Skipped {
			w.Warningf("Dropped deprecated setting %q from your %s", skipped, transfer.MainConfigFile)
		}
		notes = append(notes, fmt.Sprintf("Your old %s was merged into the new one and saved as %s%s.",
			transfer.MainConfigFile, transfer.MainConfigFile, transfer.BackupSuffix))
	} else {
		w.Warningf("No %s found on the device; the release defaults will be installed", transfer.MainConfigFile)
	}

	for _, name := range []string{transfer.BootConfigFile, transfer.WiFiConfigFile} {
		if outcomes[name] != transfer.Retrieved {
			continue
		}
		if err := transfer.PreserveFile(filepath.Join(retrievedDir, name), installDir, name); err != nil {
			return err
		}
		notes = append(notes, fmt.Sprintf("Your %s was kept; the release's copy was saved as %s%s.", name, name, transfer.NewSuffix))
	}

	if config.DryRun {
		return listUpload(installDir, config.IgnoreList, w)
	}

	result, err := transfer.UploadTree(ctx, session, installDir, config.IgnoreList, w)
	if err != nil {
		return err
	}
	logger.Debug().Int("uploaded", len(result.Uploaded)).Int("skipped", len(result.Skipped)).Msg("upload finished")

	if config.Reboot {
		w.Status(fmt.Sprintf("Rebooting %s...", internal.Highlight(config.Host)))
		if err := internal.Reboot(config.Host); err != nil {
			w.Result("FAILED!", internal.ColorFailure)
			w.Warningf("%v\nPower cycle the device to finish the update", err)
		} else {
			w.Result("OK!", internal.ColorOK)
		}
	} else {
		notes = append(notes, "Power cycle the device to finish the update.")
	}

	w.Println()
	w.Println(internal.ColorOK.Sprint("All done!"))
	for _, note := range notes {
		w.Println(note)
	}

	return nil
}

// upToDate compares the version in the device's welcome message with the
// release. When either version is unknown the update goes ahead.
func upToDate(config internal.Config, welcome string, w internal.Writer) bool {
	installed, ok := internal.DeviceVersion(welcome)
	if !ok {
		w.Warningf("Could not read the installed version from the FTP welcome message %q; installing anyway", welcome)
		return false
	}

	release := config.ReleaseVersion
	if release == "" {
		release, ok = internal.ReleaseVersionFromPath(config.ReleaseDir)
		if !ok {
			w.Warningf("Could not tell the version of %s; pass --release-version to skip installing a release the device already runs", config.ReleaseDir)
			return false
		}
	}

	w.Println()
	w.Printf("The currently-installed version is: %s\n", internal.ColorOK.Sprint(installed))
	w.Printf("The release to install is:          %s\n", internal.ColorOK.Sprint(release))
	w.Println()

	return !config.ForceUpdate && internal.UpToDate(installed, release)
}

func listUpload(installDir string, ignore internal.IgnoreList, w internal.Writer) error {
	manifest, err := transfer.BuildManifest(installDir, ignore)
	if err != nil {
		return err
	}

	w.Println()
	w.Printf("Dry run: nothing was uploaded. The staged release is in %s\n", installDir)
	for _, entry := range manifest {
		w.Status(entry.RelPath)
		if entry.Ignored {
			w.Result("SKIPPED!", internal.ColorWarning)
		} else {
			w.Result("UPLOAD", internal.ColorHighlight)
		}
	}

	return nil
}

// Package internal contains shared types and utilities for mt32pi-updater.
//
// It provides configuration loading, the ignore list, run identifiers,
// cleanup orchestration, the reboot request and the Writer used to report
// progress. The cfgmerge, ftp and transfer packages build on it.
package internal

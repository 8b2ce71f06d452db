// Package transfer moves files between the local machine and an mt32-pi.
//
// It fetches the files an update must preserve, stages a release for
// installation and pushes the staged tree to the SD card, one file at a time.
package transfer

// Package cfgmerge carries user settings from an old mt32-pi.cfg over into
// the configuration template shipped with a new release.
//
// The template is edited as plain lines rather than parsed and re-rendered,
// so its comments, ordering and spacing come through unchanged. A Policy
// names the settings the new firmware no longer reads; those are reported
// instead of merged.
package cfgmerge

package internal

import (
	"path"
	"slices"
	"strings"
)

// IgnoreList holds the paths, relative to the release root, that must not be
// pushed to the device. Entries ending in "/" exclude a whole directory; any
// other entry excludes exactly one file.
type IgnoreList struct {
	dirs  map[string]struct{}
	files map[string]struct{}
}

// ParseIgnoreList reads a comma separated list such as "roms/, soundfonts/".
func ParseIgnoreList(raw string) IgnoreList {
	list := IgnoreList{
		dirs:  make(map[string]struct{}),
		files: make(map[string]struct{}),
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.ReplaceAll(strings.TrimSpace(entry), "\\", "/")
		entry = strings.TrimPrefix(entry, "./")
		if entry == "" || entry == "/" {
			continue
		}

		if strings.HasSuffix(entry, "/") {
			list.dirs[strings.TrimSuffix(entry, "/")] = struct{}{}
		} else {
			list.files[entry] = struct{}{}
		}
	}

	return list
}

// Matches reports whether relPath, a slash separated path relative to the
// release root, is excluded either by name or by one of its directories.
func (l IgnoreList) Matches(relPath string) bool {
	if _, ok := l.files[relPath]; ok {
		return true
	}

	for dir := path.Dir(relPath); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, ok := l.dirs[dir]; ok {
			return true
		}
	}

	return false
}

// String renders the list back into its comma separated form.
func (l IgnoreList) String() string {
	var entries []string
	for dir := range l.dirs {
		entries = append(entries, dir+"/")
	}
	for file := range l.files {
		entries = append(entries, file)
	}
	slices.Sort(entries)
	return strings.Join(entries, ", ")
}

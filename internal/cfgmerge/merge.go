package cfgmerge

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// Option is a single setting read from an existing configuration file.
type Option struct {
	Section string
	Key     string
	Value   string
}

// Result describes what a merge did.
type Result struct {
	// Applied counts options written into the template.
	Applied int

	// Skipped holds deprecated keys, and names of deprecated sections, in the
	// order they were encountered. Sections appear once.
	Skipped []string
}

// ParseOptions reads an ini style configuration and returns its options in
// file order. Keys are lower-cased and, when a key repeats within a section,
// the last value wins while the key keeps its first position.
func ParseOptions(content []byte) ([]Option, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		InsensitiveKeys:         true,
		IgnoreInlineComment:     true,
		IgnoreContinuation:      true,
		PreserveSurroundedQuote: true,
	}, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var options []Option
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			if keys := section.KeyStrings(); len(keys) > 0 {
				return nil, fmt.Errorf("failed to parse config: option %q is outside of any section", keys[0])
			}
			continue
		}

		for _, key := range section.Keys() {
			options = append(options, Option{
				Section: section.Name(),
				Key:     key.Name(),
				Value:   key.Value(),
			})
		}
	}

	return options, nil
}

// Apply writes every option that policy does not deprecate into doc.
func Apply(doc *Document, options []Option, policy *Policy) Result {
	var result Result
	reported := make(map[string]bool)

	for _, option := range options {
		if policy.SectionDeprecated(option.Section) {
			if !reported[option.Section] {
				reported[option.Section] = true
				result.Skipped = append(result.Skipped, option.Section)
			}
			continue
		}

		if policy.OptionDeprecated(option.Section, option.Key) {
			result.Skipped = append(result.Skipped, option.Key)
			continue
		}

		doc.SetOption(option.Section, option.Key, option.Value)
		result.Applied++
	}

	return result
}

// MergeFiles carries the settings of the configuration at oldPath over into
// the template at newPath and rewrites newPath. Nothing is written unless the
// whole merge succeeds.
func MergeFiles(oldPath, newPath string, policy *Policy) (Result, error) {
	content, err := os.ReadFile(oldPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read old config %q: %w", oldPath, err)
	}

	options, err := ParseOptions(content)
	if err != nil {
		return Result{}, fmt.Errorf("%q: %w\nFix or remove the offending line and run the update again", oldPath, err)
	}

	doc, err := LoadDocument(newPath)
	if err != nil {
		return Result{}, err
	}

	result := Apply(doc, options, policy)

	if err := writeFileAtomic(newPath, []byte(doc.String())); err != nil {
		return Result{}, fmt.Errorf("failed to write merged config %q: %w", newPath, err)
	}

	return result, nil
}

func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mt32pi-merge-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	gitDirectoryNameConstant       = ".git"
	defaultArtifactPatternConstant = "**/*.csv"
	rootRequiredMessageConstant    = "scanner root directory must be provided"
	walkErrorTemplateConstant      = "unable to scan %s for artifacts: %w"
	patternErrorTemplateConstant   = "invalid artifact pattern %q: %w"
)

// DefaultPatterns returns the artifact patterns applied when a job declares none.
func DefaultPatterns() []string {
	return []string{defaultArtifactPatternConstant}
}

// Scanner locates files matching artifact patterns beneath a workspace root.
type Scanner struct {
	patterns []string
}

// NewScanner constructs a Scanner for the provided doublestar patterns.
//
// Patterns match repository-relative slash paths; an empty list falls back to
// the default CSV pattern.
func NewScanner(patterns []string) (*Scanner, error) {
	effectivePatterns := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if len(trimmedPattern) == 0 {
			continue
		}
		if !doublestar.ValidatePattern(trimmedPattern) {
			return nil, fmt.Errorf(patternErrorTemplateConstant, trimmedPattern, doublestar.ErrBadPattern)
		}
		effectivePatterns = append(effectivePatterns, trimmedPattern)
	}
	if len(effectivePatterns) == 0 {
		effectivePatterns = DefaultPatterns()
	}
	return &Scanner{patterns: effectivePatterns}, nil
}

// Scan walks the workspace root and returns the sorted repository-relative
// paths matching any configured pattern. Git metadata directories are pruned.
func (scanner *Scanner) Scan(rootDirectory string) ([]string, error) {
	if len(strings.TrimSpace(rootDirectory)) == 0 {
		return nil, errors.New(rootRequiredMessageConstant)
	}

	matchedPaths := make([]string, 0)
	walkError := filepath.WalkDir(rootDirectory, func(currentPath string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		if directoryEntry.IsDir() {
			if directoryEntry.Name() == gitDirectoryNameConstant {
				return filepath.SkipDir
			}
			return nil
		}

		relativePath, relativeError := filepath.Rel(rootDirectory, currentPath)
		if relativeError != nil {
			return relativeError
		}
		slashPath := filepath.ToSlash(relativePath)

		for _, pattern := range scanner.patterns {
			matched, matchError := doublestar.Match(pattern, slashPath)
			if matchError != nil {
				return matchError
			}
			if matched {
				matchedPaths = append(matchedPaths, slashPath)
				return nil
			}
		}
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(walkErrorTemplateConstant, rootDirectory, walkError)
	}

	sort.Strings(matchedPaths)
	return matchedPaths, nil
}

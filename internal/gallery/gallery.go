// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package gallery scans a media library rooted at a single directory and
// produces the listings, search results, and thumbnails the route cache
// captures. Listing order can depend on per-identity view counts, which is
// why cached listings are partitioned by user bucket.
package gallery

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// searchLimit caps how many matches a filename search returns.
const searchLimit = 200

// Entry is one item in a directory listing or search result.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"` // album-rooted, e.g. /vacation/beach.jpg
	Dir     bool      `json:"dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// Library reads the media tree under a root directory.
type Library struct {
	root string
}

// NewLibrary creates a library rooted at dir.
func NewLibrary(dir string) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("library root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %q is not a directory", abs)
	}
	return &Library{root: abs}, nil
}

// Root returns the absolute library root.
func (l *Library) Root() string { return l.root }

// Abs maps an album-rooted path to an absolute filesystem path, rejecting
// anything that would escape the root.
func (l *Library) Abs(rel string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimPrefix(rel, "/"))
	abs := filepath.Join(l.root, filepath.FromSlash(cleaned))
	if abs != l.root && !strings.HasPrefix(abs, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the library root", rel)
	}
	return abs, nil
}

// List returns the entries of one album directory, ordered by order.
// views supplies per-identity view counts for the viewed_desc and smart
// orders; it may be nil, in which case those orders degrade to recency.
func (l *Library) List(rel, order string, views map[string]int64) ([]Entry, error) {
	abs, err := l.Abs(rel)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", rel, err)
	}

	base := path.Clean("/" + strings.TrimPrefix(rel, "/"))
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if strings.HasPrefix(d.Name(), ".") {
			continue // hidden files and thumbnail sidecars
		}
		info, err := d.Info()
		if err != nil {
			continue // raced with a deletion
		}
		entries = append(entries, Entry{
			Name:    d.Name(),
			Path:    path.Join(base, d.Name()),
			Dir:     d.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sortEntries(entries, order, views)
	return entries, nil
}

// Search walks the library for filenames containing query,
// case-insensitive, capped at searchLimit matches.
func (l *Library) Search(query string) ([]Entry, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	var matches []Entry
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() && p != l.root {
				return filepath.SkipDir
			}
			return nil
		}
		if p == l.root || !strings.Contains(strings.ToLower(d.Name()), query) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(l.root, p)
		if err != nil {
			return nil
		}
		matches = append(matches, Entry{
			Name:    d.Name(),
			Path:    "/" + filepath.ToSlash(relPath),
			Dir:     d.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		if len(matches) >= searchLimit {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return matches, nil
}

// Remove deletes a single media file. Directories are refused.
func (l *Library) Remove(rel string) error {
	abs, err := l.Abs(rel)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("remove %q: %w", rel, err)
	}
	if info.IsDir() {
		return fmt.Errorf("remove %q: is a directory", rel)
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("remove %q: %w", rel, err)
	}
	return nil
}

// sortEntries orders a listing in place. Unknown orders fall back to
// name_asc so a bad query parameter never errors.
func sortEntries(entries []Entry, order string, views map[string]int64) {
	switch order {
	case "name_desc":
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name > entries[j].Name })
	case "modified_desc":
		sort.Slice(entries, func(i, j int) bool { return entries[i].ModTime.After(entries[j].ModTime) })
	case "viewed_desc":
		sort.Slice(entries, func(i, j int) bool {
			vi, vj := views[entries[i].Path], views[entries[j].Path]
			if vi != vj {
				return vi > vj
			}
			return entries[i].Name < entries[j].Name
		})
	case "smart":
		// Directories first, then personal views, then recency.
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Dir != entries[j].Dir {
				return entries[i].Dir
			}
			vi, vj := views[entries[i].Path], views[entries[j].Path]
			if vi != vj {
				return vi > vj
			}
			if !entries[i].ModTime.Equal(entries[j].ModTime) {
				return entries[i].ModTime.After(entries[j].ModTime)
			}
			return entries[i].Name < entries[j].Name
		})
	default: // name_asc
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	}
}

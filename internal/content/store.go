// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content stores markdown bodies as files under a root directory.
// Every write replaces the target atomically (temp file + rename) so a
// reader never observes a partially written body.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"csdoc/internal/apperr"
)

// postsDir is the subdirectory holding one file per post.
const postsDir = "posts"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Store reads and writes markdown files relative to a root directory.
type Store struct {
	root string
}

// New returns a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("content root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, postsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create content root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// PathFor returns the relative path used for a post id.
func PathFor(id int64) string {
	return postsDir + "/" + strconv.FormatInt(id, 10) + ".md"
}

// Save writes a new post body and returns its relative path. It fails with
// a conflict if the file already exists.
func (s *Store) Save(text string, id int64) (string, error) {
	rel := PathFor(id)
	abs, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err == nil {
		return "", apperr.Conflict(fmt.Sprintf("content file %s already exists", rel))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", apperr.Storage("stat content file", err)
	}
	if err := writeAtomic(abs, normalize(text)); err != nil {
		return "", err
	}
	return rel, nil
}

// Overwrite replaces the body stored at rel.
func (s *Store) Overwrite(rel, text string) error {
	abs, err := s.resolve(rel)
	if err != nil {
		return err
	}
	return writeAtomic(abs, normalize(text))
}

// SaveOrOverwrite writes the body for a post that may not have a path yet
// (rows created before bodies moved to files). Whatever sits at the
// computed path is replaced.
func (s *Store) SaveOrOverwrite(text string, id int64) (string, error) {
	rel := PathFor(id)
	if err := s.Overwrite(rel, text); err != nil {
		return "", err
	}
	return rel, nil
}

// Read returns the body stored at rel.
func (s *Store) Read(rel string) (string, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", apperr.NotFound(fmt.Sprintf("content file %s not found", rel))
	}
	if err != nil {
		return "", apperr.Storage("read content file", err)
	}
	return string(data), nil
}

// DeleteIfExists removes the file at rel. A missing file or an empty path
// is not an error.
func (s *Store) DeleteIfExists(rel string) error {
	if rel == "" {
		return nil
	}
	abs, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Storage("delete content file", err)
	}
	return nil
}

// resolve maps a relative path onto the root, rejecting anything that could
// escape it. No filesystem call happens before the checks pass.
func (s *Store) resolve(rel string) (string, error) {
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", invalidPath(rel)
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) || filepath.VolumeName(rel) != "" {
		return "", invalidPath(rel)
	}
	for _, seg := range strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", invalidPath(rel)
		}
	}
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", invalidPath(rel)
	}
	return abs, nil
}

func invalidPath(rel string) error {
	return apperr.InvalidCode(apperr.CodeInvalidPath, fmt.Sprintf("invalid content path %q", rel))
}

// normalize strips a leading BOM and converts CRLF and lone CR to LF.
func normalize(text string) []byte {
	b := bytes.TrimPrefix([]byte(text), utf8BOM)
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
}

// writeAtomic writes data to a temp file beside target and renames it into
// place. When the rename is refused, it falls back to rewriting the target
// directly with the fully prepared buffer.
func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Storage("create content dir", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return apperr.Storage("create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return apperr.Storage("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return apperr.Storage("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return apperr.Storage("close temp file", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		slog.Warn("atomic rename failed, rewriting in place", "path", target, "error", err)
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return apperr.Storage("write content file", err)
		}
	}
	return nil
}

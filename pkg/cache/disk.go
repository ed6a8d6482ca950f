// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pydiscover/pkg/pathid"
)

// SchemaVersion is the on-disk document schema. Bumping it moves the cache
// to a fresh directory, invalidating every prior entry without migration.
const SchemaVersion = 4

type (
	// Disk is the default file-system backed Cache. Documents live at
	// <root>/py_info/<schema>/<sha256(path)>.json with a sibling .lock file
	// per entry for cross-process exclusion.
	Disk struct {
		root string
	}

	// DiskStore is the ContentStore for one interpreter path.
	DiskStore struct {
		dir string
		key string
	}
)

// NewDisk creates a disk cache rooted at root. The directory is created
// lazily on first write.
func NewDisk(root string) *Disk {
	return &Disk{root: root}
}

func (d *Disk) dir() string {
	return filepath.Join(d.root, "py_info", fmt.Sprintf("%d", SchemaVersion))
}

// EntryFor returns the store for one interpreter path, keyed by the SHA-256
// of the absolutized, case-folded path.
func (d *Disk) EntryFor(path string) ContentStore {
	abs, err := pathid.Absolutize(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(pathid.ID(abs)))
	return &DiskStore{dir: d.dir(), key: hex.EncodeToString(sum[:])}
}

// Clear removes every stored document, leaving lock files in place so
// concurrent holders are not disturbed.
func (d *Disk) Clear() error {
	entries, err := os.ReadDir(d.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clear cache %s: %w", d.dir(), err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir(), entry.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear cache %s: %w", d.dir(), err)
		}
	}
	return nil
}

func (s *DiskStore) file() string {
	return filepath.Join(s.dir, s.key+".json")
}

func (s *DiskStore) lockFile() string {
	return filepath.Join(s.dir, s.key+".lock")
}

// Exists reports whether the document file is present.
func (s *DiskStore) Exists() bool {
	_, err := os.Stat(s.file())
	return err == nil
}

// Read returns the stored document, or nil when absent. A document that is
// not valid JSON is removed and reported absent.
func (s *DiskStore) Read() []byte {
	data, err := os.ReadFile(s.file())
	if err != nil {
		return nil
	}
	if !json.Valid(data) {
		s.Remove()
		return nil
	}
	return data
}

// Write stores the document atomically: a temporary sibling is written and
// renamed into place.
func (s *DiskStore) Write(content []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", s.dir, err)
	}
	tmp, err := os.CreateTemp(s.dir, s.key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmpName, s.file()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}

// Remove deletes the document file if present.
func (s *DiskStore) Remove() {
	_ = os.Remove(s.file())
}

// Locked runs fn while holding an exclusive advisory lock on the entry's
// .lock file. When the platform offers no cross-process lock, a process-wide
// mutex keyed by the lock path stands in.
func (s *DiskStore) Locked(fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", s.dir, err)
	}
	release, err := acquireFileLock(s.lockFile())
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

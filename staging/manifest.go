//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ManifestContentType is the MIME type used when a manifest is uploaded.
const ManifestContentType = "application/json"

// Manifest is the ordered record of artifacts staged by one call.
type Manifest struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Artifacts []ManifestEntry `json:"artifacts"`
}

// ManifestEntry describes one staged artifact.
type ManifestEntry struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// FileName returns the name the manifest is stored under.
func (m *Manifest) FileName() string {
	return fmt.Sprintf("MANIFEST-%s.json", m.ID)
}

// Names returns the artifact names in staging order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Artifacts))
	for _, a := range m.Artifacts {
		names = append(names, a.Name)
	}
	return names
}

// Marshal encodes the manifest as indented JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Describe builds the manifest entry for a local file about to be staged at
// stagedPath. The artifact name is the last component of stagedPath.
func Describe(localPath, stagedPath string) (ManifestEntry, error) {
	_, name := Split(stagedPath)
	if err := ValidateName(name); err != nil {
		return ManifestEntry{}, err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("hash %s: %w", localPath, err)
	}
	return ManifestEntry{
		Name:   name,
		Path:   stagedPath,
		Size:   n,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Recorder accumulates manifest entries until they are sealed into a
// Manifest. Backends embed it.
type Recorder struct {
	mu      sync.Mutex
	entries []ManifestEntry
}

// Record appends an entry. An entry with the same staged path replaces the
// earlier one in place, since the backend overwrote the object.
func (r *Recorder) Record(e ManifestEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].Path == e.Path {
			r.entries[i] = e
			return
		}
	}
	r.entries = append(r.entries, e)
}

// Pending returns a copy of the entries recorded since the last seal.
func (r *Recorder) Pending() []ManifestEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ManifestEntry(nil), r.entries...)
}

// Seal builds a manifest from the pending entries. The pending entries are
// kept until Reset so that a failed upload can be retried.
func (r *Recorder) Seal() *Manifest {
	return &Manifest{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Artifacts: r.Pending(),
	}
}

// Reset drops the pending entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

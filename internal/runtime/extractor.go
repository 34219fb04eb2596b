// Package runtime implements the Runtime Extractor (spec §4.2
// "Runtime extractor (inverse of Packer)"): detecting an appended
// overlay, extracting it into a hash-addressed cache directory, and
// constructing the isolated environment the scripting backend runs in.
package runtime

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"auroraview/internal/alog"
	"auroraview/internal/overlay"
)

// Header is the packer's overlay header blob, decoded back out.
type Header struct {
	EntryPoint string         `json:"entry_point"`
	Mode       string         `json:"mode"`
	Meta       map[string]any `json:"meta"`
}

const versionMarkerFile = ".auroraview-version"

// Extractor detects and extracts a packed executable's overlay.
type Extractor struct {
	cacheRoot string
	validated *lru.Cache[string, string] // content hash -> extract dir, avoids a stat() per launch
	log       *alog.Logger
}

// New creates an Extractor whose cache lives under cacheRoot
// (typically "<user-cache>/<app>").
func New(cacheRoot string) (*Extractor, error) {
	cache, err := lru.New[string, string](32)
	if err != nil {
		return nil, err
	}
	return &Extractor{cacheRoot: cacheRoot, validated: cache, log: alog.Runtime}, nil
}

// Detect inspects self (normally the running executable) for an
// overlay. It returns overlay.ErrNotPacked (not wrapped) when absent,
// which callers should treat as "run in cli mode" (spec §4.2 step 1).
func Detect(selfPath string) (*overlay.Reader, error) {
	f, err := os.Open(selfPath)
	if err != nil {
		return nil, fmt.Errorf("runtime: open self: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("runtime: stat self: %w", err)
	}

	return overlay.Detect(f, info.Size())
}

// Extracted describes a ready-to-run extraction.
type Extracted struct {
	Dir       string
	Header    Header
	Resources string // "<Dir>/resources"
	Python    string // "<Dir>/python"
}

// Extract ensures r's payload is extracted under a content-hashed
// cache directory, skipping the work if the version marker already
// matches (spec §4.2 steps 2-4).
func (e *Extractor) Extract(r *overlay.Reader) (Extracted, error) {
	hash := contentHash(r)

	if dir, ok := e.validated.Get(hash); ok {
		if header, err := readHeader(r); err == nil {
			return Extracted{Dir: dir, Header: header, Resources: filepath.Join(dir, "resources"), Python: filepath.Join(dir, "python")}, nil
		}
	}

	dir := filepath.Join(e.cacheRoot, hash)
	header, err := readHeader(r)
	if err != nil {
		return Extracted{}, err
	}

	marker := filepath.Join(dir, versionMarkerFile)
	if data, err := os.ReadFile(marker); err == nil && strings.TrimSpace(string(data)) == hash {
		e.validated.Add(hash, dir)
		return Extracted{Dir: dir, Header: header, Resources: filepath.Join(dir, "resources"), Python: filepath.Join(dir, "python")}, nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return Extracted{}, fmt.Errorf("runtime: clear stale cache dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Extracted{}, fmt.Errorf("runtime: create cache dir: %w", err)
	}

	for _, entry := range r.Assets() {
		data, err := r.ReadAsset(entry.Path)
		if err != nil {
			return Extracted{}, err
		}

		var dest string
		switch {
		case strings.HasPrefix(entry.Path, "python/"):
			dest = filepath.Join(dir, entry.Path)
		default:
			dest = filepath.Join(dir, "resources", entry.Path)
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return Extracted{}, err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return Extracted{}, err
		}
	}

	// Write the version marker last: it is the commit signal that this
	// cache directory is fully populated (spec §4.2 step 4).
	if err := os.WriteFile(marker, []byte(hash), 0o644); err != nil {
		return Extracted{}, err
	}

	e.validated.Add(hash, dir)
	return Extracted{Dir: dir, Header: header, Resources: filepath.Join(dir, "resources"), Python: filepath.Join(dir, "python")}, nil
}

func contentHash(r *overlay.Reader) string {
	h := sha256.New()
	h.Write(r.Header())
	for _, e := range r.Assets() {
		fmt.Fprintf(h, "%s:%d:%d;", e.Path, e.Offset, e.CompressedLen)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func readHeader(r *overlay.Reader) (Header, error) {
	var h Header
	if err := json.Unmarshal(r.Header(), &h); err != nil {
		return Header{}, fmt.Errorf("runtime: decode overlay header: %w", err)
	}
	return h, nil
}

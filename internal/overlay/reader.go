package overlay

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// Reader gives random access to a detected overlay's header and
// assets, without holding the whole payload decompressed in memory.
type Reader struct {
	trailer Trailer
	header  []byte
	index   []IndexEntry
	// assetsStart is the absolute file offset where the ASSETS region begins.
	assetsStart int64
	src         io.ReaderAt
}

// Detect seeks to the end of src (of the given total size) and
// inspects the trailer. It returns ErrNotPacked if the magic does not
// match, which callers must treat as "run as a plain stub", not an error.
func Detect(src io.ReaderAt, size int64) (*Reader, error) {
	if size < trailerSize {
		return nil, ErrNotPacked
	}

	trailerBuf := make([]byte, trailerSize)
	if _, err := src.ReadAt(trailerBuf, size-trailerSize); err != nil {
		return nil, fmt.Errorf("overlay: read trailer: %w", err)
	}

	if !bytes.Equal(trailerBuf[:8], Magic[:]) {
		return nil, ErrNotPacked
	}

	r := bytes.NewReader(trailerBuf[8:])
	var t Trailer
	if err := binary.Read(r, binary.LittleEndian, &t.Version); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.IndexOffset); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.PayloadSize); err != nil {
		return nil, err
	}
	copy(t.Checksum[:], trailerBuf[8+4+8+8:])

	payloadStart := size - trailerSize - int64(t.PayloadSize)
	if payloadStart < 0 {
		return nil, fmt.Errorf("overlay: payload size %d exceeds file size", t.PayloadSize)
	}

	payload := make([]byte, t.PayloadSize)
	if _, err := src.ReadAt(payload, payloadStart); err != nil {
		return nil, fmt.Errorf("overlay: read payload: %w", err)
	}

	if got := sha256.Sum256(payload); got != t.Checksum {
		return nil, fmt.Errorf("overlay: checksum mismatch, overlay is corrupt")
	}

	headerLen := binary.LittleEndian.Uint32(payload[:4])
	header := payload[4 : 4+headerLen]

	if uint64(4+headerLen) != t.IndexOffset {
		return nil, fmt.Errorf("overlay: index offset mismatch (got %d, trailer says %d)", 4+headerLen, t.IndexOffset)
	}

	cursor := t.IndexOffset
	count := binary.LittleEndian.Uint32(payload[cursor : cursor+4])
	cursor += 4

	entries := make([]IndexEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		pathLen := binary.LittleEndian.Uint16(payload[cursor : cursor+2])
		cursor += 2
		path := string(payload[cursor : cursor+uint64(pathLen)])
		cursor += uint64(pathLen)
		offset := binary.LittleEndian.Uint64(payload[cursor : cursor+8])
		cursor += 8
		compLen := binary.LittleEndian.Uint64(payload[cursor : cursor+8])
		cursor += 8
		uncompLen := binary.LittleEndian.Uint64(payload[cursor : cursor+8])
		cursor += 8
		flags := binary.LittleEndian.Uint16(payload[cursor : cursor+2])
		cursor += 2

		entries = append(entries, IndexEntry{Path: path, Offset: offset, CompressedLen: compLen, UncompressedLen: uncompLen, Flags: AssetFlags(flags)})
	}

	assetsRegionStart := cursor
	assetsRegionSize := uint64(len(payload)) - assetsRegionStart
	for _, e := range entries {
		if e.Offset+e.CompressedLen > assetsRegionSize {
			return nil, fmt.Errorf("overlay: index entry %q window exceeds payload bounds", e.Path)
		}
	}

	return &Reader{
		trailer:     t,
		header:      append([]byte(nil), header...),
		index:       entries,
		assetsStart: payloadStart + int64(assetsRegionStart),
		src:         src,
	}, nil
}

// Header returns the raw header blob (a caller-defined serialized
// config, typically JSON).
func (r *Reader) Header() []byte { return r.header }

// Assets lists every indexed asset path.
func (r *Reader) Assets() []IndexEntry { return append([]IndexEntry(nil), r.index...) }

// Paths lists every indexed asset path, satisfying
// protocolhandler.AssetTable for the custom-scheme suffix-match
// fallback (spec §6).
func (r *Reader) Paths() []string {
	out := make([]string, len(r.index))
	for i, e := range r.index {
		out[i] = e.Path
	}
	return out
}

// ReadAsset decompresses and returns one asset's contents by path.
func (r *Reader) ReadAsset(path string) ([]byte, error) {
	for _, e := range r.index {
		if e.Path == path {
			compressed := make([]byte, e.CompressedLen)
			if _, err := r.src.ReadAt(compressed, r.assetsStart+int64(e.Offset)); err != nil {
				return nil, fmt.Errorf("overlay: read asset %q: %w", path, err)
			}
			return inflate(compressed, e.UncompressedLen)
		}
	}
	return nil, fmt.Errorf("overlay: asset %q not found", path)
}

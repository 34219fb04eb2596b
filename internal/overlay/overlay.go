// Package overlay implements AuroraView's packed-executable container
// format (spec §4.3): a stub binary with a versioned payload of
// packaging metadata and compressed assets appended to its end.
package overlay

import (
	"bytes"
	"compress/flate"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic identifies an AuroraView overlay trailer.
var Magic = [8]byte{'A', 'U', 'R', 'O', 'R', 'A', 'V', '1'}

// Version is the current overlay format version.
const Version uint32 = 1

// trailerSize is MAGIC(8) + VERSION(4) + INDEX_OFFSET(8) + PAYLOAD_SIZE(8) + CHECKSUM(32).
const trailerSize = 8 + 4 + 8 + 8 + 32

// AssetFlags bit values.
const (
	FlagNone AssetFlags = 0
)

type AssetFlags uint16

// IndexEntry describes one stored asset within the payload's ASSETS
// region.
type IndexEntry struct {
	Path            string
	Offset          uint64 // from start of ASSETS region
	CompressedLen   uint64
	UncompressedLen uint64
	Flags           AssetFlags
}

// Trailer is the fixed-layout footer read back from a packed binary.
type Trailer struct {
	Version     uint32
	IndexOffset uint64 // from start of payload
	PayloadSize uint64
	Checksum    [32]byte
}

var ErrNotPacked = errors.New("overlay: trailer magic mismatch, binary is not packed")

// Build assembles a payload (header blob + index + compressed assets)
// and appends it, with its trailer, after everything already written
// to w (typically a copy of the stub executable). assets maps a
// logical path to its uncompressed bytes.
func Build(w io.Writer, header []byte, assets map[string][]byte) error {
	paths := make([]string, 0, len(assets))
	for p := range assets {
		paths = append(paths, p)
	}

	var assetBuf bytes.Buffer
	entries := make([]IndexEntry, 0, len(paths))
	for _, p := range paths {
		raw := assets[p]
		compressed, err := deflate(raw)
		if err != nil {
			return fmt.Errorf("overlay: compress %s: %w", p, err)
		}
		entries = append(entries, IndexEntry{
			Path:            p,
			Offset:          uint64(assetBuf.Len()),
			CompressedLen:   uint64(len(compressed)),
			UncompressedLen: uint64(len(raw)),
			Flags:           FlagNone,
		})
		assetBuf.Write(compressed)
	}

	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.LittleEndian, uint32(len(header))); err != nil {
		return err
	}
	payload.Write(header)

	indexOffset := uint64(payload.Len())

	if err := binary.Write(&payload, binary.LittleEndian, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeIndexEntry(&payload, e); err != nil {
			return err
		}
	}
	payload.Write(assetBuf.Bytes())

	payloadBytes := payload.Bytes()
	checksum := sha256.Sum256(payloadBytes)

	if _, err := w.Write(payloadBytes); err != nil {
		return fmt.Errorf("overlay: write payload: %w", err)
	}

	var trailer bytes.Buffer
	trailer.Write(Magic[:])
	binary.Write(&trailer, binary.LittleEndian, Version)
	binary.Write(&trailer, binary.LittleEndian, indexOffset)
	binary.Write(&trailer, binary.LittleEndian, uint64(len(payloadBytes)))
	trailer.Write(checksum[:])

	if trailer.Len() != trailerSize {
		return fmt.Errorf("overlay: internal error, trailer size %d != %d", trailer.Len(), trailerSize)
	}
	_, err := w.Write(trailer.Bytes())
	return err
}

func writeIndexEntry(w io.Writer, e IndexEntry) error {
	pathBytes := []byte(e.Path)
	if err := binary.Write(w, binary.LittleEndian, uint16(len(pathBytes))); err != nil {
		return err
	}
	if _, err := w.Write(pathBytes); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Offset); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.CompressedLen); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.UncompressedLen); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint16(e.Flags))
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(compressed []byte, uncompressedLen uint64) ([]byte, error) {
	zr := flate.NewReader(bytes.NewReader(compressed))
	defer zr.Close()
	out := make([]byte, 0, uncompressedLen)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

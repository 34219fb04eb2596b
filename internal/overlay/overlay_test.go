package overlay

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDetectRoundTrip(t *testing.T) {
	stub := []byte("#!/bin/fake-stub\n")
	header := []byte(`{"entry":"index.html"}`)
	assets := map[string][]byte{
		"index.html": []byte("<html><body>hello</body></html>"),
		"style.css":  []byte("body { color: red; }"),
	}

	var out bytes.Buffer
	out.Write(stub)
	require.NoError(t, Build(&out, header, assets))

	data := out.Bytes()
	r, err := Detect(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	assert.Equal(t, header, r.Header())
	assert.Len(t, r.Assets(), 2)

	for path, want := range assets {
		got, err := r.ReadAsset(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDetectNonPackedBinary(t *testing.T) {
	data := []byte("just a normal executable, no trailer here at all")
	_, err := Detect(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrNotPacked)
}

func TestDetectTooSmall(t *testing.T) {
	data := []byte("x")
	_, err := Detect(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrNotPacked)
}

func TestDetectRejectsCorruptedChecksum(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Build(&out, []byte("{}"), map[string][]byte{"a.txt": []byte("data")}))
	data := out.Bytes()

	// Flip a byte inside the payload, well before the trailer.
	data[0] ^= 0xFF

	_, err := Detect(bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
}

func TestAssetNotFound(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Build(&out, []byte("{}"), map[string][]byte{"a.txt": []byte("data")}))
	data := out.Bytes()

	r, err := Detect(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	_, err = r.ReadAsset("missing.txt")
	require.Error(t, err)
}

package protocolhandler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTable map[string][]byte

func (f fakeTable) ReadAsset(path string) ([]byte, error) {
	if data, ok := f[path]; ok {
		return data, nil
	}
	return nil, errors.New("not found")
}

func (f fakeTable) Paths() []string {
	out := make([]string, 0, len(f))
	for p := range f {
		out = append(out, p)
	}
	return out
}

func TestHandleEmptyPathDefaultsToIndex(t *testing.T) {
	assets := fakeTable{"index.html": []byte("<html></html>")}
	resp := Handle(assets, "/")
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "text/html; charset=utf-8", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandleFrontendPrefixFallback(t *testing.T) {
	assets := fakeTable{"frontend/app.js": []byte("console.log(1)")}
	resp := Handle(assets, "/app.js")
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, []byte("console.log(1)"), resp.Body)
}

func TestHandleSuffixMatchFallback(t *testing.T) {
	assets := fakeTable{"nested/dir/logo.png": []byte{0x89, 0x50}}
	resp := Handle(assets, "/logo.png")
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "image/png", resp.Headers["Content-Type"])
}

func TestHandleMissingAssetReturns404(t *testing.T) {
	assets := fakeTable{}
	resp := Handle(assets, "/missing.html")
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "Not Found", string(resp.Body))
}

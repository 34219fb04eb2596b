// Package protocolhandler implements the custom URL scheme response
// contract (spec §6 "Custom URL scheme"): given a path component, it
// resolves the matching packed asset (trying the literal path, a
// "frontend/<name>" prefix, and any "<anything>/<name>" suffix match,
// per spec), and shapes the response for a scheme request. No engine
// in internal/webviewhost registers this resolver with a native
// URI-scheme API (WKURLSchemeHandler on macOS,
// AddWebResourceRequestedFilter on Windows, WebKitWebContext's
// register_uri_scheme on Linux); its one caller, the packed-mode
// launcher in cmd/auroraview, resolves index.html once and loads it as
// HTML, so other scheme requests are not served (spec §6, invariant 5).
package protocolhandler

import (
	"mime"
	"path"
	"strings"
)

// AssetTable resolves a relative asset path to its bytes, as built by
// the overlay Reader or the Runtime Extractor's in-memory index.
// Paths lists every asset path the table holds, enabling the
// "<anything>/<name>" suffix-match fallback (spec §6).
type AssetTable interface {
	ReadAsset(path string) ([]byte, error)
	Paths() []string
}

// Response is the shaped reply for one scheme request (spec §6: "200
// + MIME guessed from extension + Access-Control-Allow-Origin: *", or
// "404 Not Found").
type Response struct {
	Status  int
	Body    []byte
	Headers map[string]string
}

const notFoundBody = "Not Found"

// Handle resolves rawPath (the scheme request's path component) against
// assets and returns the shaped Response (spec §6).
func Handle(assets AssetTable, rawPath string) Response {
	name := strings.TrimPrefix(rawPath, "/")
	if name == "" {
		name = "index.html"
	}

	for _, candidate := range candidates(assets, name) {
		if data, err := assets.ReadAsset(candidate); err == nil {
			return Response{
				Status: 200,
				Body:   data,
				Headers: map[string]string{
					"Content-Type":                guessMIME(candidate),
					"Access-Control-Allow-Origin": "*",
				},
			}
		}
	}

	return Response{
		Status:  404,
		Body:    []byte(notFoundBody),
		Headers: map[string]string{"Content-Type": "text/plain", "Access-Control-Allow-Origin": "*"},
	}
}

// candidates enumerates the lookup order spec §6 names: the literal
// name, "frontend/<name>", then every "<anything>/<name>" suffix
// match found in the asset table, in table order.
func candidates(assets AssetTable, name string) []string {
	out := []string{name, "frontend/" + name}
	suffix := "/" + name
	for _, p := range assets.Paths() {
		if strings.HasSuffix(p, suffix) {
			out = append(out, p)
		}
	}
	return out
}

// guessMIME guesses a Content-Type from the asset's extension (spec
// §6 "MIME guessed from extension"). mime.TypeByExtension is used
// directly: this is an extension->type table lookup, not a
// content-sniffing problem, so no third-party library in the pack
// (e.g. gabriel-vasile/mimetype, a sniffing library) fits better than
// the standard library's own extension table.
func guessMIME(assetPath string) string {
	if t := mime.TypeByExtension(path.Ext(assetPath)); t != "" {
		return t
	}
	return "application/octet-stream"
}

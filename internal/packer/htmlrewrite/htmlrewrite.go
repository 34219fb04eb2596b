// Package htmlrewrite rewrites relative resource references in HTML
// and CSS assets to AuroraView's custom URL scheme (spec §4.2 step 3,
// invariant 6), so the packed runtime's protocol handler can serve
// them from the in-memory asset table.
package htmlrewrite

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Scheme is the reserved custom scheme assets are rewritten under.
const Scheme = "auroraview://"

var rewritableAttrs = map[string][]string{
	"link":   {"href"},
	"script": {"src"},
	"img":    {"src", "srcset"},
	"source": {"src", "srcset"},
	"video":  {"src", "poster"},
	"audio":  {"src"},
}

var cssURLPattern = regexp.MustCompile(`url\(\s*(['"]?)([^'")]+)['"]?\s*\)`)

// ShouldRewrite reports whether ref needs rewriting: it excludes
// absolute URLs, data URIs, protocol-relative URLs, in-page anchors,
// and references already under Scheme.
func ShouldRewrite(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	switch {
	case strings.HasPrefix(ref, "#"):
		return false
	case strings.HasPrefix(ref, "//"):
		return false
	case strings.HasPrefix(ref, Scheme):
		return false
	case strings.HasPrefix(ref, "data:"):
		return false
	case strings.Contains(ref, "://"):
		return false
	case strings.HasPrefix(ref, "mailto:") || strings.HasPrefix(ref, "tel:") || strings.HasPrefix(ref, "javascript:"):
		return false
	}
	return true
}

// Rewrite rewrites ref to the custom scheme: leading "./" is
// stripped, "../" is preserved for the runtime resolver.
func Rewrite(ref string) string {
	if !ShouldRewrite(ref) {
		return ref
	}
	ref = strings.TrimPrefix(ref, "./")
	return Scheme + ref
}

// HTML rewrites every relative href/src/srcset reference and every
// inline <style> block's CSS url(...) reference in doc.
func HTML(doc []byte) ([]byte, error) {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(string(doc)))
	if err != nil {
		return nil, err
	}

	for tag, attrs := range rewritableAttrs {
		parsed.Find(tag).Each(func(_ int, sel *goquery.Selection) {
			for _, attr := range attrs {
				if val, ok := sel.Attr(attr); ok && val != "" {
					if attr == "srcset" {
						sel.SetAttr(attr, rewriteSrcset(val))
					} else {
						sel.SetAttr(attr, Rewrite(val))
					}
				}
			}
		})
	}

	parsed.Find("style").Each(func(_ int, sel *goquery.Selection) {
		sel.SetText(CSS(sel.Text()))
	})

	parsed.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		if inline, ok := sel.Attr("style"); ok {
			sel.SetAttr("style", CSS(inline))
		}
	})

	out, err := goquery.OuterHtml(parsed.Selection)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// CSS rewrites every url(...) reference in a stylesheet or style
// attribute.
func CSS(css string) string {
	return cssURLPattern.ReplaceAllStringFunc(css, func(match string) string {
		groups := cssURLPattern.FindStringSubmatch(match)
		quote, ref := groups[1], groups[2]
		rewritten := Rewrite(ref)
		return "url(" + quote + rewritten + quote + ")"
	})
}

func rewriteSrcset(val string) string {
	parts := strings.Split(val, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		fields[0] = Rewrite(fields[0])
		parts[i] = strings.Join(fields, " ")
	}
	return strings.Join(parts, ", ")
}

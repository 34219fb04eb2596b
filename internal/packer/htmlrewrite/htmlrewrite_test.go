package htmlrewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldRewrite(t *testing.T) {
	cases := map[string]bool{
		"style.css":             true,
		"./style.css":           true,
		"../shared/style.css":   true,
		"#section":               false,
		"//cdn.example.com/a.js": false,
		"https://example.com/a.js": false,
		"data:image/png;base64,AAAA": false,
		"mailto:a@example.com": false,
		"auroraview://already/done.css": false,
		"":                      false,
	}
	for ref, want := range cases {
		assert.Equal(t, want, ShouldRewrite(ref), "ref=%q", ref)
	}
}

func TestRewriteStripsLeadingDotSlashPreservesDotDot(t *testing.T) {
	assert.Equal(t, "auroraview://style.css", Rewrite("./style.css"))
	assert.Equal(t, "auroraview://../shared/style.css", Rewrite("../shared/style.css"))
}

func TestCSSRewritesURLFunction(t *testing.T) {
	css := `body { background: url('./bg.png'); } .x { background: url(../x/y.png); }`
	got := CSS(css)
	assert.Contains(t, got, "url('auroraview://bg.png')")
	assert.Contains(t, got, "url(auroraview://../x/y.png)")
}

func TestHTMLRewritesLinkScriptImg(t *testing.T) {
	doc := []byte(`<html><head><link rel="stylesheet" href="./style.css"></head>
<body><img src="images/logo.png"><script src="./app.js"></script></body></html>`)

	out, err := HTML(doc)
	require.NoError(t, err)
	got := string(out)

	assert.True(t, strings.Contains(got, `href="auroraview://style.css"`))
	assert.True(t, strings.Contains(got, `src="auroraview://images/logo.png"`))
	assert.True(t, strings.Contains(got, `src="auroraview://app.js"`))
}

func TestHTMLLeavesAbsoluteReferencesAlone(t *testing.T) {
	doc := []byte(`<html><head><link rel="stylesheet" href="https://cdn.example.com/a.css"></head><body></body></html>`)
	out, err := HTML(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `href="https://cdn.example.com/a.css"`)
}

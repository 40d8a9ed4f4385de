package analysis

import (
	"bytes"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"
)

// RenderFormats lists the accepted values for Render.
var RenderFormats = []string{"md", "json", "yaml", "html"}

// JSON returns the indented JSON encoding of the report.
func (r *Report) JSON() ([]byte, error) {
	b, err := gojson.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report json: %w", err)
	}
	return append(b, '\n'), nil
}

// YAML returns the YAML encoding of the report.
func (r *Report) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HTML renders the markdown report into a standalone HTML page.
func (r *Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "edaloom: " + r.Name,
	})
	return markdown.ToHTML([]byte(r.Markdown()), p, renderer)
}

// Render encodes the report in the named format (md, json, yaml, html).
func (r *Report) Render(format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return []byte(r.Markdown()), nil
	case "json":
		return r.JSON()
	case "yaml", "yml":
		return r.YAML()
	case "html":
		return r.HTML(), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want one of %s)", format, strings.Join(RenderFormats, ", "))
	}
}

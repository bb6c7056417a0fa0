package viewer

import (
	"path"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/Faultbox/modelstage/internal/exporter"
)

// SchemaJSON describes a model as a schema.org 3DModel for structured
// data. name and poster are optional.
func SchemaJSON(src, name, poster string) (string, error) {
	doc := `{"@context":"http://schema.org/","@type":"3DModel"}`
	var err error
	if name != "" {
		if doc, err = sjson.Set(doc, "name", name); err != nil {
			return "", err
		}
	}
	if poster != "" {
		if doc, err = sjson.Set(doc, "image", poster); err != nil {
			return "", err
		}
	}
	if src == "" {
		return doc, nil
	}
	format := exporter.MimeGLTF
	if strings.EqualFold(path.Ext(stripQuery(src)), ".glb") {
		format = exporter.MimeGLB
	}
	return sjson.Set(doc, "encoding", []map[string]string{{
		"@type":          "MediaObject",
		"contentUrl":     src,
		"encodingFormat": format,
	}})
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

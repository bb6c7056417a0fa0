package scenegraph

import (
	"encoding/json"

	"github.com/qmuntal/gltf"
	"github.com/tidwall/gjson"
)

// VariantsExtension is the glTF extension carrying material variants.
const VariantsExtension = "KHR_materials_variants"

// extensionJSON returns the raw JSON of an extension. Extensions decoded
// from a file are json.RawMessage; ones set in code are marshalled.
func extensionJSON(ext gltf.Extensions, name string) (gjson.Result, bool) {
	v, ok := ext[name]
	if !ok || v == nil {
		return gjson.Result{}, false
	}
	var raw []byte
	switch r := v.(type) {
	case json.RawMessage:
		raw = r
	case []byte:
		raw = r
	case string:
		raw = []byte(r)
	default:
		b, err := json.Marshal(r)
		if err != nil {
			return gjson.Result{}, false
		}
		raw = b
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(raw), true
}

// variantNames reads the root variant list.
func variantNames(doc *gltf.Document) []string {
	ext, ok := extensionJSON(doc.Extensions, VariantsExtension)
	if !ok {
		return nil
	}
	var names []string
	ext.Get("variants").ForEach(func(_, v gjson.Result) bool {
		names = append(names, v.Get("name").String())
		return true
	})
	return names
}

// primitiveMappings reads a primitive's variant index → material index
// table. Entries naming unknown variants or materials are dropped.
func primitiveMappings(p *gltf.Primitive, variants, materials int) map[int]int {
	ext, ok := extensionJSON(p.Extensions, VariantsExtension)
	if !ok {
		return nil
	}
	out := make(map[int]int)
	ext.Get("mappings").ForEach(func(_, m gjson.Result) bool {
		mat := m.Get("material")
		if !mat.Exists() || mat.Int() < 0 || int(mat.Int()) >= materials {
			return true
		}
		m.Get("variants").ForEach(func(_, v gjson.Result) bool {
			if vi := int(v.Int()); vi >= 0 && vi < variants {
				out[vi] = int(mat.Int())
			}
			return true
		})
		return true
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

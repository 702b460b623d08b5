package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/panchamjain/suvidha/pkg/log"
)

// Shape identifies which layout of the search payload was recognized.
type Shape string

const (
	ShapeArray   Shape = "array"
	ShapeResults Shape = "results"
	ShapeKeyed   Shape = "keyed"
	ShapeSingle  Shape = "single"
	ShapeNested  Shape = "nested"
	ShapeUnknown Shape = "unknown"
)

// keyedCollections are the envelope keys merged by the keyed decoder, in
// concatenation order.
var keyedCollections = []string{"merchants", "categories", "businesses", "shops", "stores", "data"}

type rawItem struct {
	value   any
	context string
}

type shapeDecoder struct {
	shape  Shape
	decode func(body any) ([]rawItem, bool)
}

// The first decoder reporting a match wins, even when it yields no items.
var shapeDecoders = []shapeDecoder{
	{ShapeArray, decodeArray},
	{ShapeResults, decodeResults},
	{ShapeKeyed, decodeKeyed},
	{ShapeSingle, decodeSingle},
	{ShapeNested, decodeNested},
}

func decodeArray(body any) ([]rawItem, bool) {
	arr, ok := asArray(body)
	if !ok {
		return nil, false
	}
	return wrap(arr, ""), true
}

func decodeResults(body any) ([]rawItem, bool) {
	obj, ok := asRecord(body)
	if !ok {
		return nil, false
	}
	arr, ok := asArray(obj["results"])
	if !ok {
		return nil, false
	}
	return wrap(arr, ""), true
}

func decodeKeyed(body any) ([]rawItem, bool) {
	obj, ok := asRecord(body)
	if !ok {
		return nil, false
	}
	var items []rawItem
	matched := false
	for _, key := range keyedCollections {
		arr, ok := asArray(obj[key])
		if !ok {
			continue
		}
		matched = true
		items = append(items, wrap(arr, key)...)
	}
	return items, matched
}

func decodeSingle(body any) ([]rawItem, bool) {
	obj, ok := asRecord(body)
	if !ok {
		return nil, false
	}
	if obj.Truthy("id") || obj.Truthy("name") || obj.Truthy("title") {
		return []rawItem{{value: obj}}, true
	}
	return nil, false
}

func decodeNested(body any) ([]rawItem, bool) {
	obj, ok := asRecord(body)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []rawItem
	for _, k := range keys {
		child, ok := asRecord(obj[k])
		if !ok {
			continue
		}
		if child.Truthy("name") || child.Truthy("title") {
			items = append(items, rawItem{value: child, context: k})
		}
	}
	return items, len(items) > 0
}

func wrap(arr []any, context string) []rawItem {
	items := make([]rawItem, len(arr))
	for i, v := range arr {
		items[i] = rawItem{value: v, context: context}
	}
	return items
}

// DetectShape reports which decoder recognizes body.
func DetectShape(body any) Shape {
	for _, d := range shapeDecoders {
		if _, ok := d.decode(body); ok {
			return d.shape
		}
	}
	return ShapeUnknown
}

// Normalize maps a decoded search payload into canonical results. It never
// fails: unrecognized payloads and unusable records produce fewer results.
func Normalize(body any) []SearchResult {
	results, _ := NormalizeShape(body)
	return results
}

// NormalizeShape is Normalize that also reports the detected shape.
func NormalizeShape(body any) ([]SearchResult, Shape) {
	logger := log.ForService("search:normalize")

	for _, d := range shapeDecoders {
		items, ok := d.decode(body)
		if !ok {
			continue
		}
		results := make([]SearchResult, 0, len(items))
		for i, item := range items {
			r, ok := TransformItem(item.value, i, item.context)
			if !ok {
				logger.Debugf("dropping record %d (context %q): no usable title", i, item.context)
				continue
			}
			results = append(results, r)
		}
		logger.Debugf("shape %s: %d records, %d results", d.shape, len(items), len(results))
		return results, d.shape
	}

	logger.Debugf("unrecognized payload of type %T", body)
	return []SearchResult{}, ShapeUnknown
}

// Decode parses a single JSON value keeping numbers as json.Number. Anything
// but whitespace after the value is an error.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value at offset %d", dec.InputOffset())
	}
	return body, nil
}

// NormalizeBytes decodes a raw JSON payload and normalizes it.
func NormalizeBytes(data []byte) ([]SearchResult, Shape, error) {
	body, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ShapeUnknown, fmt.Errorf("decoding search payload: %w", err)
	}
	results, shape := NormalizeShape(body)
	return results, shape, nil
}

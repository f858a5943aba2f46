package spec

import (
	"bytes"
	"errors"
	"fmt"

	"print-scheduler/core/models"
	"print-scheduler/pkg/json"

	"gopkg.in/yaml.v3"
)

// ErrInvalidBatch is returned when a document is not a list of order records
var ErrInvalidBatch = errors.New("invalid order batch")

// BatchDocument is the wrapped form of a batch: {"orders": [...]}
type BatchDocument struct {
	Orders []models.RawRecord `json:"orders"`
}

// ParseBatch splits a JSON or YAML document into raw order records. The
// document is either a bare list of records or an object with an "orders"
// list. Records are not validated here.
func ParseBatch(data []byte) ([]models.RawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []models.RawRecord{}, nil
	}

	switch trimmed[0] {
	case '[':
		var records []models.RawRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidBatch, err)
		}
		return nonNil(records), nil
	case '{':
		var doc BatchDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidBatch, err)
		}
		if doc.Orders == nil {
			return nil, fmt.Errorf("%w: missing orders list", ErrInvalidBatch)
		}
		return doc.Orders, nil
	default:
		return parseYAMLBatch(trimmed)
	}
}

func parseYAMLBatch(data []byte) ([]models.RawRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidBatch, err)
	}

	list := resolve(&doc)
	if list != nil && list.Kind == yaml.MappingNode {
		list = mappingValue(list, "orders")
	}
	if list == nil || list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: expected a list of orders", ErrInvalidBatch)
	}

	records := make([]models.RawRecord, 0, len(list.Content))
	for _, item := range list.Content {
		encoded, err := json.Marshal(nodeValue(item))
		if err != nil {
			// Keep a placeholder so the validator counts the record as rejected
			encoded = []byte("null")
		}
		records = append(records, models.RawRecord(encoded))
	}

	return records, nil
}

// resolve unwraps document and alias nodes
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolve(m.Content[i+1])
		}
	}
	return nil
}

// nodeValue converts a YAML node to a JSON-encodable value. Numeric scalars
// are emitted with their literal text so "6.10" does not collapse to 6.1.
func nodeValue(n *yaml.Node) interface{} {
	n = resolve(n)
	if n == nil {
		return nil
	}

	switch n.Kind {
	case yaml.MappingNode:
		obj := make(map[string]interface{}, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			obj[n.Content[i].Value] = nodeValue(n.Content[i+1])
		}
		return obj
	case yaml.SequenceNode:
		list := make([]interface{}, 0, len(n.Content))
		for _, c := range n.Content {
			list = append(list, nodeValue(c))
		}
		return list
	}

	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int", "!!float":
		if json.Valid([]byte(n.Value)) {
			return models.RawRecord(n.Value)
		}
	}
	return n.Value
}

func nonNil(records []models.RawRecord) []models.RawRecord {
	if records == nil {
		return []models.RawRecord{}
	}
	return records
}

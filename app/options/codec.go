package options

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lysyi3m/demo-importer/app/phpserial"
	"gopkg.in/yaml.v3"
)

// ReadDataFile decodes an options data file. YAML files (.yml, .yaml) keep
// their key order; anything else is read as a PHP-serialized dump.
func ReadDataFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		return fromNode(&doc)
	default:
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, nil
		}
		v, err := phpserial.Unserialize(text)
		if err != nil {
			return nil, fmt.Errorf("failed to unserialize %s: %w", filepath.Base(path), err)
		}
		return v, nil
	}
}

// WriteDataFile writes v as YAML, keeping array order.
func WriteDataFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toNode(v)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.MappingNode:
		a := phpserial.NewArray()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			a.Set(n.Content[i].Value, v)
		}
		return a, nil
	case yaml.SequenceNode:
		a := phpserial.NewArray()
		for _, item := range n.Content {
			v, err := fromNode(item)
			if err != nil {
				return nil, err
			}
			a.Append(v)
		}
		return a, nil
	case yaml.ScalarNode:
		return scalarValue(n)
	}
	return nil, fmt.Errorf("unsupported YAML node at line %d", n.Line)
}

func scalarValue(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return i, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return n.Value, nil
	}
}

func toNode(v any) *yaml.Node {
	switch val := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case *phpserial.Array:
		if val.Len() > 0 && val.IsList() {
			n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for _, item := range val.Values {
				n.Content = append(n.Content, toNode(item))
			}
			return n
		}
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, k := range val.Keys {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(k)},
				toNode(val.Values[i]))
		}
		return n
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(val)}
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(val, 10)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(val, 'g', -1, 64)}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(val)}
	}
}

// encodeValue produces the stored form of an option: strings are kept as is,
// everything else is serialized.
func encodeValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return phpserial.Serialize(v)
}

func decodeValue(raw string) any {
	if !phpserial.IsSerialized(raw) {
		return raw
	}
	v, err := phpserial.Unserialize(raw)
	if err != nil {
		return raw
	}
	return v
}

// entries returns the top-level key/value pairs of a decoded data file.
func entries(v any) ([]string, []any, error) {
	if v == nil {
		return nil, nil, nil
	}
	a, ok := v.(*phpserial.Array)
	if !ok {
		return nil, nil, fmt.Errorf("expected a map of options, got %T", v)
	}
	names := make([]string, len(a.Keys))
	for i, k := range a.Keys {
		names[i] = fmt.Sprint(k)
	}
	return names, a.Values, nil
}

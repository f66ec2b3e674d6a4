package issues

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// documentReader handles JSON and YAML files holding a list of objects, one
// per issue. JSON is read through the YAML decoder, which accepts it as a
// subset; decoding into a node keeps the key order of the first object as the
// column order.
type documentReader struct{}

// CanHandle returns true for JSON and YAML file extensions.
func (d *documentReader) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".json" || ext == ".yaml" || ext == ".yml"
}

func (d *documentReader) Read(ctx context.Context, path string, _ LoadOptions) ([]string, [][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, nil, fmt.Errorf("expected a list of issue objects, got %s", kindName(root.Kind))
	}

	var header []string
	position := map[string]int{}
	var objects []map[string]string

	for i, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return nil, nil, fmt.Errorf("item %d: expected an object, got %s", i+1, kindName(item.Kind))
		}
		obj := make(map[string]string, len(item.Content)/2)
		for j := 0; j+1 < len(item.Content); j += 2 {
			key := strings.TrimSpace(item.Content[j].Value)
			if _, seen := position[key]; !seen {
				position[key] = len(header)
				header = append(header, key)
			}
			obj[key] = scalarValue(item.Content[j+1])
		}
		objects = append(objects, obj)
	}

	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		row := make([]string, len(header))
		for k, v := range obj {
			row[position[k]] = v
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func scalarValue(n *yaml.Node) string {
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "object"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "nothing"
}

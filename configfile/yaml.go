package configfile

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes and validates a YAML document. Unknown fields are errors.
//
//	nodeId: node-1
//	properties:
//	  application.name: orders
//	components:
//	  - name: cache
//	    type: app.Cache
//	    settings:
//	      size: 100
func LoadYAML(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Document
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("configfile: decode yaml: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = Values{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make(Values, 0, len(node.Content))
		for _, elem := range node.Content {
			if elem.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: setting values must be scalars", elem.Line)
			}
			out = append(out, elem.Value)
		}
		*v = out
		return nil
	default:
		return fmt.Errorf("line %d: setting must be a scalar or a list", node.Line)
	}
}

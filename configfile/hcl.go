package configfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

type hclDocument struct {
	NodeID            string            `hcl:"node_id,optional"`
	DeploymentVersion string            `hcl:"deployment_version,optional"`
	ClusterMode       bool              `hcl:"cluster_mode,optional"`
	ProductionMode    bool              `hcl:"production_mode,optional"`
	Properties        cty.Value         `hcl:"properties,optional"`
	Aliases           map[string]string `hcl:"aliases,optional"`
	Components        []*hclComponent   `hcl:"component,block"`
}

type hclComponent struct {
	Name        string    `hcl:"name,label"`
	Type        string    `hcl:"type"`
	Description string    `hcl:"description,optional"`
	Lifetime    string    `hcl:"lifetime,optional"`
	Preferred   bool      `hcl:"preferred,optional"`
	Overwrite   bool      `hcl:"overwrite,optional"`
	Hidden      []string  `hcl:"hidden,optional"`
	Settings    cty.Value `hcl:"settings,optional"`
}

// LoadHCL decodes and validates an HCL document. filename is used in
// diagnostics.
//
//	node_id = "node-1"
//	properties = {
//	  "application.name" = "orders"
//	}
//	component "cache" {
//	  type     = "app.Cache"
//	  settings = { size = 100 }
//	}
func LoadHCL(src []byte, filename string) (*Document, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("configfile: parse %s: %w", filename, diags)
	}

	var raw hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("configfile: decode %s: %w", filename, diags)
	}

	d, err := raw.document()
	if err != nil {
		return nil, fmt.Errorf("configfile: %s: %w", filename, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (raw *hclDocument) document() (*Document, error) {
	d := &Document{
		NodeID:            raw.NodeID,
		DeploymentVersion: raw.DeploymentVersion,
		ClusterMode:       raw.ClusterMode,
		ProductionMode:    raw.ProductionMode,
		Aliases:           raw.Aliases,
	}

	props, err := objectEntries(raw.Properties)
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}
	if len(props) > 0 {
		d.Properties = make(map[string]any, len(props))
	}
	for name, v := range props {
		native, err := ctyNative(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		d.Properties[name] = native
	}

	for _, rc := range raw.Components {
		c := Component{
			Name:        rc.Name,
			Type:        rc.Type,
			Description: rc.Description,
			Lifetime:    rc.Lifetime,
			Preferred:   rc.Preferred,
			Overwrite:   rc.Overwrite,
			Hidden:      rc.Hidden,
		}

		settings, err := objectEntries(rc.Settings)
		if err != nil {
			return nil, fmt.Errorf("component %q settings: %w", rc.Name, err)
		}
		if len(settings) > 0 {
			c.Settings = make(map[string]Values, len(settings))
		}
		for name, v := range settings {
			values, err := ctyStrings(v)
			if err != nil {
				return nil, fmt.Errorf("component %q setting %q: %w", rc.Name, name, err)
			}
			c.Settings[name] = values
		}

		d.Components = append(d.Components, c)
	}

	return d, nil
}

// objectEntries returns the attributes of an object or map value. A null
// value has none.
func objectEntries(v cty.Value) (map[string]cty.Value, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", ty.FriendlyName())
	}
	return v.AsValueMap(), nil
}

// ctyNative converts a property value to string, bool or []string.
func ctyNative(v cty.Value) (any, error) {
	if v.IsNull() {
		return "", nil
	}
	if v.Type() == cty.Bool {
		return v.True(), nil
	}
	if isCollection(v.Type()) {
		values, err := ctyStrings(v)
		return []string(values), err
	}
	return ctyString(v)
}

// ctyStrings converts a primitive or a collection of primitives.
func ctyStrings(v cty.Value) (Values, error) {
	if !isCollection(v.Type()) {
		s, err := ctyString(v)
		if err != nil {
			return nil, err
		}
		return Values{s}, nil
	}

	out := make(Values, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		s, err := ctyString(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func ctyString(v cty.Value) (string, error) {
	if v.IsNull() || !v.IsKnown() {
		return "", fmt.Errorf("value must be known and not null")
	}
	if !v.Type().IsPrimitiveType() {
		return "", fmt.Errorf("expected a string, number or bool, got %s", v.Type().FriendlyName())
	}

	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

func isCollection(ty cty.Type) bool {
	return ty.IsListType() || ty.IsTupleType() || ty.IsSetType()
}

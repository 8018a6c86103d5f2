package fleet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scalar is a feed value that may arrive as a JSON string, number, or bool.
// Tree endpoints are inconsistent about quoting ids and years.
type Scalar string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*s = ""
		return nil
	case trimmed[0] == '"':
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	case bytes.Equal(trimmed, []byte("true")), bytes.Equal(trimmed, []byte("false")):
		*s = Scalar(trimmed)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return fmt.Errorf("scalar value %s: %w", trimmed, err)
	}
	*s = Scalar(num.String())
	return nil
}

// UnmarshalYAML accepts any scalar node.
func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected scalar value", node.Line)
	}
	if node.Tag == "!!null" {
		*s = ""
		return nil
	}
	*s = Scalar(node.Value)
	return nil
}

func (s Scalar) String() string {
	return strings.TrimSpace(string(s))
}

// VehicleNode is one node of the hierarchical vehicle feed. A node with a
// children key is a group; otherwise a node with a vehicle id is a leaf.
type VehicleNode struct {
	Name      Scalar        `json:"name" yaml:"name"`
	VIN       Scalar        `json:"vin" yaml:"vin"`
	Model     Scalar        `json:"model" yaml:"model"`
	Year      Scalar        `json:"year" yaml:"year"`
	VehicleID Scalar        `json:"vehicleId" yaml:"vehicleId"`
	VehID     Scalar        `json:"vehid" yaml:"vehid"` // legacy tree endpoint key
	Children  []VehicleNode `json:"children" yaml:"children"`
}

// IsGroup reports whether the node carries a children list, even an empty one.
func (n VehicleNode) IsGroup() bool {
	return n.Children != nil
}

// IsLeaf reports whether the node is a vehicle.
func (n VehicleNode) IsLeaf() bool {
	return !n.IsGroup() && n.ID() != ""
}

// ID returns the vehicle id, falling back to the legacy vehid key.
func (n VehicleNode) ID() string {
	if id := n.VehicleID.String(); id != "" {
		return id
	}
	return n.VehID.String()
}

func (n VehicleNode) label() string {
	if name := n.Name.String(); name != "" {
		return name
	}
	return "?"
}

// Group wraps nodes in an unnamed root group.
func Group(nodes ...VehicleNode) VehicleNode {
	if nodes == nil {
		nodes = []VehicleNode{}
	}
	return VehicleNode{Children: nodes}
}

// FlatVehicle is the selectable projection of a leaf node.
type FlatVehicle struct {
	Name      string `json:"name"`
	VIN       string `json:"vin"`
	Model     string `json:"model"`
	Year      string `json:"year"`
	VehicleID string `json:"vehicleId"`
}

const unknownName = "Unknown"

func project(n VehicleNode) FlatVehicle {
	name := n.Name.String()
	if name == "" {
		name = unknownName
	}
	return FlatVehicle{
		Name:      name,
		VIN:       n.VIN.String(),
		Model:     n.Model.String(),
		Year:      n.Year.String(),
		VehicleID: n.ID(),
	}
}

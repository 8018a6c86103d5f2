package fleet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(id, name string) VehicleNode {
	return VehicleNode{VehicleID: Scalar(id), Name: Scalar(name), VIN: Scalar("VIN" + id)}
}

func ids(vehicles []FlatVehicle) []string {
	out := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, v.VehicleID)
	}
	return out
}

func TestFlatten_PreOrderLeavesOnly(t *testing.T) {
	root := Group(
		leaf("1", "Van 1"),
		VehicleNode{Name: "North", Children: []VehicleNode{
			leaf("2", "Truck 2"),
			VehicleNode{Name: "Depot A", Children: []VehicleNode{
				leaf("3", "Truck 3"),
			}},
			leaf("4", "Truck 4"),
		}},
		VehicleNode{Name: "Empty", Children: []VehicleNode{}},
		leaf("5", "Car 5"),
	)

	got, err := Flatten(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(got))
	for _, v := range got {
		assert.NotEqual(t, "North", v.Name)
		assert.NotEqual(t, "Depot A", v.Name)
	}
}

func TestFlatten_IdempotentOnFlatGroup(t *testing.T) {
	root := Group(leaf("a", "A"), leaf("b", "B"), leaf("c", "C"))

	first, err := Flatten(root)
	require.NoError(t, err)

	nodes := make([]VehicleNode, 0, len(first))
	for _, v := range first {
		nodes = append(nodes, VehicleNode{
			Name: Scalar(v.Name), VIN: Scalar(v.VIN), Model: Scalar(v.Model),
			Year: Scalar(v.Year), VehicleID: Scalar(v.VehicleID),
		})
	}
	second, err := Flatten(Group(nodes...))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFlatten_DefaultsMissingFields(t *testing.T) {
	got, err := Flatten(Group(VehicleNode{VehicleID: "7"}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, FlatVehicle{Name: "Unknown", VehicleID: "7"}, got[0])
}

func TestFlatten_SkipsNodesWithoutIDAndDuplicates(t *testing.T) {
	root := Group(
		VehicleNode{Name: "orphan"},
		leaf("1", "first"),
		VehicleNode{Name: "g", Children: []VehicleNode{leaf("1", "again"), leaf("2", "second")}},
	)
	got, err := Flatten(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(got))
	assert.Equal(t, "first", got[0].Name)
}

func TestFlatten_LegacyVehIDAlias(t *testing.T) {
	got, err := Flatten(Group(VehicleNode{Name: "old", VehID: "99"}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "99", got[0].VehicleID)
}

func TestFlatten_GroupWinsOverVehicleID(t *testing.T) {
	node := VehicleNode{Name: "both", VehicleID: "1", Children: []VehicleNode{leaf("2", "inner")}}
	got, err := Flatten(Group(node))
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got))
}

func TestFlatten_LeafRoot(t *testing.T) {
	got, err := Flatten(leaf("1", "solo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))
}

func TestFlatten_EmptyRootReturnsEmptySlice(t *testing.T) {
	got, err := Flatten(Group())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFlatten_MaxDepthGuard(t *testing.T) {
	deep := leaf("x", "deep")
	for i := 0; i < 5; i++ {
		deep = VehicleNode{Name: "g", Children: []VehicleNode{deep}}
	}
	root := Group(deep)

	_, err := Flatten(root, WithMaxDepth(3))
	var structural *StructuralError
	require.True(t, errors.As(err, &structural), "want StructuralError, got %v", err)
	assert.Equal(t, 3, structural.Limit)
	assert.Contains(t, err.Error(), "g / g")

	got, err := Flatten(root, WithMaxDepth(6))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(got))
}

func TestFlatten_IgnoresNonPositiveMaxDepth(t *testing.T) {
	got, err := Flatten(Group(VehicleNode{Name: "g", Children: []VehicleNode{leaf("1", "a")}}), WithMaxDepth(0))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// Package fleet loads the hierarchical vehicle feed and flattens it into the
// selectable vehicle list.
//
// # Feed shape
//
// Every node carries name, vin, model and year. A node with a children key is a
// group; a node with a vehicleId (or the legacy vehid) is a vehicle. Feeds may
// be a single root object or a top-level array, in JSON or YAML:
//
//	[
//	  {"name": "North", "children": [
//	    {"name": "Truck 1", "vin": "1FTFW1E50PFA00001", "model": "F-150", "year": 2023, "vehicleId": 101}
//	  ]}
//	]
//
// # Flattening
//
// Flatten performs a pre-order walk and emits one FlatVehicle per leaf, in
// source order. Group nesting deeper than the configured limit fails with a
// StructuralError instead of recursing without bound.
//
// # Sources
//
// FileSource reads from disk, HTTPSource from a tree endpoint. Watch reports
// writes to a file source so the list can be reloaded without polling.
package fleet

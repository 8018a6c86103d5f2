// Package view renders the Overview, Raw Decode and Settings panels from the
// current selection and decode state. Rendering is pure: the same State
// always yields the same Panels.
package view

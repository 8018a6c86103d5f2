// Package selection owns the active vehicle and its decode lifecycle.
//
// A Controller is driven by the host shell: Select on every list selection,
// StartDecode/Execute/FinishDecode around each decode, and the key methods
// from the Settings panel. Every decode request is tagged with the selection
// generation and vehicle id that issued it; a response that no longer matches
// the active selection is discarded rather than rendered.
//
// The host is reached only through the injected NavigationHost and ViewHost.
package selection

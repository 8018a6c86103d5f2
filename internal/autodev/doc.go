// Package autodev is a small HTTP client for the auto.dev VIN decode API.
//
// The client validates its inputs before touching the network, performs a
// single request per call and classifies every failure as a ValidationError,
// ParseError or NetworkError so callers can present them uniformly.
package autodev

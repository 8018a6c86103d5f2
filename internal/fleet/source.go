package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source delivers the hierarchical vehicle feed.
type Source interface {
	Load(ctx context.Context) (VehicleNode, error)
	String() string
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*HTTPSource)(nil)
)

// NewSource picks an HTTP source for http(s) locations and a file source otherwise.
func NewSource(location string) (Source, error) {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return nil, errors.New("no vehicle feed configured")
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return NewHTTPSource(trimmed)
	}
	return &FileSource{Path: trimmed}, nil
}

// FileSource reads a JSON or YAML feed from disk. The format follows the
// file extension; anything other than .yaml/.yml is parsed as JSON.
type FileSource struct {
	Path string
}

func (s *FileSource) Load(ctx context.Context) (VehicleNode, error) {
	if err := ctx.Err(); err != nil {
		return VehicleNode{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return VehicleNode{}, fmt.Errorf("read feed: %w", err)
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

func (s *FileSource) String() string {
	return s.Path
}

const (
	defaultUserAgent = "vininsight/0.1"
	maxFeedBytes     = 32 << 20
)

// HTTPSource fetches the feed from a tree endpoint.
type HTTPSource struct {
	url       *url.URL
	http      *http.Client
	userAgent string
}

// NewHTTPSource builds an HTTPSource. The vehs and state query parameters the
// tree endpoint expects are added unless already present.
func NewHTTPSource(rawURL string) (*HTTPSource, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse feed url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("feed url %q must be absolute", rawURL)
	}
	values := u.Query()
	if values.Get("vehs") == "" {
		values.Set("vehs", "1")
	}
	if values.Get("state") == "" {
		values.Set("state", "1")
	}
	u.RawQuery = values.Encode()
	return &HTTPSource{
		url:       u,
		http:      &http.Client{Timeout: 15 * time.Second},
		userAgent: defaultUserAgent,
	}, nil
}

func (s *HTTPSource) Load(ctx context.Context) (VehicleNode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return VehicleNode{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return VehicleNode{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return VehicleNode{}, fmt.Errorf("feed %s returned status %d", s.url.Redacted(), resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return VehicleNode{}, fmt.Errorf("read feed: %w", err)
	}
	return parseJSON(data)
}

func (s *HTTPSource) String() string {
	return s.url.Redacted()
}

// parseJSON accepts either a single node or an array of top-level nodes.
func parseJSON(data []byte) (VehicleNode, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Group(), nil
	}
	if trimmed[0] == '[' {
		var nodes []VehicleNode
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return VehicleNode{}, fmt.Errorf("decode feed: %w", err)
		}
		return Group(nodes...), nil
	}
	var root VehicleNode
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return VehicleNode{}, fmt.Errorf("decode feed: %w", err)
	}
	return root, nil
}

func parseYAML(data []byte) (VehicleNode, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return VehicleNode{}, fmt.Errorf("decode feed: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Group(), nil
	}
	top := doc.Content[0]
	if top.Kind == yaml.SequenceNode {
		var nodes []VehicleNode
		if err := top.Decode(&nodes); err != nil {
			return VehicleNode{}, fmt.Errorf("decode feed: %w", err)
		}
		return Group(nodes...), nil
	}
	var root VehicleNode
	if err := top.Decode(&root); err != nil {
		return VehicleNode{}, fmt.Errorf("decode feed: %w", err)
	}
	return root, nil
}

// Loader pairs a Source with flattening options.
type Loader struct {
	Source   Source
	MaxDepth int
}

// Load fetches the feed and flattens it.
func (l Loader) Load(ctx context.Context) ([]FlatVehicle, error) {
	if l.Source == nil {
		return nil, errors.New("loader has no source")
	}
	root, err := l.Source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Flatten(root, WithMaxDepth(l.MaxDepth))
}

package featureflag

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// Source loads the current flag document.
type Source interface {
	Load(ctx context.Context) (*Document, error)
	String() string
}

// FileSource reads a YAML or JSON document from disk on every Load.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Load(_ context.Context) (*Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read flag file: %w", err)
	}
	return ParseDocument(data)
}

func (s *FileSource) String() string { return "file:" + s.Path }

// HTTPSource fetches the document from a flag relay, authenticating with the
// SDK key.
type HTTPSource struct {
	client *resty.Client
	url    string
}

func NewHTTPSource(url, sdkKey string, timeout time.Duration) *HTTPSource {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Authorization", sdkKey).
		SetHeader("Accept", "application/json, application/yaml")
	return &HTTPSource{client: client, url: url}
}

func (s *HTTPSource) Load(ctx context.Context) (*Document, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch flag document: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch flag document: unexpected status %d", resp.StatusCode())
	}
	return ParseDocument(resp.Body())
}

func (s *HTTPSource) String() string { return "http:" + s.url }

// StaticSource always returns the same document, or Err when set.
type StaticSource struct {
	Doc *Document
	Err error
}

func (s *StaticSource) Load(_ context.Context) (*Document, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Doc == nil {
		return nil, fmt.Errorf("static source has no document")
	}
	return s.Doc, nil
}

func (s *StaticSource) String() string { return "static" }

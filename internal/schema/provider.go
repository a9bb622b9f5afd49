package schema

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
)

// Provider supplies the active field schema.
type Provider interface {
	Fields(ctx context.Context) ([]Field, error)
}

// StaticProvider serves a fixed field list.
type StaticProvider struct {
	fields []Field
}

// NewStaticProvider returns a provider over fields. A nil list selects
// CatalogFields.
func NewStaticProvider(fields []Field) *StaticProvider {
	if fields == nil {
		fields = CatalogFields
	}
	return &StaticProvider{fields: fields}
}

// Fields returns a copy of the configured schema.
func (p *StaticProvider) Fields(ctx context.Context) ([]Field, error) {
	if err := Validate(p.fields); err != nil {
		return nil, err
	}
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out, nil
}

// fileDocument is the on-disk layout of a schema file.
type fileDocument struct {
	Fields []Field `yaml:"fields"`
}

// FileProvider reads the schema from a YAML file. The file is parsed once
// and cached; Reload forces a re-read.
type FileProvider struct {
	path string

	mu     sync.Mutex
	fields []Field
}

// NewFileProvider creates a provider for the YAML schema at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Fields returns the schema, loading it on first use.
func (p *FileProvider) Fields(ctx context.Context) ([]Field, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fields == nil {
		if err := p.load(); err != nil {
			return nil, err
		}
	}
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out, nil
}

// Reload discards the cached schema and reads the file again.
func (p *FileProvider) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load()
}

func (p *FileProvider) load() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}
	fields, err := Parse(data)
	if err != nil {
		return fmt.Errorf("schema file %s: %w", p.path, err)
	}
	p.fields = fields
	return nil
}

// Parse decodes and validates a YAML schema document.
func Parse(data []byte) ([]Field, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema yaml: %w", err)
	}
	if err := Validate(doc.Fields); err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

// Marshal renders fields as a YAML schema document.
func Marshal(fields []Field) ([]byte, error) {
	return yaml.Marshal(fileDocument{Fields: fields})
}

package toolruntime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// schemaCache compiles each tool's JSON Schema once and reuses it,
// since compilation is the expensive part and a tool's schema is
// immutable for the life of the registry.
type schemaCache struct {
	mu        sync.Mutex
	compiled  map[string]*jsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{compiled: make(map[string]*jsonschema.Schema)}
}

func (c *schemaCache) compile(cacheKey string, schema json.RawMessage) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.compiled[cacheKey]; ok {
		return s, nil
	}

	compiler := jsonschema.NewCompiler()
	resourceURL := "mem://" + cacheKey
	if err := compiler.AddResource(resourceURL, bytesReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	c.compiled[cacheKey] = s
	return s, nil
}

// validate compiles schema (if not already cached under cacheKey) and
// validates raw (a JSON document) against it.
func (c *schemaCache) validate(cacheKey string, schema json.RawMessage, raw json.RawMessage) error {
	if len(schema) == 0 || len(raw) == 0 {
		return nil
	}
	s, err := c.compile(cacheKey, schema)
	if err != nil {
		return err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return s.Validate(decoded)
}

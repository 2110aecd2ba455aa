// Package msgcat holds every user-visible line of the terminal client as a
// text/template keyed by dotted path (e.g. "fatal.desync").
package msgcat

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultMessages []byte

// Catalog is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	tpls  map[string]*template.Template
	files map[string]string // key -> file that last set it
}

// New loads the embedded messages, then every *.yaml / *.yml in overrideDir.
// Overrides may only redefine known keys; a key set twice by overrides is an error.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{tpls: make(map[string]*template.Template), files: make(map[string]string)}
	if err := c.load("embedded", defaultMessages, false); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) == "" {
		return c, nil
	}
	names, err := yamlFiles(overrideDir)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(overrideDir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.load(name, raw, true); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read override dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *Catalog) load(source string, raw []byte, override bool) error {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	flat := make(map[string]string)
	if len(root.Content) > 0 {
		if err := flatten(root.Content[0], "", flat); err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, text := range flat {
		if override {
			prev, known := c.files[key]
			if !known {
				return fmt.Errorf("%s: unknown key %q", source, key)
			}
			if prev != "embedded" {
				return fmt.Errorf("duplicate override key %q in %s and %s", key, prev, source)
			}
		}
		tpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return fmt.Errorf("%s: key %q: %w", source, key, err)
		}
		c.tpls[key] = tpl
		c.files[key] = source
	}
	return nil
}

// flatten walks a mapping node; only string scalars may be leaves.
func flatten(n *yaml.Node, prefix string, out map[string]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := flatten(n.Content[i+1], key, out); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("scalar without key")
		}
		if n.Tag != "!!str" {
			return fmt.Errorf("%s: want string, got %s", prefix, n.Tag)
		}
		out[prefix] = n.Value
		return nil
	}
	return fmt.Errorf("%s: unsupported yaml node", prefix)
}

// Render executes the template for key. Unknown keys and missing data are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	c.mu.RLock()
	tpl, ok := c.tpls[strings.TrimSpace(key)]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text is Render falling back to the key itself.
func (c *Catalog) Text(key string, data any) string {
	if c == nil {
		return key
	}
	out, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return out
}

func (c *Catalog) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tpls[strings.TrimSpace(key)]
	return ok
}

// Package catalog loads the table → remote object mapping.
//
// Two file formats are accepted. A JSON object maps table names to object
// names (or to an object with a policy) and keeps the key order of the file:
//
//	{"cavi": "elf_tbl_cavi", "sostegni_aerei": {"object": "elf_tbl_sost_aerei"}}
//
// A TOML file lists tables in order:
//
//	[[table]]
//	name   = "cavi"
//	object = "elf_tbl_cavi"
//
// Objects without an explicit policy get the built-in one from Policies, if any.
package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/rowship/internal/domain"
)

// Policies are the built-in per-object exceptions.
var Policies = map[string]domain.ObjectPolicy{
	"elf_tbl_sost_aerei": {
		KeyField:       "FK_SOSTEGNO",
		ExcludeOnWrite: []string{"ID_SOST_AEREI"},
	},
}

type entry struct {
	Name           string   `json:"name" toml:"name"`
	Object         string   `json:"object" toml:"object"`
	KeyField       string   `json:"key_field" toml:"key_field"`
	ExcludeOnWrite []string `json:"exclude_on_write" toml:"exclude_on_write"`
}

type tomlFile struct {
	Table []entry `toml:"table"`
}

// Load reads a catalog file. The format follows the extension: .toml for
// TOML, anything else is parsed as JSON.
func Load(path string) ([]domain.TableMapping, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries []entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		entries, err = parseTOML(b)
	default:
		entries, err = parseJSON(b)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return build(entries)
}

func parseTOML(b []byte) ([]entry, error) {
	var f tomlFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return f.Table, nil
}

// parseJSON walks the top-level object token by token so table order is kept.
func parseJSON(b []byte) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object of table mappings")
	}

	var entries []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}

		e := entry{Name: name}
		var object string
		if err := json.Unmarshal(raw, &object); err == nil {
			e.Object = object
		} else if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("table %s: expected a string or an object", name)
		}
		e.Name = name
		entries = append(entries, e)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after catalog object")
	}
	return entries, nil
}

func build(entries []entry) ([]domain.TableMapping, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]domain.TableMapping, 0, len(entries))
	for _, e := range entries {
		if !domain.ValidIdentifier(e.Name) {
			return nil, fmt.Errorf("%w: table %q", domain.ErrInvalidIdentifier, e.Name)
		}
		if e.Object == "" {
			return nil, fmt.Errorf("%w: table %s has no remote object", domain.ErrInvalidConfig, e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("%w: table %s listed twice", domain.ErrInvalidConfig, e.Name)
		}
		seen[e.Name] = struct{}{}

		policy := domain.ObjectPolicy{KeyField: e.KeyField, ExcludeOnWrite: e.ExcludeOnWrite}
		if policy.KeyField == "" && len(policy.ExcludeOnWrite) == 0 {
			policy = Policies[e.Object]
		}
		out = append(out, domain.TableMapping{Table: e.Name, Object: e.Object, Policy: policy})
	}
	return out, nil
}

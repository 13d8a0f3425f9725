package tenant

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type directoryFile struct {
	Tenants []Tenant `yaml:"tenants"`
}

// StaticDirectory хранит разделы, перечисленные при запуске.
type StaticDirectory struct {
	tenants map[string]Tenant
}

// NewStaticDirectory проверяет список разделов и строит справочник.
func NewStaticDirectory(tenants []Tenant) (*StaticDirectory, error) {
	d := &StaticDirectory{tenants: make(map[string]Tenant, len(tenants))}
	for i, t := range tenants {
		t.Key = strings.TrimSpace(t.Key)
		if t.Key == "" {
			return nil, fmt.Errorf("tenant %d: key is required", i)
		}
		if t.PasswordHash == "" {
			return nil, fmt.Errorf("tenant %s: password_hash is required", t.Key)
		}
		if _, ok := d.tenants[t.Key]; ok {
			return nil, fmt.Errorf("tenant %s: duplicate key", t.Key)
		}
		if t.Label == "" {
			t.Label = t.Key
		}
		d.tenants[t.Key] = t
	}
	return d, nil
}

// LoadDirectory читает YAML-файл вида:
//
//	tenants:
//	  - key: downtown
//	    label: Downtown Barbers
//	    password_hash: $2a$10$...
func LoadDirectory(path string) (*StaticDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenants file: %w", err)
	}

	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tenants file: %w", err)
	}
	if len(f.Tenants) == 0 {
		return nil, fmt.Errorf("tenants file %s: no tenants configured", path)
	}

	return NewStaticDirectory(f.Tenants)
}

// Lookup возвращает раздел по ключу.
func (d *StaticDirectory) Lookup(_ context.Context, key string) (Tenant, error) {
	t, ok := d.tenants[key]
	if !ok {
		return Tenant{}, fmt.Errorf("%w: %q", ErrUnknownTenant, key)
	}
	return t, nil
}

package sanctions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML list snapshot.
func LoadFile(path string) (List, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return List{}, fmt.Errorf("read sanctions list: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML list snapshot and checks it is usable.
func Parse(raw []byte) (List, error) {
	var list List
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return List{}, fmt.Errorf("decode sanctions list: %w", err)
	}
	if list.Version == "" {
		return List{}, fmt.Errorf("sanctions list has no version")
	}
	for i, e := range list.Entries {
		if e.ID == "" || e.Name == "" {
			return List{}, fmt.Errorf("sanctions entry %d lacks id or name", i)
		}
		switch e.Kind {
		case KindSanctions, KindPEP:
		case "":
			list.Entries[i].Kind = KindSanctions
		default:
			return List{}, fmt.Errorf("sanctions entry %s has unknown kind %q", e.ID, e.Kind)
		}
	}
	return list, nil
}

// Reload re-reads path and replaces the served snapshot.
func (p *Provider) Reload(path string) error {
	list, err := LoadFile(path)
	if err != nil {
		return err
	}
	p.Replace(list)
	return nil
}

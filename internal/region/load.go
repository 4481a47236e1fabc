package region

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"github.com/rbright/saytap/internal/errs"
)

// Parse decodes a region file: a JSON object keyed by region name. The key
// is authoritative; an entry whose name field disagrees is reported in
// warnings and stored under the key.
func Parse(data []byte) (map[string]Region, []string, error) {
	var raw map[string]Region
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return nil, nil, fmt.Errorf("decode regions: %w", err)
	}
	if raw == nil {
		return nil, nil, fmt.Errorf("decode regions: expected a JSON object")
	}

	var warnings []string
	out := make(map[string]Region, len(raw))
	for key, region := range raw {
		if key == "" {
			return nil, nil, fmt.Errorf("region with empty name")
		}
		if region.Width <= 0 || region.Height <= 0 {
			return nil, nil, fmt.Errorf("region %q: width and height must be > 0 (got %dx%d)", key, region.Width, region.Height)
		}
		if region.Name != "" && region.Name != key {
			warnings = append(warnings, fmt.Sprintf("region %q declares name %q; using %q", key, region.Name, key))
		}
		region.Name = key
		out[key] = region
	}
	return out, warnings, nil
}

// LoadFile reads and parses a region file from fs.
func LoadFile(fs afero.Fs, path string) (map[string]Region, []string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, nil, fmt.Errorf("read regions %q: %w", path, err)
	}
	regions, warnings, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse regions %q: %w", path, err)
	}
	return regions, warnings, nil
}

// Load replaces the registry contents from path. On any failure the registry
// is left untouched and the error is KindConfigLoad.
func (r *Registry) Load(fs afero.Fs, path string) ([]string, error) {
	regions, warnings, err := LoadFile(fs, path)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigLoad, "region.load", "keeping current regions", err)
	}
	r.Replace(regions)
	return warnings, nil
}

// Package region stores the named screen rectangles commands click into.
package region

import (
	"sort"
	"sync"
)

// Region is an axis-aligned screen rectangle in absolute pixels.
type Region struct {
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Center is the click target. Division truncates toward zero.
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Registry maps region names to rectangles. Readers hold the lock only for
// the map read; Lookup hands back a copy.
type Registry struct {
	mu      sync.RWMutex
	regions map[string]Region
}

// NewRegistry builds a registry seeded with regions.
func NewRegistry(seed ...Region) *Registry {
	regions := make(map[string]Region, len(seed))
	for _, r := range seed {
		regions[r.Name] = r
	}
	return &Registry{regions: regions}
}

func (r *Registry) Lookup(name string) (Region, bool) {
	r.mu.RLock()
	region, ok := r.regions[name]
	r.mu.RUnlock()
	return region, ok
}

// Replace swaps in an entirely new map. Previous entries are discarded.
func (r *Registry) Replace(regions map[string]Region) {
	next := make(map[string]Region, len(regions))
	for name, region := range regions {
		next[name] = region
	}
	r.mu.Lock()
	r.regions = next
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regions)
}

// Names returns region names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.regions))
	for name := range r.regions {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// All returns every region sorted by name.
func (r *Registry) All() []Region {
	r.mu.RLock()
	out := make([]Region, 0, len(r.regions))
	for _, region := range r.regions {
		out = append(out, region)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package upnp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
)

// DeviceCache remembers the description URL of discovered devices, keyed by
// device type, so later runs can skip SSDP.
type DeviceCache struct {
	c    *cache.Cache
	path string
}

// OpenDeviceCache loads path if it exists. An empty path gives an in-memory
// cache that Save ignores.
func OpenDeviceCache(path string, ttl time.Duration) (*DeviceCache, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	dc := &DeviceCache{c: cache.New(ttl, 0), path: path}
	if path == "" {
		return dc, nil
	}
	if err := dc.c.LoadFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load device cache %s: %w", path, err)
	}
	return dc, nil
}

func (dc *DeviceCache) Lookup(deviceType string) (string, bool) {
	v, ok := dc.c.Get(deviceType)
	if !ok {
		return "", false
	}
	loc, ok := v.(string)
	return loc, ok && loc != ""
}

func (dc *DeviceCache) Remember(deviceType, location string) {
	if location == "" {
		return
	}
	dc.c.Set(deviceType, location, cache.DefaultExpiration)
}

func (dc *DeviceCache) Forget(deviceType string) {
	dc.c.Delete(deviceType)
}

// Save writes unexpired entries back to disk.
func (dc *DeviceCache) Save() error {
	if dc.path == "" {
		return nil
	}
	if dir := filepath.Dir(dc.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := dc.c.SaveFile(dc.path); err != nil {
		return fmt.Errorf("save device cache %s: %w", dc.path, err)
	}
	return nil
}

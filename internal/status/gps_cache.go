package status

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// GPSCache keeps the last known radio coordinates in memory and in a
// two-line file (latitude, longitude) so that they survive restarts
type GPSCache struct {
	path string

	mu     sync.Mutex
	lat    float64
	long   float64
	loaded bool
}

// NewGPSCache creates a cache backed by path. The file is read lazily.
func NewGPSCache(path string) *GPSCache {
	return &GPSCache{path: path}
}

// Get returns the cached coordinates, 0/0 when nothing was ever stored
func (c *GPSCache) Get() (lat, long float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	return c.lat, c.long
}

// Set stores new coordinates. The file is only rewritten when they change.
func (c *GPSCache) Set(lat, long float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()

	if c.lat == lat && c.long == long {
		return nil
	}
	if err := c.writeLocked(lat, long); err != nil {
		return err
	}
	c.lat, c.long = lat, long

	log.Debug().
		Float64("latitude", lat).
		Float64("longitude", long).
		Msg("GPS cache updated")
	return nil
}

func (c *GPSCache) loadLocked() {
	if c.loaded {
		return
	}
	c.loaded = true

	lat, long, err := readCoords(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", c.path).Msg("Ignoring unreadable GPS cache")
		}
		return
	}
	c.lat, c.long = lat, long
}

func readCoords(path string) (float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(lines) < 2 {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return 0, 0, fmt.Errorf("read gps cache: %w", err)
	}
	if len(lines) != 2 {
		return 0, 0, fmt.Errorf("gps cache has %d lines", len(lines))
	}

	lat, err := strconv.ParseFloat(lines[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse latitude: %w", err)
	}
	long, err := strconv.ParseFloat(lines[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse longitude: %w", err)
	}
	return lat, long, nil
}

// writeLocked replaces the file through a synced temp file in the same
// directory, so a crash leaves either the old pair or the new one
func (c *GPSCache) writeLocked(lat, long float64) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create gps cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create gps cache temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	data := strconv.FormatFloat(lat, 'f', -1, 64) + "\n" + strconv.FormatFloat(long, 'f', -1, 64) + "\n"
	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write gps cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync gps cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close gps cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace gps cache: %w", err)
	}
	return nil
}

// SPDX-License-Identifier: MIT
package preset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"visualizer/internal/color"
	applog "visualizer/internal/log"
	"visualizer/internal/settings"

	"gopkg.in/yaml.v3"
)

// Store persists presets by index.
type Store interface {
	Save(p Preset) error
	Load(id uint8) (Preset, error)
	List() ([]Preset, error)
	Delete(id uint8) error
}

// document is the on-disk form of a preset.
type document struct {
	Index          uint8     `yaml:"index"`
	Name           string    `yaml:"name"`
	SmoothingDepth int       `yaml:"smoothing_depth"`
	Gain           float64   `yaml:"gain"`
	FrameRate      int       `yaml:"frame_rate"`
	Primary        string    `yaml:"primary"`
	Secondary      string    `yaml:"secondary"`
	Accent         string    `yaml:"accent"`
	TransformSize  int       `yaml:"transform_size"`
	Bands          []float64 `yaml:"bands,flow"`
	Gains          []float64 `yaml:"gains,flow"`
	Skew           float64   `yaml:"skew"`
	Brightness     float64   `yaml:"brightness"`
	DisplayMode    string    `yaml:"display_mode"`
	AnimationMode  string    `yaml:"animation_mode"`
}

// toDocument keeps every name byte up to the zero padding, so a name with an
// embedded NUL survives a save and load unchanged.
func toDocument(p Preset) document {
	q := p.Params
	return document{
		Index:          p.Index,
		Name:           strings.TrimRight(string(p.Name[:]), "\x00"),
		SmoothingDepth: q.SmoothingDepth,
		Gain:           q.Gain,
		FrameRate:      q.FrameRate,
		Primary:        q.Palette.Primary.Hex(),
		Secondary:      q.Palette.Secondary.Hex(),
		Accent:         q.Palette.Accent.Hex(),
		TransformSize:  q.TransformSize,
		Bands:          q.Bands,
		Gains:          q.Gains,
		Skew:           q.Skew,
		Brightness:     q.Brightness,
		DisplayMode:    q.DisplayMode.String(),
		AnimationMode:  q.AnimationMode.String(),
	}
}

func (d document) preset() (Preset, error) {
	q := settings.Params{
		Gain:           d.Gain,
		Gains:          d.Gains,
		Bands:          d.Bands,
		SmoothingDepth: d.SmoothingDepth,
		TransformSize:  d.TransformSize,
		Skew:           d.Skew,
		Brightness:     d.Brightness,
		FrameRate:      d.FrameRate,
	}
	var err error
	if q.Palette.Primary, err = color.Parse(d.Primary); err != nil {
		return Preset{}, err
	}
	if q.Palette.Secondary, err = color.Parse(d.Secondary); err != nil {
		return Preset{}, err
	}
	if q.Palette.Accent, err = color.Parse(d.Accent); err != nil {
		return Preset{}, err
	}
	if q.DisplayMode, err = settings.ParseDisplayMode(d.DisplayMode); err != nil {
		return Preset{}, err
	}
	if q.AnimationMode, err = settings.ParseAnimationMode(d.AnimationMode); err != nil {
		return Preset{}, err
	}
	return New(d.Index, d.Name, q), nil
}

// FileStore keeps one YAML file per preset in a directory.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preset directory '%s': %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id uint8) string {
	return filepath.Join(s.dir, fmt.Sprintf("preset_%d.yaml", id))
}

// Save writes p, replacing any preset with the same index.
func (s *FileStore) Save(p Preset) error {
	data, err := yaml.Marshal(toDocument(p))
	if err != nil {
		return fmt.Errorf("failed to encode preset %d: %w", p.Index, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".preset-*")
	if err != nil {
		return fmt.Errorf("failed to save preset %d: %w", p.Index, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save preset %d: %w", p.Index, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save preset %d: %w", p.Index, err)
	}
	if err := os.Rename(tmp.Name(), s.path(p.Index)); err != nil {
		return fmt.Errorf("failed to save preset %d: %w", p.Index, err)
	}
	applog.Infof("PresetStore: Saved preset %d (%q)", p.Index, p.Title())
	return nil
}

// Load reads the preset with the given index.
func (s *FileStore) Load(id uint8) (Preset, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Preset{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("failed to read preset %d: %w", id, err)
	}
	var d document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Preset{}, fmt.Errorf("failed to parse preset %d: %w", id, err)
	}
	p, err := d.preset()
	if err != nil {
		return Preset{}, fmt.Errorf("failed to parse preset %d: %w", id, err)
	}
	p.Index = id // the file name is authoritative
	return p, nil
}

// List returns every readable preset sorted by index.
func (s *FileStore) List() ([]Preset, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	var out []Preset
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "preset_") || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, "preset_"), ".yaml"), 10, 8)
		if err != nil {
			continue
		}
		p, err := s.Load(uint8(id))
		if err != nil {
			applog.Warnf("PresetStore: Skipping %s: %v", name, err)
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Preset) int { return int(a.Index) - int(b.Index) })
	return out, nil
}

// Delete removes the preset with the given index.
func (s *FileStore) Delete(id uint8) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete preset %d: %w", id, err)
	}
	applog.Infof("PresetStore: Deleted preset %d", id)
	return nil
}

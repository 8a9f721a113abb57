// SPDX-License-Identifier: MIT
/*
Package control exposes the shared settings as a table of small binary
characteristics, the way a BLE GATT service would.

Every characteristic has a UUID derived from a 16-bit offset and carries a
fixed-width little-endian value. Writes must have exactly the expected length
and valid contents; a rejected write leaves the settings untouched. Preset
characteristics go through a preset.Store.

The table is transport independent. Handler serves it over a WebSocket.
*/
package control

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"visualizer/internal/color"
	applog "visualizer/internal/log"
	"visualizer/internal/preset"
	"visualizer/internal/settings"
)

// Offset identifies a characteristic within the service.
type Offset uint16

const (
	SmoothingDepth Offset = 0x01 + iota
	Gain
	FrameRate
	PrimaryColor
	SecondaryColor
	AccentColor
	TransformSize
	BandFrequencies
	BandGains
	Skew
	Brightness
	DisplayMode
	AnimationMode
	LedCount
	FramePart1
	FramePart2
	PresetList
	PresetSelect
	PresetRead
	PresetSave
	PresetActivate
	PresetDelete
	ActivePreset
	SettingsAsPreset
)

const uuidFormat = "3E0E%04X-7C7A-47B0-9FD5-1FC3044C3E63"

// UUID returns the characteristic UUID for an offset.
func (o Offset) UUID() string {
	return fmt.Sprintf(uuidFormat, uint16(o))
}

const (
	// FramePartSize is the largest slice of the last frame one read returns.
	FramePartSize = 500
	// MaxListedPresets caps the preset catalog.
	MaxListedPresets = 24
	// CurrentPresetName names the preset built from the live settings.
	CurrentPresetName = "Current"
)

var (
	ErrInvalidLength         = errors.New("control: invalid value length")
	ErrInvalidValue          = errors.New("control: invalid value")
	ErrReadOnly              = errors.New("control: characteristic is read-only")
	ErrWriteOnly             = errors.New("control: characteristic is write-only")
	ErrUnknownCharacteristic = errors.New("control: unknown characteristic")
)

// Characteristic describes one entry of the table.
type Characteristic struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Readable bool   `json:"read"`
	Writable bool   `json:"write"`
}

type entry struct {
	Characteristic
	read  func() ([]byte, error)
	write func([]byte) error
}

// Service is the characteristic table bound to one settings handle.
type Service struct {
	settings *settings.Settings
	store    preset.Store
	entries  []*entry
	byUUID   map[string]*entry
}

// NewService builds the table.
func NewService(s *settings.Settings, store preset.Store) (*Service, error) {
	if s == nil || store == nil {
		return nil, fmt.Errorf("control: settings and preset store are required")
	}
	svc := &Service{settings: s, store: store, byUUID: make(map[string]*entry)}
	svc.register()
	return svc, nil
}

// Characteristics lists the table in offset order.
func (s *Service) Characteristics() []Characteristic {
	out := make([]Characteristic, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Characteristic
	}
	return out
}

// Read returns the current value of a characteristic.
func (s *Service) Read(uuid string) ([]byte, error) {
	e, err := s.lookup(uuid)
	if err != nil {
		return nil, err
	}
	if e.read == nil {
		return nil, fmt.Errorf("%w: %s", ErrWriteOnly, e.Name)
	}
	return e.read()
}

// Write validates value and applies it. On error nothing changes.
func (s *Service) Write(uuid string, value []byte) error {
	e, err := s.lookup(uuid)
	if err != nil {
		return err
	}
	if e.write == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, e.Name)
	}
	if err := e.write(value); err != nil {
		applog.Warnf("Control: Rejected write to %s: %v", e.Name, err)
		return err
	}
	applog.Debugf("Control: Wrote %s (%d bytes)", e.Name, len(value))
	return nil
}

func (s *Service) lookup(uuid string) (*entry, error) {
	e, ok := s.byUUID[strings.ToUpper(uuid)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharacteristic, uuid)
	}
	return e, nil
}

func (s *Service) add(o Offset, name string, read func() ([]byte, error), write func([]byte) error) {
	e := &entry{
		Characteristic: Characteristic{UUID: o.UUID(), Name: name, Readable: read != nil, Writable: write != nil},
		read:           read,
		write:          write,
	}
	s.entries = append(s.entries, e)
	s.byUUID[e.UUID] = e
}

func (s *Service) register() {
	st := s.settings
	bands := st.BandCount()

	s.add(SmoothingDepth, "smoothing depth",
		func() ([]byte, error) { return encodeU16(st.Snapshot().SmoothingDepth), nil },
		func(b []byte) error {
			v, err := decodeU16(b)
			if err != nil {
				return err
			}
			return rejected(st.SetSmoothingDepth(int(v)))
		})
	s.add(Gain, "gain",
		func() ([]byte, error) { return encodeF32(st.Snapshot().Gain), nil },
		func(b []byte) error {
			v, err := decodeF32(b)
			if err != nil {
				return err
			}
			return rejected(st.SetGain(v))
		})
	s.add(FrameRate, "frame rate",
		func() ([]byte, error) { return encodeU16(st.Snapshot().FrameRate), nil },
		func(b []byte) error {
			v, err := decodeU16(b)
			if err != nil {
				return err
			}
			return rejected(st.SetFrameRate(int(v)))
		})
	for _, c := range []struct {
		o    Offset
		name string
		slot settings.PaletteSlot
	}{
		{PrimaryColor, "primary color", settings.Primary},
		{SecondaryColor, "secondary color", settings.Secondary},
		{AccentColor, "accent color", settings.Accent},
	} {
		s.add(c.o, c.name,
			func() ([]byte, error) {
				rgb := st.Snapshot().Palette.Get(c.slot).Bytes()
				return rgb[:], nil
			},
			func(b []byte) error {
				if err := checkLength(b, 3); err != nil {
					return err
				}
				return rejected(st.SetPaletteColor(c.slot, color.New(b[0], b[1], b[2])))
			})
	}
	s.add(TransformSize, "transform size",
		func() ([]byte, error) { return encodeU16(st.Snapshot().TransformSize), nil },
		func(b []byte) error {
			v, err := decodeU16(b)
			if err != nil {
				return err
			}
			return rejected(st.SetTransformSize(int(v)))
		})
	s.add(BandFrequencies, "band frequencies",
		func() ([]byte, error) { return encodeFloats(st.Snapshot().Bands), nil },
		func(b []byte) error {
			v, err := decodeFloats(b, bands)
			if err != nil {
				return err
			}
			return rejected(st.SetBands(v))
		})
	s.add(BandGains, "band gains",
		func() ([]byte, error) { return encodeFloats(st.Snapshot().Gains), nil },
		func(b []byte) error {
			v, err := decodeFloats(b, bands)
			if err != nil {
				return err
			}
			return rejected(st.SetGains(v))
		})
	s.add(Skew, "skew",
		func() ([]byte, error) { return encodeF32(st.Snapshot().Skew), nil },
		func(b []byte) error {
			v, err := decodeF32(b)
			if err != nil {
				return err
			}
			return rejected(st.SetSkew(v))
		})
	s.add(Brightness, "brightness",
		func() ([]byte, error) { return encodeF32(st.Snapshot().Brightness), nil },
		func(b []byte) error {
			v, err := decodeF32(b)
			if err != nil {
				return err
			}
			return rejected(st.SetBrightness(v))
		})
	s.add(DisplayMode, "display mode",
		func() ([]byte, error) { return []byte{uint8(st.Snapshot().DisplayMode)}, nil },
		func(b []byte) error {
			if err := checkLength(b, 1); err != nil {
				return err
			}
			m, err := settings.DisplayModeFromCode(b[0])
			if err != nil {
				return rejected(err)
			}
			return rejected(st.SetDisplayMode(m))
		})
	s.add(AnimationMode, "animation mode",
		func() ([]byte, error) { return []byte{uint8(st.Snapshot().AnimationMode)}, nil },
		func(b []byte) error {
			if err := checkLength(b, 1); err != nil {
				return err
			}
			m, err := settings.AnimationModeFromCode(b[0])
			if err != nil {
				return rejected(err)
			}
			return rejected(st.SetAnimationMode(m))
		})
	s.add(LedCount, "led count",
		func() ([]byte, error) { return encodeU16(min(st.LedCount(), math.MaxUint16)), nil },
		nil)
	s.add(FramePart1, "last frame 1",
		func() ([]byte, error) {
			f := st.LastFrame()
			return f[:min(len(f), FramePartSize)], nil
		},
		nil)
	s.add(FramePart2, "last frame 2",
		func() ([]byte, error) {
			f := st.LastFrame()
			if len(f) <= FramePartSize {
				return []byte{}, nil
			}
			return f[FramePartSize:], nil
		},
		nil)
	s.add(PresetList, "preset list", s.readPresetList, nil)
	s.add(PresetSelect, "preset select",
		func() ([]byte, error) { return []byte{st.SelectedPreset()}, nil },
		func(b []byte) error {
			if err := checkLength(b, 1); err != nil {
				return err
			}
			st.SetSelectedPreset(b[0])
			return nil
		})
	s.add(PresetRead, "preset read",
		func() ([]byte, error) {
			p, err := s.store.Load(st.SelectedPreset())
			if err != nil {
				return nil, err
			}
			return p.MarshalBinary()
		},
		nil)
	s.add(PresetSave, "preset save", nil, s.writePresetSave)
	s.add(PresetActivate, "preset activate", nil, s.writePresetActivate)
	s.add(PresetDelete, "preset delete", nil,
		func(b []byte) error {
			if err := checkLength(b, 1); err != nil {
				return err
			}
			return s.store.Delete(b[0])
		})
	s.add(ActivePreset, "active preset",
		func() ([]byte, error) { return []byte{st.ActivePreset()}, nil },
		nil)
	s.add(SettingsAsPreset, "settings as preset",
		func() ([]byte, error) {
			return preset.New(0, CurrentPresetName, st.Snapshot()).MarshalBinary()
		},
		nil)
}

func (s *Service) readPresetList() ([]byte, error) {
	list, err := s.store.List()
	if err != nil {
		return nil, err
	}
	list = list[:min(len(list), MaxListedPresets)]
	b := make([]byte, 0, 1+len(list)*(1+preset.NameSize))
	b = append(b, uint8(len(list)))
	for _, p := range list {
		b = append(b, p.Index)
		b = append(b, p.Name[:]...)
	}
	return b, nil
}

func (s *Service) writePresetSave(b []byte) error {
	p, err := preset.Unmarshal(b, s.settings.BandCount())
	if errors.Is(err, preset.ErrInvalidLength) {
		return fmt.Errorf("%w: %w", ErrInvalidLength, err)
	}
	if err != nil {
		return rejected(err)
	}
	if err := p.Params.Validate(); err != nil {
		return rejected(err)
	}
	return s.store.Save(p)
}

func (s *Service) writePresetActivate(b []byte) error {
	if err := checkLength(b, 1); err != nil {
		return err
	}
	p, err := s.store.Load(b[0])
	if err != nil {
		return err
	}
	if err := s.settings.Apply(p.Params); err != nil {
		return rejected(err)
	}
	s.settings.SetActivePreset(p.Index)
	applog.Infof("Control: Activated preset %d (%q)", p.Index, p.Title())
	return nil
}

// rejected tags settings validation failures with ErrInvalidValue.
func rejected(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, settings.ErrInvalidValue) || errors.Is(err, settings.ErrBandCount) {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return err
}

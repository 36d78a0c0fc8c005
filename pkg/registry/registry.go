// Package registry holds the fixed set of annotation classes (bone types)
// a session may assign, along with their display color and name.
package registry

import (
	"errors"
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"
)

// Code is the integer written into the label volume for a class
type Code int32

// Codes of the default bone registry. Background is reserved and is never a
// registry entry.
const (
	Background Code = 0
	Femur      Code = 1
	Tibia      Code = 2
	Fibula     Code = 3
	Patella    Code = 4
	OtherBone1 Code = 5
	OtherBone2 Code = 6
)

// Fallback display attributes for codes the registry does not know
const (
	UnknownName      = "Unknown"
	UnknownColor     = "white"
	UnknownMeshColor = "gray"
)

// ErrInvalidClass is returned when building a registry from bad entries
var ErrInvalidClass = errors.New("invalid class")

// Class is one recognized registry entry
type Class struct {
	Code  Code   `yaml:"code" json:"code"`
	Color string `yaml:"color" json:"color"`
	Name  string `yaml:"name" json:"name"`
}

// Entry is the result of resolving an arbitrary code: either a known Class
// or Unknown carrying the raw code.
type Entry interface {
	RawCode() Code
	DisplayColor() string
	DisplayName() string
	Known() bool
}

func (c Class) RawCode() Code        { return c.Code }
func (c Class) DisplayColor() string { return c.Color }
func (c Class) DisplayName() string  { return c.Name }
func (c Class) Known() bool          { return true }

// Unknown is a code found in a label volume that the registry does not list
type Unknown struct {
	Code Code
}

func (u Unknown) RawCode() Code        { return u.Code }
func (u Unknown) DisplayColor() string { return UnknownColor }
func (u Unknown) DisplayName() string  { return UnknownName }
func (u Unknown) Known() bool          { return false }

// Registry maps codes to classes. It is immutable once built.
type Registry struct {
	classes []Class
	byCode  map[Code]Class
}

// DefaultClasses returns the bone classes used for knee annotation
func DefaultClasses() []Class {
	return []Class{
		{Code: Femur, Color: "red", Name: "Femur"},
		{Code: Tibia, Color: "blue", Name: "Tibia"},
		{Code: Fibula, Color: "green", Name: "Fibula"},
		{Code: Patella, Color: "yellow", Name: "Patella"},
		{Code: OtherBone1, Color: "purple", Name: "Other Bone 1"},
		{Code: OtherBone2, Color: "orange", Name: "Other Bone 2"},
	}
}

// Default returns the registry of DefaultClasses
func Default() *Registry {
	r, err := New(DefaultClasses())
	if err != nil {
		panic(err)
	}
	return r
}

// New builds a registry. Codes must be positive and unique; an empty list
// is rejected.
func New(classes []Class) (*Registry, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("registry needs at least one class: %w", ErrInvalidClass)
	}
	r := &Registry{
		classes: make([]Class, len(classes)),
		byCode:  make(map[Code]Class, len(classes)),
	}
	copy(r.classes, classes)
	for _, c := range r.classes {
		if c.Code <= Background {
			return nil, fmt.Errorf("class %q has code %d, codes start at 1: %w", c.Name, c.Code, ErrInvalidClass)
		}
		if _, dup := r.byCode[c.Code]; dup {
			return nil, fmt.Errorf("duplicate class code %d: %w", c.Code, ErrInvalidClass)
		}
		r.byCode[c.Code] = c
	}
	sort.Slice(r.classes, func(i, j int) bool { return r.classes[i].Code < r.classes[j].Code })
	return r, nil
}

// Classes returns the entries ordered by code
func (r *Registry) Classes() []Class {
	out := make([]Class, len(r.classes))
	copy(out, r.classes)
	return out
}

// Lookup returns the class for code if it is recognized
func (r *Registry) Lookup(code Code) (Class, bool) {
	c, ok := r.byCode[code]
	return c, ok
}

// Recognized reports whether code is a registry entry
func (r *Registry) Recognized(code Code) bool {
	_, ok := r.byCode[code]
	return ok
}

// Resolve returns the class for code, or Unknown when it is not registered
func (r *Registry) Resolve(code Code) Entry {
	if c, ok := r.byCode[code]; ok {
		return c
	}
	return Unknown{Code: code}
}

// Metadata is the structured description written next to a label volume
type Metadata struct {
	BoneColors map[string]string `json:"bone_colors" yaml:"bone_colors"`
	BoneNames  map[string]string `json:"bone_names" yaml:"bone_names"`
}

// Metadata returns code -> color and code -> name maps keyed by the decimal code
func (r *Registry) Metadata() Metadata {
	md := Metadata{
		BoneColors: make(map[string]string, len(r.classes)),
		BoneNames:  make(map[string]string, len(r.classes)),
	}
	for _, c := range r.classes {
		k := strconv.Itoa(int(c.Code))
		md.BoneColors[k] = c.Color
		md.BoneNames[k] = c.Name
	}
	return md
}

// FromMetadata rebuilds a registry from a Metadata document
func FromMetadata(md Metadata) (*Registry, error) {
	classes := make([]Class, 0, len(md.BoneNames))
	for k, name := range md.BoneNames {
		code, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("metadata code %q: %w", k, ErrInvalidClass)
		}
		classes = append(classes, Class{Code: Code(code), Color: md.BoneColors[k], Name: name})
	}
	return New(classes)
}

// Legend returns one "code: name (color)" line per class
func (r *Registry) Legend() []string {
	lines := make([]string, len(r.classes))
	for i, c := range r.classes {
		lines[i] = fmt.Sprintf("%d: %s (%s)", c.Code, c.Name, c.Color)
	}
	return lines
}

var namedColors = map[string]color.RGBA{
	"red":     {R: 255, A: 255},
	"blue":    {B: 255, A: 255},
	"green":   {G: 128, A: 255},
	"yellow":  {R: 255, G: 255, A: 255},
	"purple":  {R: 128, B: 128, A: 255},
	"orange":  {R: 255, G: 165, A: 255},
	"white":   {R: 255, G: 255, B: 255, A: 255},
	"gray":    {R: 128, G: 128, B: 128, A: 255},
	"grey":    {R: 128, G: 128, B: 128, A: 255},
	"black":   {A: 255},
	"cyan":    {G: 255, B: 255, A: 255},
	"magenta": {R: 255, B: 255, A: 255},
}

// RGBA converts a display color name or #rrggbb string to an opaque color.
// Unrecognized names map to white.
func RGBA(name string) color.RGBA {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := namedColors[name]; ok {
		return c
	}
	if len(name) == 7 && name[0] == '#' {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
		}
	}
	return namedColors[UnknownColor]
}

// Hex returns the #rrggbb form of a display color
func Hex(name string) string {
	c := RGBA(name)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

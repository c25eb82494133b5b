package param

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stfufane/miditransposer/pkg/chord"
	"github.com/stfufane/miditransposer/pkg/midi"
)

// Host-visible parameter IDs. IDs are part of the persisted state; append,
// never renumber.
const (
	ParamSemitones uint32 = iota
	ParamTemplate
	ParamScale
	ParamScaleRoot
	ParamOctaves
	ParamBypass
	ParamInputChannel
	ParamArpEnabled
	ParamArpRate
	ParamArpSync
)

// Per-pitch-class mapping parameters occupy a contiguous stripe starting at
// ParamNoteBase: three IDs per pitch class, C first.
const (
	ParamNoteBase   uint32 = 16
	paramNoteStride uint32 = 3

	NoteFieldActive    uint32 = 0
	NoteFieldSemitones uint32 = 1
	NoteFieldTemplate  uint32 = 2
)

// NoteParamID returns the host ID of one per-class mapping parameter.
func NoteParamID(class uint8, field uint32) uint32 {
	return ParamNoteBase + uint32(class)*paramNoteStride + field
}

// NoteParam is the inverse of NoteParamID. ok is false for IDs outside the
// mapping stripe.
func NoteParam(id uint32) (class uint8, field uint32, ok bool) {
	if id < ParamNoteBase || id >= ParamNoteBase+12*paramNoteStride {
		return 0, 0, false
	}
	id -= ParamNoteBase
	return uint8(id / paramNoteStride), id % paramNoteStride, true
}

// BuildRegistry declares the transposer's parameter set with defaults that
// make the plugin a pass-through (identity law).
func BuildRegistry() *Registry {
	reg := NewRegistry()

	templateNames := make([]string, chord.Count())
	for i := range templateNames {
		templateNames[i] = chord.TemplateID(i).String()
	}
	scaleNames := make([]string, len(chord.Scales))
	for i, s := range chord.Scales {
		scaleNames[i] = s.Name
	}
	rootNames := make([]string, 12)
	for i := range rootNames {
		rootNames[i] = midi.PitchClassName(uint8(i))
	}
	rateNames := make([]string, len(Divisions))
	for i, d := range Divisions {
		rateNames[i] = d.Label
	}

	reg.Add(
		New(ParamSemitones, "Semitones").
			Range(MinSemitones, MaxSemitones).
			Default(0).
			Steps(MaxSemitones-MinSemitones).
			Unit("st").
			Formatter(signedFormatter, signedParser).
			Build(),
		Choice(ParamTemplate, "Chord", templateNames).Default(float64(chord.Unison)).Build(),
		Choice(ParamScale, "Scale", scaleNames).Default(0).Build(),
		Choice(ParamScaleRoot, "Scale Root", rootNames).Default(0).Build(),
		New(ParamOctaves, "Octaves").
			Range(MinOctaves, MaxOctaves).
			Default(0).
			Steps(MaxOctaves-MinOctaves).
			Formatter(signedFormatter, signedParser).
			Build(),
		New(ParamBypass, "Bypass").Toggle().Default(0).Build(),
		New(ParamInputChannel, "Input Channel").
			Range(0, 16).
			Default(0).
			Steps(16).
			Formatter(channelFormatter, channelParser).
			Build(),
		New(ParamArpEnabled, "Arp").Toggle().Default(0).Build(),
		Choice(ParamArpRate, "Arp Rate", rateNames).Default(3).Build(),
		New(ParamArpSync, "Arp Sync").Toggle().Default(0).Build(),
	)

	for class := uint8(0); class < 12; class++ {
		name := midi.PitchClassName(class)
		reg.Add(
			New(NoteParamID(class, NoteFieldActive), name+" Map").Toggle().Default(0).Build(),
			New(NoteParamID(class, NoteFieldSemitones), name+" Transpose").
				Range(MinSemitones, MaxSemitones).
				Default(0).
				Steps(MaxSemitones-MinSemitones).
				Unit("st").
				Formatter(signedFormatter, signedParser).
				Build(),
			Choice(NoteParamID(class, NoteFieldTemplate), name+" Chord", templateNames).
				Default(float64(chord.Unison)).
				Build(),
		)
	}
	return reg
}

// FromRegistry reconstructs a Transposition from the current registry values.
// This is the pure mapping used both when the host restores persisted state
// and when the control thread publishes a new snapshot. Custom chord offsets
// are not host parameters; the caller merges them afterwards if the custom
// template is selected.
func FromRegistry(reg *Registry) Transposition {
	t := Transposition{
		Semitones:    int8(reg.Get(ParamSemitones).Plain()),
		Octaves:      int8(reg.Get(ParamOctaves).Plain()),
		Template:     chord.TemplateID(reg.Get(ParamTemplate).Plain()),
		Bypass:       reg.Get(ParamBypass).Plain() >= 0.5,
		InputChannel: uint8(reg.Get(ParamInputChannel).Plain()),
		ArpEnabled:   reg.Get(ParamArpEnabled).Plain() >= 0.5,
		ArpRate:      uint8(reg.Get(ParamArpRate).Plain()),
		ArpSync:      reg.Get(ParamArpSync).Plain() >= 0.5,
	}
	scaleIdx := int(reg.Get(ParamScale).Plain())
	if scaleIdx > 0 && scaleIdx < len(chord.Scales) {
		root := uint8(reg.Get(ParamScaleRoot).Plain())
		t.Scale = chord.Scales[scaleIdx].Mask.Rotate(root)
	}
	for class := uint8(0); class < 12; class++ {
		t.Notes[class] = NoteMap{
			Active:    reg.Get(NoteParamID(class, NoteFieldActive)).Plain() >= 0.5,
			Semitones: int8(reg.Get(NoteParamID(class, NoteFieldSemitones)).Plain()),
			Template:  chord.TemplateID(reg.Get(NoteParamID(class, NoteFieldTemplate)).Plain()),
		}
	}
	return t.Clamped()
}

// ApplyToRegistry writes a Transposition back into the registry, the inverse
// of FromRegistry for every host-visible field. The scale mask is matched
// back to a named scale and root where possible.
func ApplyToRegistry(t Transposition, reg *Registry) {
	reg.Get(ParamSemitones).SetPlain(float64(t.Semitones))
	reg.Get(ParamOctaves).SetPlain(float64(t.Octaves))
	reg.Get(ParamTemplate).SetPlain(float64(t.Template))
	reg.Get(ParamBypass).SetPlain(boolPlain(t.Bypass))
	reg.Get(ParamInputChannel).SetPlain(float64(t.InputChannel))
	reg.Get(ParamArpEnabled).SetPlain(boolPlain(t.ArpEnabled))
	reg.Get(ParamArpRate).SetPlain(float64(t.ArpRate))
	reg.Get(ParamArpSync).SetPlain(boolPlain(t.ArpSync))
	for class := uint8(0); class < 12; class++ {
		m := t.Notes[class]
		reg.Get(NoteParamID(class, NoteFieldActive)).SetPlain(boolPlain(m.Active))
		reg.Get(NoteParamID(class, NoteFieldSemitones)).SetPlain(float64(m.Semitones))
		reg.Get(NoteParamID(class, NoteFieldTemplate)).SetPlain(float64(m.Template))
	}

	scaleIdx, root := 0, uint8(0)
	if t.Scale != 0 {
	search:
		for i, s := range chord.Scales[1:] {
			for r := uint8(0); r < 12; r++ {
				if s.Mask.Rotate(r) == t.Scale {
					scaleIdx, root = i+1, r
					break search
				}
			}
		}
	}
	reg.Get(ParamScale).SetPlain(float64(scaleIdx))
	reg.Get(ParamScaleRoot).SetPlain(float64(root))
}

func boolPlain(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func signedFormatter(plain float64) string {
	return fmt.Sprintf("%+d", int(plain))
}

func signedParser(text string) (float64, error) {
	v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, "+")))
	if err != nil {
		return 0, err
	}
	return float64(v), nil
}

func channelFormatter(plain float64) string {
	if int(plain) == 0 {
		return "All"
	}
	return fmt.Sprintf("%d", int(plain))
}

func channelParser(text string) (float64, error) {
	if strings.EqualFold(strings.TrimSpace(text), "all") {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, err
	}
	return float64(v), nil
}

package chord

// ScaleMask is a 12-bit pitch-class bitmap, bit 0 = C. The zero value means
// "no constraint": the engine skips quantization entirely.
type ScaleMask uint16

const scaleBits = 0x0FFF

// Named masks, all rooted at C. Rotate moves them to another root.
const (
	ScaleOff           ScaleMask = 0
	ScaleChromatic     ScaleMask = 0x0FFF
	ScaleMajor         ScaleMask = 1<<0 | 1<<2 | 1<<4 | 1<<5 | 1<<7 | 1<<9 | 1<<11
	ScaleNaturalMinor  ScaleMask = 1<<0 | 1<<2 | 1<<3 | 1<<5 | 1<<7 | 1<<8 | 1<<10
	ScaleHarmonicMinor ScaleMask = 1<<0 | 1<<2 | 1<<3 | 1<<5 | 1<<7 | 1<<8 | 1<<11
	ScaleMajorPenta    ScaleMask = 1<<0 | 1<<2 | 1<<4 | 1<<7 | 1<<9
	ScaleMinorPenta    ScaleMask = 1<<0 | 1<<3 | 1<<5 | 1<<7 | 1<<10
	ScaleDorian        ScaleMask = 1<<0 | 1<<2 | 1<<3 | 1<<5 | 1<<7 | 1<<9 | 1<<10
	ScaleMixolydian    ScaleMask = 1<<0 | 1<<2 | 1<<4 | 1<<5 | 1<<7 | 1<<9 | 1<<10
	ScaleBlues         ScaleMask = 1<<0 | 1<<3 | 1<<5 | 1<<6 | 1<<7 | 1<<10
	ScaleWholeTone     ScaleMask = 1<<0 | 1<<2 | 1<<4 | 1<<6 | 1<<8 | 1<<10
)

// NamedScale pairs a mask with its display name, for the parameter surface
// and the CLI listing.
type NamedScale struct {
	Name string
	Mask ScaleMask
}

// Scales lists the selectable scales in parameter order. Index 0 disables
// quantization.
var Scales = []NamedScale{
	{"Off", ScaleOff},
	{"Major", ScaleMajor},
	{"Natural Minor", ScaleNaturalMinor},
	{"Harmonic Minor", ScaleHarmonicMinor},
	{"Major Pentatonic", ScaleMajorPenta},
	{"Minor Pentatonic", ScaleMinorPenta},
	{"Dorian", ScaleDorian},
	{"Mixolydian", ScaleMixolydian},
	{"Blues", ScaleBlues},
	{"Whole Tone", ScaleWholeTone},
}

// Set reports whether a pitch class 0..11 is allowed by the mask.
func (m ScaleMask) Set(class uint8) bool {
	return m&(1<<(class%12)) != 0
}

// Rotate transposes the mask so that its degree pattern starts on the given
// root pitch class.
func (m ScaleMask) Rotate(root uint8) ScaleMask {
	root %= 12
	if root == 0 || m == 0 {
		return m
	}
	r := (uint16(m) << root) | (uint16(m) >> (12 - root))
	return ScaleMask(r & scaleBits)
}

// Quantize snaps a pitch up to the nearest pitch class allowed by the mask.
// It never moves down, so a quantized note cannot collide with an
// already-chosen lower one. ok is false when the mask is empty above the
// pitch inside the MIDI range, or when the mask excludes every pitch class.
func Quantize(pitch uint8, mask ScaleMask) (uint8, bool) {
	if mask == 0 {
		return pitch, true
	}
	if mask&scaleBits == 0 {
		return 0, false
	}
	for p := int(pitch); p <= 127; p++ {
		if mask.Set(uint8(p % 12)) {
			return uint8(p), true
		}
	}
	return 0, false
}

package midi

import "fmt"

var pitchClassNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName returns the conventional note name for a MIDI pitch, middle C
// (60) being C4.
func PitchName(pitch uint8) string {
	octave := int(pitch)/12 - 1
	return fmt.Sprintf("%s%d", pitchClassNames[pitch%12], octave)
}

// PitchClassName returns the name of a pitch class 0..11.
func PitchClassName(class uint8) string {
	return pitchClassNames[class%12]
}

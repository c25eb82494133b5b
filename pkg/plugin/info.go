// Package plugin exposes the transposer to a host: metadata, the
// per-block processing context, and the processor that ties the
// parameter registry, snapshot and event router together.
package plugin

// Info contains plugin metadata.
type Info struct {
	ID       string // Unique identifier (e.g., "com.stfufane.miditransposer")
	Name     string // Display name
	Version  string // Semantic version (e.g., "1.0.0")
	Vendor   string // Company/developer name
	Category string // Plugin category (e.g., "Fx|Tools")
}

// UID derives a 16-byte identifier from the string ID.
func (i Info) UID() [16]byte {
	var uid [16]byte
	// FNV-1a folded over the ID, spread across the array so short IDs
	// still fill all 16 bytes.
	var h uint64 = 0xcbf29ce484222325
	for j := 0; j < len(i.ID); j++ {
		h ^= uint64(i.ID[j])
		h *= 0x100000001b3
	}
	for j := 0; j < 16; j++ {
		uid[j] = byte(h >> (uint(j%8) * 8))
		if j == 7 {
			h ^= h >> 33
			h *= 0xff51afd7ed558ccd
		}
	}
	return uid
}

// DefaultInfo describes the transposer as shipped.
var DefaultInfo = Info{
	ID:       "com.stfufane.miditransposer",
	Name:     "MidiTransposer",
	Version:  "1.0.0",
	Vendor:   "stfufane",
	Category: "Fx|Tools",
}

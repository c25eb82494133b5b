// Command miditransposer runs the transposition engine offline: it reads a
// standard MIDI file, pushes its events through the same processor a plugin
// host would drive, and writes the transposed result back out.
package main

func main() {
	Execute()
}

package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/stfufane/miditransposer/pkg/chord"
	"github.com/stfufane/miditransposer/pkg/debug"
	"github.com/stfufane/miditransposer/pkg/midi"
	"github.com/stfufane/miditransposer/pkg/param"
	"github.com/stfufane/miditransposer/pkg/plugin"
)

var renderOpts struct {
	out        string
	semitones  int
	octaves    int
	template   string
	custom     []int
	maps       []string
	scale      string
	scaleRoot  string
	channel    int
	arp        bool
	arpRate    string
	arpSync    bool
	tempo      float64
	sampleRate float64
	blockSize  int
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderOpts.out, "out", "o", "", "output MIDI file (default: <input>.transposed.mid)")
	f.IntVarP(&renderOpts.semitones, "semitones", "s", 0, "semitone shift, -24..24")
	f.IntVar(&renderOpts.octaves, "octaves", 0, "octave doubling, -2..2")
	f.StringVarP(&renderOpts.template, "chord", "c", "Unison", "chord template name (see 'templates')")
	f.IntSliceVar(&renderOpts.custom, "custom", nil, "custom chord offsets, implies --chord Custom")
	f.StringArrayVar(&renderOpts.maps, "map", nil,
		"per-note mapping NOTE=SEMITONES[:CHORD], e.g. 'C=+12:Major Triad'; repeatable")
	f.StringVar(&renderOpts.scale, "scale", "Off", "scale to quantize into (see 'templates')")
	f.StringVar(&renderOpts.scaleRoot, "root", "C", "scale root note")
	f.IntVar(&renderOpts.channel, "channel", 0, "input channel filter, 0 = all, 1-16")
	f.BoolVar(&renderOpts.arp, "arp", false, "arpeggiate chords instead of playing them")
	f.StringVar(&renderOpts.arpRate, "arp-rate", "1/4", "arpeggiator step length")
	f.BoolVar(&renderOpts.arpSync, "arp-sync", false, "snap arpeggiator steps to the beat grid")
	f.Float64Var(&renderOpts.tempo, "tempo", 0, "override tempo in BPM (default: from the file)")
	f.Float64Var(&renderOpts.sampleRate, "sample-rate", 48000, "render sample rate")
	f.IntVar(&renderOpts.blockSize, "block-size", 512, "samples per processing block")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <input.mid>",
	Short: "Render a MIDI file through the transposer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return render(args[0])
	},
}

func render(path string) error {
	in, err := readSMF(path)
	if err != nil {
		return err
	}

	tp := plugin.NewTransposer(64, 1024)
	if err := tp.Initialize(renderOpts.sampleRate, int32(renderOpts.blockSize)); err != nil {
		return err
	}
	if err := tp.SetActive(true); err != nil {
		return err
	}
	if err := configure(tp); err != nil {
		return err
	}

	out, err := renderSMF(in, tp)
	if err != nil {
		return err
	}

	outPath := renderOpts.out
	if outPath == "" {
		outPath = strings.TrimSuffix(path, ".mid") + ".transposed.mid"
	}
	if err := writeSMF(out, outPath); err != nil {
		return err
	}
	debug.Default().Infof("wrote %s", outPath)
	return nil
}

func readSMF(path string) (*smf.SMF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	in, err := smf.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return in, nil
}

func writeSMF(out *smf.SMF, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := out.WriteTo(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// configure maps the command-line flags onto the processor's parameters.
func configure(tp *plugin.Transposer) error {
	template := renderOpts.template
	if len(renderOpts.custom) > 0 {
		template = "Custom"
		offsets := make([]int8, 0, len(renderOpts.custom))
		for _, o := range renderOpts.custom {
			if o < -128 || o > 127 {
				return fmt.Errorf("custom offset %d out of range", o)
			}
			offsets = append(offsets, int8(o))
		}
		tp.SetCustomOffsets(offsets)
	}
	templateID, err := templateByName(template)
	if err != nil {
		return err
	}
	scaleIdx, err := scaleByName(renderOpts.scale)
	if err != nil {
		return err
	}
	rootIdx, err := pitchClassByName(renderOpts.scaleRoot)
	if err != nil {
		return err
	}
	rateIdx, err := rateByLabel(renderOpts.arpRate)
	if err != nil {
		return err
	}
	if renderOpts.channel < 0 || renderOpts.channel > 16 {
		return fmt.Errorf("channel %d out of range 0-16", renderOpts.channel)
	}

	type plainValue struct {
		id    uint32
		plain float64
	}
	plains := []plainValue{
		{param.ParamSemitones, float64(renderOpts.semitones)},
		{param.ParamOctaves, float64(renderOpts.octaves)},
		{param.ParamTemplate, float64(templateID)},
		{param.ParamScale, float64(scaleIdx)},
		{param.ParamScaleRoot, float64(rootIdx)},
		{param.ParamInputChannel, float64(renderOpts.channel)},
		{param.ParamArpEnabled, boolPlain(renderOpts.arp)},
		{param.ParamArpRate, float64(rateIdx)},
		{param.ParamArpSync, boolPlain(renderOpts.arpSync)},
	}
	for _, spec := range renderOpts.maps {
		class, semis, templID, err := parseNoteMap(spec)
		if err != nil {
			return err
		}
		plains = append(plains,
			plainValue{param.NoteParamID(class, param.NoteFieldActive), 1},
			plainValue{param.NoteParamID(class, param.NoteFieldSemitones), float64(semis)},
			plainValue{param.NoteParamID(class, param.NoteFieldTemplate), float64(templID)},
		)
	}

	for _, pv := range plains {
		p := tp.Parameters().Get(pv.id)
		if err := tp.SetParameter(pv.id, p.Normalize(pv.plain)); err != nil {
			return err
		}
	}
	return nil
}

// parseNoteMap parses one --map argument: NOTE=SEMITONES[:CHORD].
func parseNoteMap(spec string) (class uint8, semitones int, template chord.TemplateID, err error) {
	note, rest, found := strings.Cut(spec, "=")
	if !found {
		return 0, 0, 0, fmt.Errorf("map %q: want NOTE=SEMITONES[:CHORD]", spec)
	}
	classIdx, err := pitchClassByName(strings.TrimSpace(note))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("map %q: %w", spec, err)
	}
	semisText, templName, hasTemplate := strings.Cut(rest, ":")
	semitones, err = strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(semisText), "+"))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("map %q: bad semitone count %q", spec, semisText)
	}
	template = chord.Unison
	if hasTemplate {
		template, err = templateByName(strings.TrimSpace(templName))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("map %q: %w", spec, err)
		}
	}
	return uint8(classIdx), semitones, template, nil
}

func boolPlain(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// timedEvent is one input event placed on the absolute sample timeline.
type timedEvent struct {
	sample int64
	event  midi.Event
}

// renderSMF merges the file's tracks onto one timeline, pushes it through
// the processor in fixed-size blocks and rebuilds a single-track file.
func renderSMF(in *smf.SMF, tp *plugin.Transposer) (*smf.SMF, error) {
	ticks, ok := in.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported time format %v", in.TimeFormat)
	}

	tempo := renderOpts.tempo
	var timeline []timedEvent
	var lastSample int64
	samplesPerTick := func(bpm float64) float64 {
		return renderOpts.sampleRate * 60 / (bpm * float64(ticks.Resolution()))
	}

	// First tempo event wins; tempo changes mid-file are not tracked.
	for _, track := range in.Tracks {
		var absTicks uint64
		for _, ev := range track {
			absTicks += uint64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && tempo == 0 {
				tempo = bpm
			}
		}
	}
	if tempo == 0 {
		tempo = 120
	}
	spt := samplesPerTick(tempo)

	for _, track := range in.Tracks {
		var absTicks uint64
		for _, ev := range track {
			absTicks += uint64(ev.Delta)
			e, ok := midi.FromMessage(gomidi.Message(ev.Message), 0)
			if !ok {
				continue
			}
			sample := int64(float64(absTicks) * spt)
			timeline = append(timeline, timedEvent{sample: sample, event: e})
			if sample > lastSample {
				lastSample = sample
			}
		}
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].sample < timeline[j].sample
	})
	debug.Default().Debugf("%d input events, tempo %.1f BPM, %.2f samples/tick",
		len(timeline), tempo, spt)

	blockSize := renderOpts.blockSize
	samplesPerBeat := renderOpts.sampleRate * 60 / tempo

	// One trailing block carries an all-notes-off so held voices and the
	// arpeggiator always resolve. It has to ride the listened channel or
	// the input filter would pass it through without releasing anything.
	flushCh := uint8(0)
	if renderOpts.channel > 0 {
		flushCh = uint8(renderOpts.channel - 1)
	}
	endSample := lastSample + int64(blockSize)
	flushSample := endSample
	endSample += int64(blockSize)

	ctx := plugin.NewContext(1024)
	var outEvents []timedEvent
	next := 0
	for blockStart := int64(0); blockStart < endSample; blockStart += int64(blockSize) {
		ctx.Begin(blockSize)
		ctx.Transport.Playing = true
		ctx.Transport.Tempo = tempo
		ctx.Transport.PosBeats = float64(blockStart) / samplesPerBeat

		for next < len(timeline) && timeline[next].sample < blockStart+int64(blockSize) {
			e := timeline[next].event
			e.Offset = int32(timeline[next].sample - blockStart)
			ctx.AddEvent(e)
			next++
		}
		if flushSample >= blockStart && flushSample < blockStart+int64(blockSize) {
			ctx.AddEvent(midi.ControlChange(flushCh, midi.CCAllNotesOff, 0, int32(flushSample-blockStart)))
		}

		tp.ProcessBlock(ctx)
		for _, e := range ctx.Out() {
			outEvents = append(outEvents, timedEvent{
				sample: blockStart + int64(e.Offset),
				event:  e,
			})
		}
	}

	debug.Default().Debugf("%d output events", len(outEvents))

	out := smf.New()
	out.TimeFormat = in.TimeFormat
	var track smf.Track
	track.Add(0, smf.MetaTempo(tempo))
	var prevTick uint64
	for _, te := range outEvents {
		tick := uint64(float64(te.sample)/spt + 0.5)
		track.Add(uint32(tick-prevTick), te.event.Message())
		prevTick = tick
	}
	track.Close(0)
	out.Add(track)
	return out, nil
}

func templateByName(name string) (chord.TemplateID, error) {
	for i := 0; i < chord.Count(); i++ {
		id := chord.TemplateID(i)
		if strings.EqualFold(id.String(), name) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown chord template %q", name)
}

func scaleByName(name string) (int, error) {
	for i, s := range chord.Scales {
		if strings.EqualFold(s.Name, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown scale %q", name)
}

func pitchClassByName(name string) (int, error) {
	for i := uint8(0); i < 12; i++ {
		if strings.EqualFold(midi.PitchClassName(i), name) {
			return int(i), nil
		}
	}
	return 0, fmt.Errorf("unknown note name %q", name)
}

func rateByLabel(label string) (int, error) {
	for i, d := range param.Divisions {
		if d.Label == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown arp rate %q, see 'templates' for the list", label)
}

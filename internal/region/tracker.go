package region

import "github.com/wattlens/wattlens/internal/stream"

// Tracker turns one digital signal's chunk stream into regions and routes
// analog chunks into them. A rising edge opens a region, the matching
// falling edge closes it; completed regions emerge in creation order.
//
// Digital processing lags one chunk behind arrival. Analog chunks queue
// until the digital stream has advanced past them, so every edge that could
// claim a sample is known before the sample is released and discarded. This
// bounds memory to roughly one digital chunk of analog data per signal plus
// whatever regions are still accumulating.
type Tracker struct {
	signal    string
	signals   []string
	prevKnown bool
	prevHigh  bool
	held      *stream.Chunk
	regions   []*Region
	pending   map[string][]*stream.Chunk
}

// NewTracker constructs a tracker for one digital signal that summarizes the
// given analog signals per region.
func NewTracker(signal string, analogSignals []string) *Tracker {
	pending := make(map[string][]*stream.Chunk, len(analogSignals))
	for _, s := range analogSignals {
		pending[s] = nil
	}
	return &Tracker{
		signal:  signal,
		signals: append([]string(nil), analogSignals...),
		pending: pending,
	}
}

// Signal returns the digital signal name the tracker watches.
func (t *Tracker) Signal() string {
	return t.signal
}

// PushBits consumes the next digital chunk and returns the regions completed
// by it, oldest first. The chunk is held and the previously held chunk is
// processed: its edges open and close regions, then analog data strictly
// before its end is routed into every region and discarded.
func (t *Tracker) PushBits(c *stream.Chunk) []*Region {
	prev := t.held
	t.held = c
	if prev == nil {
		return nil
	}
	t.scanEdges(prev)
	_, frontier := prev.SampleIDRange()
	t.feedData(frontier)
	return t.popComplete()
}

// PushData queues an analog chunk for release into regions. Chunks for
// signals the tracker does not summarize are dropped.
func (t *Tracker) PushData(c *stream.Chunk) {
	if _, ok := t.pending[c.Signal]; !ok {
		return
	}
	t.pending[c.Signal] = append(t.pending[c.Signal], c)
}

// Flush processes the held digital chunk and releases all queued analog
// data, then returns the regions that completed. Regions still open or
// short of data stay behind; OpenRegions reports how many.
func (t *Tracker) Flush() []*Region {
	if c := t.held; c != nil {
		t.held = nil
		t.scanEdges(c)
	}
	for _, sig := range t.signals {
		for _, chunk := range t.pending[sig] {
			for _, region := range t.regions {
				region.Add(sig, chunk)
			}
		}
		t.pending[sig] = nil
	}
	return t.popComplete()
}

// OpenRegions returns the number of regions still awaiting their close edge
// or trailing data.
func (t *Tracker) OpenRegions() int {
	return len(t.regions)
}

// scanEdges walks the chunk's bits for level transitions. The level carried
// from the previous chunk seeds the scan; the first chunk's first bit seeds
// the carry, so a stream that begins high does not open a region at its
// first sample.
func (t *Tracker) scanEdges(c *stream.Chunk) {
	bits := stream.UnpackBits(c.Bits)
	if len(bits) == 0 {
		return
	}
	if !t.prevKnown {
		t.prevKnown = true
		t.prevHigh = bits[0]
	}
	seekHigh := !t.prevHigh
	offset := 0
	for offset < len(bits) {
		idx := -1
		for i := offset; i < len(bits); i++ {
			if bits[i] == seekHigh {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		edgeID := c.SampleID + uint64(idx)*c.DecimateFactor
		if seekHigh {
			t.regions = append(t.regions, NewRegion(edgeID, c.TimeMap.UTC(edgeID), t.signals))
		} else if n := len(t.regions); n > 0 && !t.regions[n-1].Closed() {
			t.regions[n-1].Close(edgeID, c.TimeMap.UTC(edgeID))
		}
		offset = idx
		t.prevHigh = seekHigh
		seekHigh = !seekHigh
	}
}

// feedData releases queued analog chunks that end strictly before the
// frontier, feeding each to every region before discarding it.
func (t *Tracker) feedData(frontier uint64) {
	for _, sig := range t.signals {
		queue := t.pending[sig]
		for len(queue) > 0 {
			_, end := queue[0].SampleIDRange()
			if end >= frontier {
				break
			}
			chunk := queue[0]
			queue = queue[1:]
			for _, region := range t.regions {
				region.Add(sig, chunk)
			}
		}
		t.pending[sig] = queue
	}
}

// popComplete removes and returns leading complete regions, stopping at the
// first incomplete one so results always emerge in creation order.
func (t *Tracker) popComplete() []*Region {
	var done []*Region
	for len(t.regions) > 0 && t.regions[0].Complete() {
		done = append(done, t.regions[0])
		t.regions = t.regions[1:]
	}
	return done
}

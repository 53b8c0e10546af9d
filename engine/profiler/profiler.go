package profiler

import (
	"log"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Timing is the accumulated time spent inside one annotated section since the last report.
type Timing struct {
	// Label is the section path, nested sections joined with "/".
	Label string
	Total time.Duration
	Count int
}

type openSection struct {
	label string
	start time.Time
}

// Profiler tracks frame rate, memory statistics and the time spent in annotated sections of the frame.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	open    []openSection
	timings map[string]*Timing

	now func() time.Time
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - opts: optional builder options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		updateInterval: time.Second,
		timings:        make(map[string]*Timing),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Begin opens an annotated section. Sections nest; a section opened inside another is recorded under
// "outer/inner".
//
// Parameters:
//   - label: the section name
func (p *Profiler) Begin(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.open); n > 0 {
		label = p.open[n-1].label + "/" + label
	}
	p.open = append(p.open, openSection{label: label, start: p.now()})
}

// End closes the most recently opened section and adds its duration to the section's total. An End without a
// matching Begin is ignored.
func (p *Profiler) End() {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.open)
	if n == 0 {
		return
	}
	s := p.open[n-1]
	p.open = p.open[:n-1]

	t, ok := p.timings[s.label]
	if !ok {
		t = &Timing{Label: s.label}
		p.timings[s.label] = t
	}
	t.Total += p.now().Sub(s.start)
	t.Count++
}

// Timings returns the accumulated section timings since the last report, ordered by label.
//
// Returns:
//   - []Timing: the timings
func (p *Profiler) Timings() []Timing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortedTimings()
}

func (p *Profiler) sortedTimings() []Timing {
	out := make([]Timing, 0, len(p.timings))
	for _, t := range p.timings {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed, followed by one line per annotated section
// with its average cost per frame. Section timings are reset after each report.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)
	for _, t := range p.sortedTimings() {
		perFrame := float64(t.Total.Microseconds()) / 1000 / float64(p.frameCount)
		indent := strings.Repeat("  ", strings.Count(t.Label, "/"))
		log.Printf("[Profiler] %s%s: %.3f ms/frame (%d calls)", indent, t.Label, perFrame, t.Count)
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	clear(p.timings)
	return true
}

// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"sync"
	"time"

	"pluck/internal/analysis"
	applog "pluck/internal/log"
	"pluck/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultFrameInterval is used when the publisher is given a non-positive
// interval (~30Hz).
const DefaultFrameInterval = 33 * time.Millisecond

// Publisher periodically snapshots the visualization window, analyses it
// and hands the resulting Frame to every registered transport. It runs in a
// separate goroutine managed by Start and Stop and never touches the
// simulation loop beyond the window's read side.
type Publisher struct {
	source   WindowSource
	fftProc  *analysis.FFTProcessor
	bandProc *analysis.BandEnergyProcessor
	onset    *analysis.OnsetDetector
	interval time.Duration
	now      func() time.Time

	transports []namedTransport

	ticker   *time.Ticker   // Ticker that triggers frame publishing.
	doneChan chan struct{}  // Closed to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker, doneChan and transports.

	sequenceNum uint32

	// Reused between ticks; frames themselves are fresh because transports
	// may hold on to them.
	snapshot []float64
	mags     []float64
}

type namedTransport struct {
	name      string
	transport Transport
	published prometheus.Counter
}

// NewPublisher creates a publisher for source. fftProc may be nil, in which
// case frames carry no spectrum, bands or dominant frequency.
func NewPublisher(interval time.Duration, source WindowSource, fftProc *analysis.FFTProcessor) (*Publisher, error) {
	if source == nil {
		return nil, errors.New("Publisher: window source cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
		applog.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	p := &Publisher{
		source:   source,
		fftProc:  fftProc,
		onset:    analysis.NewOnsetDetector(0.01, 1.5),
		interval: interval,
		now:      time.Now,
		snapshot: make([]float64, source.Size()),
	}
	if fftProc != nil {
		p.bandProc = analysis.NewBandEnergyProcessor(fftProc, analysis.DefaultBands(fftProc.GetSampleRate()))
		p.mags = make([]float64, fftProc.BinCount())
	}
	applog.Infof("Publisher: Initializing (Interval: %s, Window: %d samples)", interval, source.Size())
	return p, nil
}

// AddTransport registers t under name. The name labels the published
// frames metric.
func (p *Publisher) AddTransport(name string, t Transport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transports = append(p.transports, namedTransport{
		name:      name,
		transport: t,
		published: metrics.FramesPublishedTotal.WithLabelValues(name),
	})
}

// Start begins the periodic publishing process. Subsequent calls are no-ops
// while running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("Publisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.Publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to
// exit. It is safe to call Stop multiple times.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("Publisher: Publisher goroutine finished.")
	return nil
}

// Close stops publishing and closes every registered transport.
func (p *Publisher) Close() error {
	err := p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, nt := range p.transports {
		if cerr := nt.transport.Close(); cerr != nil {
			applog.Errorf("Publisher: Error closing %s transport: %v", nt.name, cerr)
			err = errors.Join(err, cerr)
		}
	}
	p.transports = nil
	return err
}

// BuildFrame snapshots the window and analyses it. It must not be called
// concurrently with itself or Publish.
func (p *Publisher) BuildFrame() *Frame {
	n := p.source.SnapshotInto(p.snapshot)
	block := p.snapshot[:n]

	p.sequenceNum++
	frame := &Frame{
		Type:    FrameType,
		Seq:     p.sequenceNum,
		Time:    p.now().UnixNano(),
		Samples: make([]float32, n),
		Peak:    analysis.Peak(block),
		RMS:     analysis.RMS(block),
		Onset:   p.onset.Detect(block),
	}
	for i, v := range block {
		frame.Samples[i] = float32(v)
	}

	if p.fftProc != nil {
		p.fftProc.Process(block)
		if err := p.fftProc.GetMagnitudesInto(p.mags); err != nil {
			applog.Errorf("Publisher: Error getting magnitudes: %v", err)
			return frame
		}
		frame.Spectrum = make([]float32, len(p.mags))
		for i, v := range p.mags {
			frame.Spectrum[i] = float32(v)
		}
		if frame.Peak > 0 {
			frame.PeakHz, _ = p.fftProc.PeakFrequency()
		}
		p.bandProc.Process()
		frame.Bands = p.bandProc.Bands()
	}
	return frame
}

// Publish builds one frame and sends it to every transport. Send errors
// are logged and do not stop the other transports.
func (p *Publisher) Publish() *Frame {
	frame := p.BuildFrame()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, nt := range p.transports {
		if err := nt.transport.Send(frame); err != nil {
			applog.Debugf("Publisher: %s send failed for frame %d: %v", nt.name, frame.Seq, err)
			continue
		}
		nt.published.Inc()
	}
	return frame
}

// Ensure Publisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*Publisher)(nil)

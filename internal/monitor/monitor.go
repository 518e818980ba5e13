package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storskegg/ble-roster/internal/audit"
	"github.com/storskegg/ble-roster/internal/display"
	"github.com/storskegg/ble-roster/internal/export"
	"github.com/storskegg/ble-roster/internal/gps"
	"github.com/storskegg/ble-roster/internal/input"
	"github.com/storskegg/ble-roster/internal/logging"
	"github.com/storskegg/ble-roster/internal/roster"
	"github.com/storskegg/ble-roster/internal/scan"
	"github.com/storskegg/ble-roster/internal/viewport"
)

// Config holds the loop timings and layout settings.
type Config struct {
	InactiveThreshold time.Duration
	DeviceTimeout     time.Duration
	SortMode          roster.SortMode

	ScanInterval   time.Duration
	CycleInterval  time.Duration
	RenderInterval time.Duration
	AuditInterval  time.Duration
	RetryDelay     time.Duration

	BarWidth  int
	NameWidth int
	ExportDir string
}

// Deps are the collaborators a Monitor drives. GPS, Audit and Cues may be nil.
type Deps struct {
	Source  scan.Source
	Backend display.Backend
	Keys    input.Poller
	GPS     *gps.LocationState
	Audit   *audit.Log
	Cues    *scan.Cues
}

// Monitor owns the registry and viewport and runs the refresh loop.
type Monitor struct {
	cfg     Config
	source  scan.Source
	backend display.Backend
	keys    input.Poller
	gps     *gps.LocationState
	audit   *audit.Log
	cues    *scan.Cues
	now     func() time.Time

	// mu is held for a whole cycle and by Export.
	mu       sync.Mutex
	registry *roster.Registry
	vp       *viewport.Controller
	interp   *input.Interpreter

	entries []roster.Entry
	active  int

	width, height int
	lastDrain     time.Time
	lastRender    time.Time
	lastAudit     time.Time
	notice        string
	quit          bool
}

func New(cfg Config, deps Deps) *Monitor {
	vp := viewport.New(1, cfg.SortMode)
	return &Monitor{
		cfg:      cfg,
		source:   deps.Source,
		backend:  deps.Backend,
		keys:     deps.Keys,
		gps:      deps.GPS,
		audit:    deps.Audit,
		cues:     deps.Cues,
		now:      time.Now,
		registry: roster.NewRegistry(),
		vp:       vp,
		interp:   input.NewInterpreter(vp),
	}
}

// Run starts the source and cycles until ctx is done or the operator quits.
// On the way out it flushes the audit log and restores the terminal.
func (m *Monitor) Run(ctx context.Context) (err error) {
	if err := m.backend.HideCursor(); err != nil {
		m.backend.Close()
		return fmt.Errorf("preparing terminal: %w", err)
	}
	if err := m.backend.Clear(); err != nil {
		m.backend.Close()
		return fmt.Errorf("preparing terminal: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := m.source.Start(ctx); err != nil {
		return errors.Join(fmt.Errorf("starting scan source: %w", err), m.restore())
	}

	defer func() {
		err = errors.Join(err, m.shutdown())
	}()

	ticker := time.NewTicker(m.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		if cerr := m.Cycle(); cerr != nil {
			logging.LogCycleError("render", cerr, m.cfg.RetryDelay)
			m.setNotice(fmt.Sprintf("display error: %v", cerr))
			if !sleep(ctx, m.cfg.RetryDelay) {
				return nil
			}
			continue
		}
		if m.Quitting() {
			logging.Info("Quit requested")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Cycle runs one strictly sequential refresh pass.
func (m *Monitor) Cycle() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.lastAudit.IsZero() {
		m.lastAudit = now
	}

	changed := m.applyKeys(now)

	if m.lastDrain.IsZero() || now.Sub(m.lastDrain) >= m.cfg.ScanInterval {
		m.ingest(now)
		m.lastDrain = now
	}

	if removed := m.registry.Evict(now, m.cfg.DeviceTimeout); removed > 0 {
		m.vp.OnDevicesEvicted(removed)
		logging.LogEviction(removed, m.registry.Len())
	}

	resized, err := m.resize()
	if err != nil {
		return err
	}
	changed = changed || resized

	active, inactive := roster.Sort(m.registry, now, m.vp.SortMode(), m.cfg.InactiveThreshold)
	m.entries = roster.Join(active, inactive)
	m.active = len(active)
	m.vp.Reconcile(m.entries)

	if changed || m.lastRender.IsZero() || now.Sub(m.lastRender) >= m.cfg.RenderInterval {
		if err := m.backend.Draw(display.Build(m.model(now))); err != nil {
			return fmt.Errorf("drawing frame: %w", err)
		}
		m.lastRender = now
	}

	if m.audit != nil && now.Sub(m.lastAudit) >= m.cfg.AuditInterval {
		m.flushAudit(now)
		m.lastAudit = now
	}

	return nil
}

// Export writes a snapshot of the registry. It is safe to call from any
// goroutine.
func (m *Monitor) Export() (export.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.export(m.now())
}

// Quitting reports whether the operator asked to quit.
func (m *Monitor) Quitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quit
}

func (m *Monitor) applyKeys(now time.Time) bool {
	changed := false
	for _, k := range m.keys.Poll() {
		out := m.interp.Apply(k)
		changed = changed || out.Changed

		switch {
		case out.Quit:
			m.quit = true
		case out.Clear:
			m.registry.Clear()
			m.notice = "roster cleared"
			logging.Info("Roster cleared")
		case out.Export:
			if _, err := m.export(now); err != nil {
				m.notice = fmt.Sprintf("export failed: %v", err)
			}
			changed = true
		case out.Command == input.CmdPause:
			if m.interp.Paused() {
				logging.Info("Ingest paused")
			} else {
				logging.Info("Ingest resumed")
			}
		}
	}
	return changed
}

// ingest drains the source and applies every observation. While paused the
// drained observations are discarded.
func (m *Monitor) ingest(now time.Time) {
	observations := m.source.Drain()
	if m.interp.Paused() {
		return
	}

	fix := m.gps.Current()
	for _, obs := range observations {
		if obs.Location == nil && fix != nil {
			loc := *fix
			obs.Location = &loc
		}
		if m.registry.Apply(obs, now) {
			m.cues.NewDevice()
		}
	}
}

// resize tracks the terminal size and reports whether it changed.
func (m *Monitor) resize() (bool, error) {
	width, height, err := m.backend.Size()
	if err != nil {
		return false, fmt.Errorf("reading terminal size: %w", err)
	}
	if width == m.width && height == m.height {
		return false, nil
	}

	top, bottom := display.ScrollRegion(height)
	if err := m.backend.SetScrollRegion(top, bottom); err != nil {
		return false, fmt.Errorf("setting scroll region: %w", err)
	}
	if err := m.backend.Clear(); err != nil {
		return false, fmt.Errorf("clearing screen: %w", err)
	}

	m.width, m.height = width, height
	m.vp.SetContentHeight(display.ContentHeight(height))
	return true, nil
}

func (m *Monitor) model(now time.Time) display.Model {
	return display.Model{
		Now:       now,
		Width:     m.width,
		Height:    m.height,
		Entries:   m.entries,
		Active:    m.active,
		Offset:    m.vp.Offset(),
		Selected:  m.vp.SelectedIndex(),
		View:      m.vp.View(),
		SortMode:  m.vp.SortMode(),
		Paused:    m.interp.Paused(),
		Source:    m.source.Status(),
		GPS:       m.gps.Info(),
		Fix:       m.gps.Current(),
		Notice:    m.notice,
		BarWidth:  m.cfg.BarWidth,
		NameWidth: m.cfg.NameWidth,
	}
}

func (m *Monitor) export(now time.Time) (export.Result, error) {
	res, err := export.Snapshot(m.cfg.ExportDir, now, m.registry.Snapshot())
	if err != nil {
		logging.Warn("Export failed", zap.Error(err))
		return res, err
	}

	m.notice = fmt.Sprintf("exported %d devices to %s", res.Devices, res.JSONPath)
	logging.Info("Exported snapshot",
		zap.String("json", res.JSONPath),
		zap.String("kml", res.KMLPath),
		zap.Int("devices", res.Devices),
		zap.Int("located", res.Located),
	)
	m.cues.Exported()
	return res, nil
}

func (m *Monitor) flushAudit(now time.Time) error {
	if err := m.audit.Flush(now, m.registry.Snapshot()); err != nil {
		m.notice = fmt.Sprintf("audit log: %v", err)
		logging.Warn("Audit flush failed", zap.String("path", m.audit.Path()), zap.Error(err))
		return err
	}
	logging.Debug("Audit block written", zap.Int("block", m.audit.Blocks()), zap.Int("devices", m.registry.Len()))
	return nil
}

func (m *Monitor) setNotice(s string) {
	m.mu.Lock()
	m.notice = s
	m.mu.Unlock()
}

// shutdown writes the final audit block and restores the terminal.
func (m *Monitor) shutdown() error {
	m.mu.Lock()
	var auditErr error
	if m.audit != nil {
		auditErr = m.flushAudit(m.now())
	}
	m.mu.Unlock()

	return errors.Join(auditErr, m.source.Close(), m.restore())
}

func (m *Monitor) restore() error {
	return errors.Join(
		m.backend.ResetScrollRegion(),
		m.backend.ShowCursor(),
		m.backend.Close(),
	)
}

// sleep waits for d or ctx, reporting false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

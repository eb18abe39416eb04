// Package session is the single logical owner of the discovery state.
//
// One goroutine, started by Run, performs every mutation of the fetched
// records, the filter selection, the focus and the resolved-place mapping.
// Fetches, place resolutions and photo lookups run on their own goroutines and
// post their completions back to that loop, which applies them in arrival
// order. After each message the loop publishes an immutable View.
//
// Fetches are sequenced: every Refresh takes the next sequence number, and a
// completion not newer than the last applied one is dropped. Only the latest
// fetch clears the loading flag or changes the error banner, so an older
// response can never hide a newer error, or the reverse.
package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/venuescout/internal/airtable"
	"github.com/rewired-gh/venuescout/internal/logger"
	"github.com/rewired-gh/venuescout/internal/metrics"
	"github.com/rewired-gh/venuescout/internal/models"
	"github.com/rewired-gh/venuescout/internal/places"
	"github.com/rewired-gh/venuescout/internal/reconcile"
	"github.com/rewired-gh/venuescout/internal/state"
)

// ErrStopped is returned by Dispatch once Run has returned.
var ErrStopped = errors.New("session stopped")

const inboxSize = 256

// Fetcher retrieves the full event record set.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.EventRecord, error)
}

// PhotoSource resolves a photo reference to a displayable URI.
type PhotoSource interface {
	PhotoURI(ctx context.Context, photoRef string, maxHeightPx int) (string, error)
}

// MapSurface renders markers. It is called on the session goroutine after
// every change to the marker set and must not block or call Dispatch.
type MapSurface interface {
	ShowMarkers(markers []models.Marker)
}

// DetailSurface is optionally implemented by a MapSurface that also presents
// the focused place. ShowDetail receives nil when focus is dismissed.
type DetailSurface interface {
	ShowDetail(focus *Focus)
}

// Options configures a Session.
type Options struct {
	Fetcher          Fetcher
	Engine           *reconcile.Engine
	Photos           PhotoSource // optional
	PhotoMaxHeightPx int
	Surfaces         []MapSurface
	Metrics          *metrics.Metrics // optional
	RefreshInterval  time.Duration    // 0 disables periodic refresh
}

// Session owns the discovery state. Create it with New and start it with Run.
type Session struct {
	fetcher          Fetcher
	engine           *reconcile.Engine
	photos           PhotoSource
	photoMaxHeightPx int
	surfaces         []MapSurface
	metrics          *metrics.Metrics
	refreshInterval  time.Duration
	runID            string

	inbox   chan any
	stopped chan struct{}
	view    atomic.Pointer[View]

	// Owned by the Run goroutine.
	ctx        context.Context
	all        []models.EventRecord
	visible    []models.EventRecord
	generated  bool
	filter     state.FilterSelection
	selection  state.Selection
	latestSeq  uint64
	appliedSeq uint64
	loading    bool
	fetchErr   error
	resolving  bool
	photoSeq   uint64
	photoURI   string
}

type request struct {
	intent Intent
	reply  chan View
}

type fetchDone struct {
	seq      uint64
	records  []models.EventRecord
	err      error
	duration time.Duration
}

type placeResult struct {
	gen reconcile.Generation
	res places.Result
}

type resolveDone struct {
	gen reconcile.Generation
}

type photoDone struct {
	seq     uint64
	placeID string
	uri     string
	err     error
}

// New creates a Session. Fetcher and Engine are required. Run must be called
// before Dispatch can make progress.
func New(opts Options) *Session {
	s := &Session{
		fetcher:          opts.Fetcher,
		engine:           opts.Engine,
		photos:           opts.Photos,
		photoMaxHeightPx: opts.PhotoMaxHeightPx,
		surfaces:         opts.Surfaces,
		metrics:          opts.Metrics,
		refreshInterval:  opts.RefreshInterval,
		runID:            uuid.NewString(),
		inbox:            make(chan any, inboxSize),
		stopped:          make(chan struct{}),
	}
	s.publish()
	return s
}

// RunID identifies this session in logs and views.
func (s *Session) RunID() string { return s.runID }

// View returns the latest published snapshot. It is safe to call from any
// goroutine.
func (s *Session) View() View {
	return *s.view.Load()
}

// Run starts the initial fetch and processes messages until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)
	s.ctx = ctx

	logger.Info("Session %s started", s.runID)
	s.startFetch()
	s.publish()

	var tick <-chan time.Time
	if s.refreshInterval > 0 {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()
		tick = ticker.C
		logger.Info("Periodic refresh every %v", s.refreshInterval)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Session %s stopped", s.runID)
			return ctx.Err()

		case <-tick:
			logger.Debug("Starting scheduled refresh")
			s.startFetch()
			s.publish()

		case msg := <-s.inbox:
			s.handle(msg)
		}
	}
}

// Dispatch hands an intent to the session goroutine and returns the View
// published right after it was applied.
func (s *Session) Dispatch(ctx context.Context, in Intent) (View, error) {
	if err := in.validate(); err != nil {
		return View{}, err
	}

	req := request{intent: in, reply: make(chan View, 1)}
	select {
	case s.inbox <- req:
	case <-s.stopped:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	select {
	case v := <-req.reply:
		return v, nil
	case <-s.stopped:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// post delivers a completion from a worker goroutine. It gives up once the
// session has stopped.
func (s *Session) post(msg any) {
	select {
	case s.inbox <- msg:
	case <-s.stopped:
	}
}

func (s *Session) handle(msg any) {
	switch m := msg.(type) {
	case request:
		s.apply(m.intent)
		s.publish()
		m.reply <- s.View()
		return
	case fetchDone:
		s.onFetchDone(m)
	case placeResult:
		s.onPlaceResult(m)
	case resolveDone:
		if m.gen == s.engine.Generation() {
			s.resolving = false
			logger.Debug("Generation %d resolved", m.gen)
		}
	case photoDone:
		s.onPhotoDone(m)
	default:
		logger.Warn("Session received unexpected message %T", msg)
		return
	}
	s.publish()
}

func (s *Session) apply(in Intent) {
	s.metrics.IncIntent(in.Kind.String())
	logger.Debug("Intent %s %q", in.Kind, in.Arg)

	switch in.Kind {
	case Refresh:
		s.startFetch()

	case ToggleActiveOnly:
		s.filter.ToggleActiveOnly()
		s.refilter()

	case ToggleNeighborhood:
		s.filter.ToggleNeighborhood(in.Arg)
		s.refilter()

	case ClearNeighborhoodFilter:
		if len(s.filter.SelectedNeighborhoods) == 0 {
			return
		}
		s.filter.ClearNeighborhoods()
		s.refilter()

	case SelectMarker:
		if !s.selection.Select(in.Arg, s.hasPlace) {
			return
		}
		s.photoURI = ""
		s.startPhoto(in.Arg)
		s.showDetail()

	case DismissDetail:
		if !s.selection.Dismiss() {
			return
		}
		s.photoSeq++
		s.photoURI = ""
		s.showDetail()
	}
}

func (s *Session) hasPlace(id string) bool {
	_, ok := s.engine.Place(id)
	return ok
}

func (s *Session) startFetch() {
	s.latestSeq++
	seq := s.latestSeq
	s.loading = true

	ctx := s.ctx
	go func() {
		start := time.Now()
		records, err := s.fetcher.Fetch(ctx)
		s.post(fetchDone{seq: seq, records: records, err: err, duration: time.Since(start)})
	}()
}

func (s *Session) onFetchDone(m fetchDone) {
	s.metrics.ObserveFetch(fetchOutcome(m.err), m.duration)

	if m.seq <= s.appliedSeq {
		s.metrics.IncStale()
		logger.Debug("Dropping fetch %d, already applied %d", m.seq, s.appliedSeq)
		return
	}

	latest := m.seq == s.latestSeq
	if m.err != nil {
		if !latest {
			logger.Warn("Superseded fetch %d failed: %v", m.seq, m.err)
			return
		}
		s.appliedSeq = m.seq
		s.loading = false
		s.fetchErr = m.err
		logger.Error("Fetch failed: %v", m.err)
		return
	}

	s.appliedSeq = m.seq
	if latest {
		s.loading = false
		s.fetchErr = nil
	}
	logger.Info("Fetched %d events (fetch %d of %d)", len(m.records), m.seq, s.latestSeq)
	s.all = m.records
	s.refilter()
}

// refilter recomputes the visible events and starts a new generation only when
// they differ from the ones the current generation was started for.
func (s *Session) refilter() {
	visible := state.VisibleEvents(s.all, s.filter)
	if s.generated && models.EventsEqual(visible, s.visible) {
		logger.Debug("Visible events unchanged (%d), keeping generation %d", len(visible), s.engine.Generation())
		return
	}
	s.visible = visible
	s.generated = true

	gen := s.engine.Start(s.ctx, visible, func(g reconcile.Generation, res places.Result) {
		s.post(placeResult{gen: g, res: res})
	}, func(g reconcile.Generation) {
		s.post(resolveDone{gen: g})
	})
	s.resolving = true
	s.metrics.SetGeneration(uint64(gen))

	// Begin may have pruned places that are no longer referenced.
	s.showMarkers()
	if id, ok := s.selection.Focused(); ok && !s.hasPlace(id) {
		s.showDetail()
	}
}

func (s *Session) onPlaceResult(m placeResult) {
	outcome := s.engine.Apply(m.gen, m.res)
	if outcome == reconcile.Stale {
		s.metrics.IncStale()
		return
	}
	s.metrics.ObserveResolution(outcome.String())
	s.showMarkers()

	if id, ok := s.selection.Focused(); ok && id == m.res.PlaceID {
		s.showDetail()
	}
}

func (s *Session) startPhoto(placeID string) {
	s.photoSeq++
	if s.photos == nil {
		return
	}
	place, ok := s.engine.Place(placeID)
	if !ok || place.PhotoReference == nil {
		return
	}

	seq := s.photoSeq
	ref := *place.PhotoReference
	ctx := s.ctx
	maxHeight := s.photoMaxHeightPx
	go func() {
		uri, err := s.photos.PhotoURI(ctx, ref, maxHeight)
		s.post(photoDone{seq: seq, placeID: placeID, uri: uri, err: err})
	}()
}

func (s *Session) onPhotoDone(m photoDone) {
	id, ok := s.selection.Focused()
	if m.seq != s.photoSeq || !ok || id != m.placeID {
		logger.Debug("Discarding photo for %s, focus moved", m.placeID)
		return
	}
	if m.err != nil {
		logger.Warn("Photo lookup for %s failed: %v", m.placeID, m.err)
		return
	}
	s.photoURI = m.uri
	s.showDetail()
}

func (s *Session) focus() *Focus {
	id, ok := s.selection.Focused()
	if !ok {
		return nil
	}
	place, ok := s.engine.Place(id)
	if !ok {
		return nil
	}
	return &Focus{Place: place, PhotoURI: s.photoURI}
}

func (s *Session) showMarkers() {
	if len(s.surfaces) == 0 {
		return
	}
	markers := s.engine.Markers()
	for _, surface := range s.surfaces {
		surface.ShowMarkers(markers)
	}
}

func (s *Session) showDetail() {
	f := s.focus()
	for _, surface := range s.surfaces {
		if d, ok := surface.(DetailSurface); ok {
			d.ShowDetail(f)
		}
	}
}

func (s *Session) publish() {
	markers := s.engine.Markers()
	s.metrics.SetMarkers(len(markers))

	v := &View{
		RunID:         s.runID,
		Loading:       s.loading,
		Error:         viewError(s.fetchErr),
		ActiveOnly:    s.filter.ActiveOnly,
		Selected:      s.filter.Neighborhoods(),
		Neighborhoods: state.UniqueNeighborhoods(s.all),
		TotalEvents:   len(s.all),
		VisibleEvents: len(s.visible),
		Markers:       markers,
		Focus:         s.focus(),
		Generation:    uint64(s.engine.Generation()),
		Resolving:     s.resolving,
		UpdatedAt:     time.Now(),
	}
	s.view.Store(v)
}

func fetchOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var fe *airtable.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

// Package session holds the state of one inventory-building session: the
// image queue, the records, and the single mode the user is in.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/intake"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/lookup"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/orchestrator"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
)

// Mode is what the session is doing. Exactly one mode holds at a time.
type Mode int

const (
	Idle Mode = iota
	Extracting
	Editing
	Searching
	AwaitingManualAdd
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Extracting:
		return "extracting"
	case Editing:
		return "editing"
	case Searching:
		return "searching"
	case AwaitingManualAdd:
		return "awaiting_manual_add"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

var (
	// ErrBusy is returned when an operation is not allowed in the current mode
	ErrBusy = errors.New("session is busy")

	// ErrNoImages is returned when extraction is requested with an empty queue
	ErrNoImages = errors.New("no images to extract")

	// ErrNoPendingLookup is returned by AddManual when no lookup has failed
	ErrNoPendingLookup = errors.New("no failed lookup awaiting manual add")
)

// Model is everything the session needs from the extraction boundary
type Model interface {
	orchestrator.Extractor
	lookup.Querier
}

// Progress is the i/N indicator of a running batch
type Progress struct {
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Filename string `json:"filename,omitempty"`
}

type Session struct {
	queue        *intake.Queue
	store        *storage.RecordStore
	orchestrator *orchestrator.Orchestrator
	lookup       *lookup.Service

	mu           sync.Mutex
	mode         Mode
	progress     Progress
	pendingQuery string
	notices      []string
}

// New builds an empty session. concurrency bounds parallel extraction
// requests; 1 keeps the batch strictly sequential.
func New(model Model, concurrency int) *Session {
	queue := intake.NewQueue()
	store := storage.New()
	return &Session{
		queue:        queue,
		store:        store,
		orchestrator: orchestrator.New(model, queue, store, concurrency),
		lookup:       lookup.NewService(model, store),
	}
}

func (s *Session) Queue() *intake.Queue {
	return s.queue
}

func (s *Session) Store() *storage.RecordStore {
	return s.store
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Progress returns the indicator of the running batch; ok is false when
// no batch is running
func (s *Session) Progress() (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress, s.mode == Extracting
}

// PendingQuery returns the query awaiting a manual add decision
func (s *Session) PendingQuery() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingQuery, s.mode == AwaitingManualAdd
}

// Notices drains the user-facing messages raised since the last call
func (s *Session) Notices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	notices := s.notices
	s.notices = nil
	return notices
}

func (s *Session) notify(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, msg)
}

// enter moves the session from one of the allowed modes into to
func (s *Session) enter(to Mode, from ...Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range from {
		if s.mode == m {
			s.mode = to
			return nil
		}
	}
	return fmt.Errorf("%w: cannot start %s while %s", ErrBusy, to, s.mode)
}

func (s *Session) leave(from, to Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == from {
		s.mode = to
	}
}

// AddImages queues images for the next batch
func (s *Session) AddImages(payloads ...intake.Payload) []models.ImageItem {
	added := s.queue.Add(payloads...)
	slog.Debug("Images added", "count", len(added))
	return added
}

// RemoveImage drops an image together with every record extracted from it
func (s *Session) RemoveImage(id string) bool {
	removed := 0
	ok := s.queue.RemoveFunc(id, func() {
		removed = s.store.RemoveBySource(id)
	})
	if ok {
		slog.Debug("Image removed", "id", id, "records", removed)
		s.syncEditMode()
	}
	return ok
}

// Extract runs a batch over every queued image and waits for it. Records an
// earlier batch extracted from those images are replaced; everything else,
// including records from images no longer queued, is kept.
func (s *Session) Extract(ctx context.Context, instruction string, obs orchestrator.Observer) (orchestrator.Summary, error) {
	if err := s.beginExtract(); err != nil {
		return orchestrator.Summary{}, err
	}
	return s.runExtract(ctx, instruction, obs)
}

// StartExtract is Extract without waiting. The session is in Extracting
// mode when it returns without error.
func (s *Session) StartExtract(ctx context.Context, instruction string, obs orchestrator.Observer) error {
	if err := s.beginExtract(); err != nil {
		return err
	}
	go func() {
		if _, err := s.runExtract(ctx, instruction, obs); err != nil {
			slog.Error("Extraction batch failed", "err", err)
		}
	}()
	return nil
}

func (s *Session) beginExtract() error {
	if s.queue.Len() == 0 {
		return ErrNoImages
	}
	return s.enter(Extracting, Idle)
}

func (s *Session) runExtract(ctx context.Context, instruction string, obs orchestrator.Observer) (orchestrator.Summary, error) {
	defer s.leave(Extracting, Idle)

	// only the images about to be re-read lose their earlier records
	items := s.queue.Items()
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	if n := s.store.RemoveBySources(ids...); n > 0 {
		slog.Debug("Cleared records from previous batch", "records", n)
	}

	if obs == nil {
		obs = orchestrator.NopObserver{}
	}
	tracker := orchestrator.ObserverFuncs{
		Progress: func(current, total int, item models.ImageItem) {
			s.mu.Lock()
			s.progress = Progress{Current: current, Total: total, Filename: item.Filename}
			s.mu.Unlock()
			obs.OnProgress(current, total, item)
		},
		Failure: func(f orchestrator.Failure) {
			s.notify(f.Message())
			obs.OnFailure(f)
		},
		Complete: func(summary orchestrator.Summary) {
			s.mu.Lock()
			s.progress = Progress{}
			s.mu.Unlock()
			obs.OnComplete(summary)
		},
	}

	summary, err := s.orchestrator.Run(ctx, instruction, tracker)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", ErrBusy, err)
	}
	return summary, nil
}

// BeginEdit starts editing the record at index, replacing an edit already
// in progress. It reports false when index does not exist.
func (s *Session) BeginEdit(index int) (bool, error) {
	if err := s.enter(Editing, Idle, Editing); err != nil {
		return false, err
	}
	if !s.store.BeginEdit(index) {
		s.syncEditMode()
		return false, nil
	}
	return true, nil
}

func (s *Session) UpdateEditField(name, value string) bool {
	if s.Mode() != Editing {
		return false
	}
	return s.store.UpdateEditField(name, value)
}

// CommitEdit writes the edit back. It reports false when there was nothing
// to commit or the edited position no longer exists.
func (s *Session) CommitEdit() bool {
	if s.Mode() != Editing {
		return false
	}
	ok := s.store.CommitEdit()
	s.leave(Editing, Idle)
	return ok
}

func (s *Session) CancelEdit() {
	s.store.CancelEdit()
	s.leave(Editing, Idle)
}

// syncEditMode returns to Idle when the record under edit has gone away
func (s *Session) syncEditMode() {
	if _, _, ok := s.store.Editing(); !ok {
		s.leave(Editing, Idle)
	}
}

func (s *Session) AppendBlank() {
	s.store.AppendBlank()
}

func (s *Session) RemoveRecord(index int) bool {
	ok := s.store.RemoveAt(index)
	if ok {
		s.syncEditMode()
	}
	return ok
}

// Lookup resolves query into a new record. When the chemical cannot be
// found the session waits for AddManual or DismissNotFound.
func (s *Session) Lookup(ctx context.Context, query string, mode lookup.Mode) (models.Record, error) {
	if err := s.enter(Searching, Idle); err != nil {
		return models.Record{}, err
	}

	record, err := s.lookup.Lookup(ctx, query, mode)
	if errors.Is(err, lookup.ErrNotFound) {
		s.mu.Lock()
		s.mode = AwaitingManualAdd
		s.pendingQuery = query
		s.mu.Unlock()
		return record, err
	}
	s.leave(Searching, Idle)
	return record, err
}

// AddManual accepts the manual fallback for the last failed lookup
func (s *Session) AddManual() (models.Record, error) {
	s.mu.Lock()
	if s.mode != AwaitingManualAdd {
		s.mu.Unlock()
		return models.Record{}, ErrNoPendingLookup
	}
	query := s.pendingQuery
	s.pendingQuery = ""
	s.mode = Idle
	s.mu.Unlock()

	record := s.lookup.AddManual(query)
	slog.Info("Chemical added manually", "query", query)
	return record, nil
}

// DismissNotFound declines the manual fallback
func (s *Session) DismissNotFound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == AwaitingManualAdd {
		s.mode = Idle
		s.pendingQuery = ""
	}
}

// Clear drops every image, record and pending edit. A running batch keeps
// going but none of its results will land.
func (s *Session) Clear() {
	s.queue.Clear()
	s.store.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Extracting && s.mode != Searching {
		s.mode = Idle
	}
	s.pendingQuery = ""
	s.notices = nil
}

// State is a snapshot of everything a client renders
type State struct {
	Mode         Mode               `json:"mode"`
	Progress     *Progress          `json:"progress,omitempty"`
	Images       []models.ImageItem `json:"images"`
	Columns      []string           `json:"columns"`
	Records      []models.Record    `json:"records"`
	Editing      *EditState         `json:"editing,omitempty"`
	PendingQuery string             `json:"pending_query,omitempty"`
}

// EditState is the pending edit as shown to the user
type EditState struct {
	Index  int           `json:"index"`
	Record models.Record `json:"record"`
}

func (s *Session) State() State {
	snap := s.store.Snapshot()
	state := State{
		Images:  s.queue.Items(),
		Columns: snap.Columns,
		Records: snap.Records,
	}
	if index, scratch, ok := s.store.Editing(); ok {
		state.Editing = &EditState{Index: index, Record: scratch}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state.Mode = s.mode
	if s.mode == Extracting {
		p := s.progress
		state.Progress = &p
	}
	if s.mode == AwaitingManualAdd {
		state.PendingQuery = s.pendingQuery
	}
	return state
}

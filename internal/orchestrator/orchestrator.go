// Package orchestrator drives a batch of queued label images through the
// model one at a time and folds the answers into the record store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/intake"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/parser"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ErrBatchInFlight is returned when Run is called while another batch is running
var ErrBatchInFlight = errors.New("an extraction batch is already running")

// Extractor turns one image into the model's raw text answer
type Extractor interface {
	ExtractFromImage(ctx context.Context, image models.Image, instruction string) (string, error)
}

// Failure describes one image that produced no record
type Failure struct {
	// Index is the 1-based position of the image in the batch
	Index    int
	ItemID   string
	Filename string
	Err      error
}

// Message is the notice shown to the user
func (f Failure) Message() string {
	return fmt.Sprintf("Error extracting data from image %d. Please try again.", f.Index)
}

// Summary is the outcome of one batch
type Summary struct {
	Total     int       `json:"total"`
	Extracted int       `json:"extracted"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Failures  []Failure `json:"-"`
}

// Orchestrator runs extraction batches over a queue
type Orchestrator struct {
	extractor   Extractor
	queue       *intake.Queue
	store       *storage.RecordStore
	concurrency int
	running     atomic.Bool
}

// New builds an Orchestrator. A concurrency below 2 processes images strictly
// one after another.
func New(extractor Extractor, queue *intake.Queue, store *storage.RecordStore, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		extractor:   extractor,
		queue:       queue,
		store:       store,
		concurrency: concurrency,
	}
}

// Running reports whether a batch is in flight
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

type outcome struct {
	item       models.ImageItem
	record     models.Record
	err        error
	dispatched bool
}

// Run extracts every image queued at call time, in queue order. A failing
// image is marked Failed and reported through obs; the batch carries on.
// Records are appended in queue order regardless of concurrency.
func (o *Orchestrator) Run(ctx context.Context, instruction string, obs Observer) (Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Summary{}, ErrBatchInFlight
	}
	defer o.running.Store(false)

	if obs == nil {
		obs = NopObserver{}
	}
	obs = &serialObserver{next: obs}

	items := o.queue.Items()
	n := len(items)
	summary := Summary{Total: n}
	start := time.Now()
	slog.Info("Starting extraction", "images", n, "concurrency", o.concurrency)

	if o.concurrency == 1 {
		for i, item := range items {
			if ctx.Err() != nil {
				summary.Skipped += n - i
				break
			}
			res := o.process(ctx, i, n, item, instruction, obs)
			o.finish(i, res, obs, &summary)
		}
	} else {
		results := make([]outcome, n)
		var g errgroup.Group
		g.SetLimit(o.concurrency)
		for i, item := range items {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				// g.Go may have waited for a free slot past cancellation
				if ctx.Err() != nil {
					results[i] = outcome{item: item}
					return nil
				}
				results[i] = o.process(ctx, i, n, item, instruction, obs)
				return nil
			})
		}
		_ = g.Wait()
		// undispatched slots are zero outcomes and count as skipped
		for i := range results {
			o.finish(i, results[i], obs, &summary)
		}
	}

	slog.Info("Extraction finished",
		"images", n,
		"extracted", summary.Extracted,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"elapsed", time.Since(start))
	obs.OnComplete(summary)
	return summary, nil
}

// process runs one image through the model and the parser without touching
// the store
func (o *Orchestrator) process(ctx context.Context, i, n int, item models.ImageItem, instruction string, obs Observer) outcome {
	res := outcome{item: item}
	if !o.queue.SetStatus(item.ID, models.StatusProcessing) {
		return res
	}
	res.dispatched = true
	obs.OnProgress(i+1, n, item)

	text, err := o.extractor.ExtractFromImage(ctx, item.Image, instruction)
	if err != nil {
		res.err = err
		return res
	}
	record, err := parser.ParseRecord(text)
	if err != nil {
		res.err = err
		return res
	}
	record.SourceImageID = item.ID
	res.record = record
	return res
}

func (o *Orchestrator) finish(i int, res outcome, obs Observer, summary *Summary) {
	if !res.dispatched {
		slog.Debug("Image removed before extraction", "id", res.item.ID)
		summary.Skipped++
		return
	}

	if res.err != nil {
		failure := Failure{Index: i + 1, ItemID: res.item.ID, Filename: res.item.Filename, Err: res.err}
		if !o.queue.Resolve(res.item.ID, models.StatusFailed, nil) {
			summary.Skipped++
			return
		}
		slog.Warn("Extraction failed", "image", i+1, "filename", res.item.Filename, "err", res.err)
		summary.Failed++
		summary.Failures = append(summary.Failures, failure)
		obs.OnFailure(failure)
		return
	}

	appended := o.queue.Resolve(res.item.ID, models.StatusExtracted, func() {
		o.store.Append(res.record)
	})
	if !appended {
		slog.Debug("Discarding result for removed image", "id", res.item.ID)
		summary.Skipped++
		return
	}
	summary.Extracted++
}

// serialObserver keeps observer callbacks from overlapping when images are
// processed in parallel
type serialObserver struct {
	mu   sync.Mutex
	next Observer
}

func (s *serialObserver) OnProgress(current, total int, item models.ImageItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.OnProgress(current, total, item)
}

func (s *serialObserver) OnFailure(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.OnFailure(f)
}

func (s *serialObserver) OnComplete(summary Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.OnComplete(summary)
}

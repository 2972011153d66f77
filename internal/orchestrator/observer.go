package orchestrator

import "github.com/mandirickels/Chemical-Inventory-Creator/internal/models"

// Observer receives batch events. Calls never overlap, even when images are
// processed in parallel.
type Observer interface {
	// OnProgress is called as image current of total is dispatched
	OnProgress(current, total int, item models.ImageItem)
	OnFailure(f Failure)
	OnComplete(summary Summary)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) OnProgress(int, int, models.ImageItem) {}
func (NopObserver) OnFailure(Failure)                     {}
func (NopObserver) OnComplete(Summary)                    {}

// ObserverFuncs adapts plain functions to an Observer; nil funcs are skipped
type ObserverFuncs struct {
	Progress func(current, total int, item models.ImageItem)
	Failure  func(f Failure)
	Complete func(summary Summary)
}

func (o ObserverFuncs) OnProgress(current, total int, item models.ImageItem) {
	if o.Progress != nil {
		o.Progress(current, total, item)
	}
}

func (o ObserverFuncs) OnFailure(f Failure) {
	if o.Failure != nil {
		o.Failure(f)
	}
}

func (o ObserverFuncs) OnComplete(summary Summary) {
	if o.Complete != nil {
		o.Complete(summary)
	}
}

// Package intake owns the list of uploaded label images and their status.
package intake

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
)

// ErrNotImage is returned for payloads whose content is not an image
var ErrNotImage = errors.New("payload is not an image")

// Payload is one raw image as received from a file, upload or URL
type Payload struct {
	Filename  string
	Data      []byte
	MediaType string
}

// NewPayload sniffs the media type of data and rejects anything that is not an image
func NewPayload(filename string, data []byte) (Payload, error) {
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return Payload{}, fmt.Errorf("%s: %w (detected %s)", filename, ErrNotImage, mtype.String())
	}
	return Payload{
		Filename:  filename,
		Data:      data,
		MediaType: mtype.String(),
	}, nil
}

// Queue is the ordered list of images awaiting or past extraction
type Queue struct {
	items []*models.ImageItem
	mu    sync.RWMutex
}

func NewQueue() *Queue {
	return &Queue{}
}

// Add appends each payload as a Pending image and returns the new items
func (q *Queue) Add(payloads ...Payload) []models.ImageItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	added := make([]models.ImageItem, 0, len(payloads))
	for _, p := range payloads {
		mediaType := p.MediaType
		if mediaType == "" {
			mediaType = mimetype.Detect(p.Data).String()
		}
		item := &models.ImageItem{
			ID:       uuid.NewString(),
			Filename: p.Filename,
			Image:    models.Image{Data: p.Data, MediaType: mediaType},
			Size:     len(p.Data),
			Status:   models.StatusPending,
		}
		q.items = append(q.items, item)
		added = append(added, *item)
	}
	return added
}

// Remove deletes the image with the given id
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) Get(id string) (models.ImageItem, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, item := range q.items {
		if item.ID == id {
			return *item, true
		}
	}
	return models.ImageItem{}, false
}

func (q *Queue) Exists(id string) bool {
	_, ok := q.Get(id)
	return ok
}

// SetStatus moves an image to a new status. It reports false when the image is gone.
func (q *Queue) SetStatus(id string, status models.ImageStatus) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID == id {
			item.Status = status
			return true
		}
	}
	return false
}

// Items returns a snapshot of the queue in upload order
func (q *Queue) Items() []models.ImageItem {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]models.ImageItem, len(q.items))
	for i, item := range q.items {
		result[i] = *item
	}
	return result
}

func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Resolve sets the final status of an item and, while the item is known to
// still be queued, runs fn. It reports false without running fn when the
// item has been removed.
func (q *Queue) Resolve(id string, status models.ImageStatus, fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID == id {
			item.Status = status
			if fn != nil {
				fn()
			}
			return true
		}
	}
	return false
}

// RemoveFunc deletes the item and runs fn under the same lock, so nothing
// resolved through Resolve can slip in between
func (q *Queue) RemoveFunc(id string, fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			if fn != nil {
				fn()
			}
			return true
		}
	}
	return false
}

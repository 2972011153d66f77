package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/export"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/extraction"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/session"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
)

// newSession builds a session talking to the configured model, seeded from
// the state file when one exists
func (o *rootOptions) newSession(statePath string) (*session.Session, error) {
	svc, err := extraction.NewService(o.cfg.ExtractionOptions())
	if err != nil {
		return nil, err
	}
	sess := session.New(svc, o.cfg.Concurrency)
	if err := loadState(sess.Store(), statePath); err != nil {
		return nil, err
	}
	return sess, nil
}

func loadState(store *storage.RecordStore, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No state file yet", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open state file: %w", err)
	}
	defer f.Close()

	if err := store.LoadYAML(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Loaded state", "path", path, "records", store.Len())
	return nil
}

func saveState(store *storage.RecordStore, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	if err := store.SaveYAML(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	slog.Debug("Saved state", "path", path, "records", store.Len())
	return nil
}

// finish persists the session and writes the spreadsheet when output is set
func finish(store *storage.RecordStore, statePath, output string) error {
	if err := saveState(store, statePath); err != nil {
		return err
	}
	if output == "" {
		return nil
	}
	if err := export.WriteFile(output, store.Snapshot()); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			slog.Warn("Nothing to export", "output", output)
			return nil
		}
		return err
	}
	slog.Info("Inventory exported", "output", output, "records", store.Len())
	return nil
}

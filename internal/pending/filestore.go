package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"coffee-kiosk/internal/models"
)

const queueFile = "pending_orders.json"

// queueDoc is the on-disk schema. Unknown future fields are ignored on read
// and missing optional fields default, so older binaries can read files
// written by newer ones.
type queueDoc struct {
	Version int                         `json:"version"`
	Records []models.PendingOrderRecord `json:"records"`
}

// FileStore keeps the pending queue in a single JSON file. Every mutation is
// read-modify-write under one mutex and lands via temp file + rename, so a
// crash between any two operations leaves a consistent file behind.
type FileStore struct {
	path string
	mu   sync.Mutex
	log  *zap.Logger
}

func NewFileStore(dir string, log *zap.Logger) *FileStore {
	return &FileStore{path: filepath.Join(dir, queueFile), log: log}
}

func (s *FileStore) Enqueue(_ context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for _, rec := range doc.Records {
		if rec.Order.ID == order.ID {
			return ErrDuplicateOrder
		}
	}
	doc.Records = append(doc.Records, models.PendingOrderRecord{Order: order})
	if err := s.save(doc); err != nil {
		return err
	}
	s.log.Info("order queued",
		zap.String("order_id", order.ID),
		zap.Int("queue_depth", len(doc.Records)),
	)
	return nil
}

func (s *FileStore) ListOrdered(_ context.Context) ([]models.PendingOrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return append([]models.PendingOrderRecord(nil), doc.Records...), nil
}

func (s *FileStore) Remove(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Records[:0]
	for _, rec := range doc.Records {
		if rec.Order.ID != orderID {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(doc.Records) {
		return nil
	}
	doc.Records = kept
	return s.save(doc)
}

func (s *FileStore) RecordAttemptFailure(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Records {
		if doc.Records[i].Order.ID == orderID {
			now := time.Now()
			doc.Records[i].AttemptCount++
			doc.Records[i].LastAttemptAt = &now
			return s.save(doc)
		}
	}
	return nil
}

func (s *FileStore) load() (*queueDoc, error) {
	doc := &queueDoc{Version: 1}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending queue: %w", err)
	}
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("decode pending queue: %w", err)
	}
	return doc, nil
}

func (s *FileStore) save(doc *queueDoc) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending queue: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write pending queue: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace pending queue: %w", err)
	}
	return nil
}

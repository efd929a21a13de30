// Package jsonstore implements promotion.Store as an append-only NDJSON file.
// It exists for environments without a database; queries read the whole file.
package jsonstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glowmart/promogen/internal/promotion"
)

// ensure jsonStore implements promotion.Store
var _ promotion.Store = (*jsonStore)(nil)

type jsonStore struct {
	mu   sync.Mutex
	file *os.File
}

// New creates an NDJSON-backed promotion.Store at filePath.
func New(filePath string) (promotion.Store, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}
	return &jsonStore{file: f}, nil
}

func (s *jsonStore) Save(ctx context.Context, rec *promotion.Record) (*promotion.Record, error) {
	saved := *rec
	saved.ID = uuid.New().String()
	now := time.Now().UTC()
	saved.CreatedAt = now
	saved.UpdatedAt = now

	data, err := json.Marshal(&saved)
	if err != nil {
		return nil, fmt.Errorf("failed to encode promotion: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("failed to append promotion: %w", err)
	}
	return &saved, nil
}

func (s *jsonStore) ByCountry(ctx context.Context, countryCode string) ([]*promotion.Record, error) {
	records, err := s.readAll(func(r *promotion.Record) bool {
		return r.CountryCode == countryCode
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (s *jsonStore) LatestByCountry(ctx context.Context, countryCode string) (*promotion.Record, error) {
	records, err := s.ByCountry(ctx, countryCode)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, promotion.ErrNotFound
	}
	return records[0], nil
}

func (s *jsonStore) ByPlanNo(ctx context.Context, planNo string) (*promotion.Record, error) {
	records, err := s.readAll(func(r *promotion.Record) bool {
		return r.PlanNo == planNo
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, promotion.ErrNotFound
	}
	return records[0], nil
}

func (s *jsonStore) Close() error {
	return s.file.Close()
}

func (s *jsonStore) readAll(keep func(*promotion.Record) bool) ([]*promotion.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek store file: %w", err)
	}
	defer func() {
		// restore append position for writers
		_, _ = s.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(s.file)
	// hero banners are inline data URLs, so lines run to several MB
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	var records []*promotion.Record
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec promotion.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode store line: %w", err)
		}
		if keep(&rec) {
			records = append(records, &rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	return records, nil
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/yourname/inkjournal/internal"
)

type FileStorage struct {
	entries        map[string]*internal.Entry              // id -> Entry
	ownerIndex     map[string][]*internal.Entry            // userID -> entries (sorted ascending)
	insights       map[string]*internal.InsightCacheRecord // ownerKey -> record
	mu             sync.RWMutex
	entriesFile    string
	insightsFile   string
	saveEntriesCh  chan struct{}
	saveInsightsCh chan struct{}
	shutdownChan   chan struct{}
	workers        sync.WaitGroup
	closeOnce      sync.Once
	saveDelay      time.Duration
	logger         internal.Logger
}

func NewFileStorage(entriesFile, insightsFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		entries:        make(map[string]*internal.Entry),
		ownerIndex:     make(map[string][]*internal.Entry),
		insights:       make(map[string]*internal.InsightCacheRecord),
		entriesFile:    entriesFile,
		insightsFile:   insightsFile,
		saveEntriesCh:  make(chan struct{}, 1),
		saveInsightsCh: make(chan struct{}, 1),
		shutdownChan:   make(chan struct{}),
		saveDelay:      500 * time.Millisecond,
		logger:         logger,
	}

	if err := s.loadEntries(); err != nil {
		logger.Errorf("storage: failed to load entries: %v", err)
		return nil, err
	}
	if err := s.loadInsights(); err != nil {
		logger.Errorf("storage: failed to load insight cache: %v", err)
		return nil, err
	}

	s.workers.Add(2)
	go s.saveWorker(s.saveEntriesCh, "entries", s.saveEntries)
	go s.saveWorker(s.saveInsightsCh, "insight cache", s.saveInsights)

	return s, nil
}

// readJSONFile decodes path into v. A missing or empty file leaves v untouched.
func readJSONFile(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func (s *FileStorage) loadEntries() error {
	var entries []*internal.Entry
	if err := readJSONFile(s.entriesFile, &entries); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.ID] = e
		s.ownerIndex[e.UserID] = append(s.ownerIndex[e.UserID], e)
	}
	for userID := range s.ownerIndex {
		sortAscending(s.ownerIndex[userID])
	}
	return nil
}

func (s *FileStorage) loadInsights() error {
	var records []*internal.InsightCacheRecord
	if err := readJSONFile(s.insightsFile, &records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.insights[r.OwnerKey] = r
	}
	return nil
}

func sortAscending(entries []*internal.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) saveEntries() error {
	s.mu.RLock()
	entries := make([]*internal.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sortAscending(entries)
	return atomicWriteFileJSON(s.entriesFile, entries)
}

func (s *FileStorage) saveInsights() error {
	s.mu.RLock()
	records := make([]*internal.InsightCacheRecord, 0, len(s.insights))
	for _, r := range s.insights {
		records = append(records, r)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].OwnerKey < records[j].OwnerKey })
	return atomicWriteFileJSON(s.insightsFile, records)
}

// saveWorker coalesces bursts of writes into one save after saveDelay of quiet.
func (s *FileStorage) saveWorker(trigger <-chan struct{}, what string, save func() error) {
	defer s.workers.Done()
	timer := time.NewTimer(s.saveDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-trigger:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := save(); err != nil {
				s.logger.Errorf("storage: error saving %s: %v", what, err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Close stops the workers, waits for any save in progress, then flushes
// both files synchronously.
func (s *FileStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.shutdownChan)
		s.workers.Wait()
		if e := s.saveEntries(); e != nil {
			err = e
			return
		}
		err = s.saveInsights()
	})
	return err
}

// --- EntryRepository ---
func (s *FileStorage) CreateEntry(ctx context.Context, entry *internal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("storage: entry %s already exists", entry.ID)
	}
	e := *entry
	s.entries[e.ID] = &e
	s.insertIndexed(&e)
	notify(s.saveEntriesCh)
	return nil
}

// insertIndexed keeps the owner's slice ascending. Caller holds mu.
func (s *FileStorage) insertIndexed(e *internal.Entry) {
	list := s.ownerIndex[e.UserID]
	i := sort.Search(len(list), func(i int) bool { return list[i].CreatedAt.After(e.CreatedAt) })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = e
	s.ownerIndex[e.UserID] = list
}

// removeIndexed drops e from its owner's slice. Caller holds mu.
func (s *FileStorage) removeIndexed(e *internal.Entry) {
	list := s.ownerIndex[e.UserID]
	for i, existing := range list {
		if existing.ID == e.ID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.ownerIndex, e.UserID)
		return
	}
	s.ownerIndex[e.UserID] = list
}

func (s *FileStorage) GetEntry(ctx context.Context, id string) (*internal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *e
	return &out, nil
}

func (s *FileStorage) UpdateEntry(ctx context.Context, entry *internal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[entry.ID]
	if !ok {
		return ErrNotFound
	}
	s.removeIndexed(old)
	e := *entry
	s.entries[e.ID] = &e
	s.insertIndexed(&e)
	notify(s.saveEntriesCh)
	return nil
}

func (s *FileStorage) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	s.removeIndexed(e)
	notify(s.saveEntriesCh)
	return nil
}

func (s *FileStorage) FindEntries(ctx context.Context, filter internal.EntryFilter) ([]internal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*internal.Entry
	if filter.OwnerID != "" {
		candidates = s.ownerIndex[filter.OwnerID]
	} else {
		candidates = make([]*internal.Entry, 0, len(s.entries))
		for _, e := range s.entries {
			candidates = append(candidates, e)
		}
		sortAscending(candidates)
	}

	out := make([]internal.Entry, 0)
	for _, e := range candidates {
		if filter.Matches(e) {
			out = append(out, *e)
		}
	}
	return out, nil
}

// --- InsightCacheRepository ---
func (s *FileStorage) GetInsightCache(ctx context.Context, ownerKey string) (*internal.InsightCacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.insights[ownerKey]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (s *FileStorage) PutInsightCache(ctx context.Context, rec *internal.InsightCacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *rec
	s.insights[r.OwnerKey] = &r
	notify(s.saveInsightsCh)
	return nil
}

// --- Compile-time assertions ---
var _ Store = (*FileStorage)(nil)

package receiver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Iron-Ham/invscan/internal/submit"
)

// Submission is one accepted record.
type Submission struct {
	ID             string    `json:"id"`
	ScannedResult  string    `json:"scannedResult"`
	EmploymentID   string    `json:"employmentId"`
	Quantity       string    `json:"quantity"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// Record returns the submitted payload.
func (s Submission) Record() submit.Record {
	return submit.Record{
		ScannedResult: s.ScannedResult,
		EmploymentID:  s.EmploymentID,
		Quantity:      s.Quantity,
	}
}

// Store keeps accepted submissions in memory and, when a journal path is
// set, appends each one to a JSON Lines file. Submissions carrying an
// idempotency key are stored once per key.
type Store struct {
	mu      sync.Mutex
	records []Submission
	byKey   map[string]Submission
	journal *os.File
}

// NewStore creates a Store. A non-empty path is replayed on open so keys
// survive restarts.
func NewStore(path string) (*Store, error) {
	s := &Store{byKey: make(map[string]Submission)}
	if path == "" {
		return s, nil
	}

	if err := s.replay(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	s.journal = f
	return s, nil
}

func (s *Store) replay(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	// No line length cap: an escaped record can be several times the size
	// of the request body.
	r := bufio.NewReader(f)
	line := 0
	for {
		data, err := r.ReadBytes('\n')
		if len(data) > 0 {
			line++
			if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 {
				var sub Submission
				if uerr := json.Unmarshal(trimmed, &sub); uerr != nil {
					return fmt.Errorf("journal %s line %d: %w", path, line, uerr)
				}
				s.index(sub)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("journal %s line %d: %w", path, line+1, err)
		}
	}
}

func (s *Store) index(sub Submission) {
	s.records = append(s.records, sub)
	if sub.IdempotencyKey != "" {
		s.byKey[sub.IdempotencyKey] = sub
	}
}

// Add stores sub unless its idempotency key was seen before, in which case
// the original submission is returned with replayed set.
func (s *Store) Add(_ context.Context, sub Submission) (stored Submission, replayed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.IdempotencyKey != "" {
		if prev, ok := s.byKey[sub.IdempotencyKey]; ok {
			return prev, true, nil
		}
	}

	if s.journal != nil {
		data, err := json.Marshal(sub)
		if err != nil {
			return Submission{}, false, fmt.Errorf("failed to encode submission: %w", err)
		}
		if _, err := s.journal.Write(append(data, '\n')); err != nil {
			return Submission{}, false, fmt.Errorf("failed to append to journal: %w", err)
		}
	}

	s.index(sub)
	return sub, false, nil
}

// List returns a copy of every stored submission in arrival order.
func (s *Store) List(_ context.Context) []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Submission, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored submissions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close closes the journal.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return nil
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}

package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Journal record states.
const (
	RecordStatePending   = "PENDING"
	RecordStateConfirmed = "CONFIRMED"
	RecordStateFailed    = "FAILED"
)

// Record is one journaled publish attempt. Pending records left behind by
// a crash show which submissions were in flight.
type Record struct {
	ID        string            `json:"id"`
	Contract  string            `json:"contract"`
	Method    string            `json:"method"`
	Args      map[string]string `json:"args,omitempty"`
	State     string            `json:"state"`
	TxHash    string            `json:"tx_hash,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Journal keeps one JSON file per publish attempt under a local directory.
type Journal struct {
	dir string
}

// NewJournal creates a journal under ~/.adforge/journal.
func NewJournal() *Journal {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Journal{dir: filepath.Join(homeDir, ".adforge", "journal")}
}

// NewJournalWithDir creates a journal in a custom directory.
func NewJournalWithDir(dir string) *Journal {
	return &Journal{dir: dir}
}

func (j *Journal) path(id string) string {
	return filepath.Join(j.dir, id+".json")
}

func (j *Journal) ensureDir() error {
	return os.MkdirAll(j.dir, 0700)
}

// Open starts a pending record for a submission and persists it before the
// transaction leaves the process.
func (j *Journal) Open(contract, method string, args map[string]string) (*Record, error) {
	rec := &Record{
		ID:        uuid.NewString(),
		Contract:  contract,
		Method:    method,
		Args:      args,
		State:     RecordStatePending,
		CreatedAt: time.Now().UTC(),
	}
	if err := j.Save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Save writes a record atomically.
func (j *Journal) Save(rec *Record) error {
	if err := j.ensureDir(); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	rec.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal record: %w", err)
	}

	path := j.path(rec.ID)

	// Write atomically using temp file + rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename journal temp file: %w", err)
	}
	return nil
}

// Load reads one record. Returns (nil, nil) when it does not exist.
func (j *Journal) Load(id string) (*Record, error) {
	data, err := os.ReadFile(j.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse journal record: %w", err)
	}
	return &rec, nil
}

// List returns every record in the journal.
func (j *Journal) List() ([]*Record, error) {
	if err := j.ensureDir(); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		rec, err := j.Load(entry.Name()[:len(entry.Name())-5])
		if err != nil {
			continue // Skip invalid entries
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// CleanupOld removes records older than maxAge and reports how many were
// deleted.
func (j *Journal) CleanupOld(maxAge time.Duration) (int, error) {
	records, err := j.List()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	deleted := 0
	for _, rec := range records {
		if now.Sub(rec.UpdatedAt) > maxAge {
			if err := os.Remove(j.path(rec.ID)); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

// JournalingCaller wraps a ContractCaller so every submission leaves an
// auditable record: pending before the send, confirmed or failed after.
// Journal write failures never block a submission.
type JournalingCaller struct {
	caller  ContractCaller
	journal *Journal
}

// NewJournalingCaller wraps caller with the journal.
func NewJournalingCaller(caller ContractCaller, journal *Journal) *JournalingCaller {
	return &JournalingCaller{caller: caller, journal: journal}
}

func (c *JournalingCaller) SubmitCall(ctx context.Context, contract string, method string, fns []Function, args map[string]string) (*Receipt, error) {
	rec, jerr := c.journal.Open(contract, method, args)

	receipt, err := c.caller.SubmitCall(ctx, contract, method, fns, args)

	if jerr == nil && rec != nil {
		if err != nil {
			rec.State = RecordStateFailed
			rec.Error = err.Error()
		} else {
			rec.State = RecordStateConfirmed
			if receipt != nil {
				rec.TxHash = receipt.TxHash
			}
		}
		c.journal.Save(rec)
	}

	return receipt, err
}

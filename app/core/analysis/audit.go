package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	StageHealth   = "health"
	StageTriage   = "triage"
	StageReplicas = "replicas"
	StageGate     = "gate"
)

type auditRecord struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Stage     string `json:"stage"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
}

// Trail appends one JSON line per analysis decision to a dated file so
// rollback and scale recommendations stay reviewable after the fact.
type Trail struct {
	basePath string
	mu       sync.Mutex
	now      func() time.Time
}

func NewTrail(basePath string) *Trail {
	return &Trail{basePath: basePath, now: time.Now}
}

func (t *Trail) Append(stage, decision, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	record := auditRecord{
		ID:        uuid.NewString(),
		Timestamp: now.Format(time.RFC3339),
		Stage:     stage,
		Decision:  decision,
		Reason:    reason,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	if err := os.MkdirAll(t.basePath, 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	path := filepath.Join(t.basePath, fmt.Sprintf("audit_%s.jsonl", now.Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

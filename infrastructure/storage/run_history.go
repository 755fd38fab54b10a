package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ErrCorruptHistory is returned when the history file cannot be decoded
var ErrCorruptHistory = errors.New("corrupt history file")

type runHistory struct {
	mu          sync.Mutex
	historyPath string
	limit       int
	logger      *logrus.Logger
}

// DefaultHistoryLimit is the number of runs kept in the history file
const DefaultHistoryLimit = 200

// NewRunHistory - creates run history stored at historyPath
func NewRunHistory(historyPath string, logger *logrus.Logger) (interfaces.Storage, error) {
	if err := os.MkdirAll(filepath.Dir(historyPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &runHistory{
		historyPath: historyPath,
		limit:       DefaultHistoryLimit,
		logger:      logger,
	}, nil
}

// SaveRun - appends a run record, dropping the oldest beyond the limit.
// A corrupt history file is moved aside and a fresh history started.
func (s *runHistory) SaveRun(record entities.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.load()
	if errors.Is(err, ErrCorruptHistory) {
		history, err = nil, s.quarantine(err)
	}
	if err != nil {
		return err
	}
	history = append(history, record)
	if len(history) > s.limit {
		history = history[len(history)-s.limit:]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.historyPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.historyPath)
}

// LoadHistory - loads saved runs, oldest first
func (s *runHistory) LoadHistory() ([]entities.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *runHistory) load() ([]entities.RunRecord, error) {
	data, err := os.ReadFile(s.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []entities.RunRecord{}, nil
		}
		return nil, err
	}

	var history []entities.RunRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptHistory, s.historyPath, err)
	}
	return history, nil
}

// quarantine renames the unreadable history file to <path>.corrupt
func (s *runHistory) quarantine(cause error) error {
	aside := s.historyPath + ".corrupt"
	if err := os.Rename(s.historyPath, aside); err != nil {
		return fmt.Errorf("failed to move corrupt history aside: %w", err)
	}
	s.logger.Warnf("%v; moved to %s, starting a new history", cause, aside)
	return nil
}

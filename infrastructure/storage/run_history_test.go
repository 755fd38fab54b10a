package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cartbot/domain/entities"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func record(i int) entities.RunRecord {
	return entities.RunRecord{
		RunID:     fmt.Sprintf("run-%d", i),
		Command:   "search mug on shop",
		Website:   "https://shop.example",
		Search:    "mug",
		Status:    entities.StatusCompleted,
		Stage:     entities.StageDone,
		Timestamp: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
	}
}

func TestRunHistory_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	h, err := NewRunHistory(path, newTestLogger())
	require.NoError(t, err)

	history, err := h.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, history)

	failed := record(2)
	failed.Status = entities.StatusNotFound
	failed.Failed = entities.StepLocateProduct
	failed.Detail = "No product found"

	require.NoError(t, h.SaveRun(record(1)))
	require.NoError(t, h.SaveRun(failed))

	// a second instance reads what the first wrote
	reopened, err := NewRunHistory(path, newTestLogger())
	require.NoError(t, err)
	history, err = reopened.LoadHistory()
	require.NoError(t, err)
	if diff := cmp.Diff([]entities.RunRecord{record(1), failed}, history); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRunHistory_Limit(t *testing.T) {
	h := &runHistory{historyPath: filepath.Join(t.TempDir(), "history.json"), limit: 3, logger: newTestLogger()}

	for i := 0; i < 5; i++ {
		require.NoError(t, h.SaveRun(record(i)))
	}

	history, err := h.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "run-2", history[0].RunID)
	assert.Equal(t, "run-4", history[2].RunID)
}

func TestRunHistory_CorruptFileMovedAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	h, err := NewRunHistory(path, newTestLogger())
	require.NoError(t, err)

	_, err = h.LoadHistory()
	assert.ErrorIs(t, err, ErrCorruptHistory)

	require.NoError(t, h.SaveRun(record(1)))
	require.NoError(t, h.SaveRun(record(2)))

	history, err := h.LoadHistory()
	require.NoError(t, err)
	if diff := cmp.Diff([]entities.RunRecord{record(1), record(2)}, history); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	aside, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(aside))
}

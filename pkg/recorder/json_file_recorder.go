package recorder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Entry JSON Lines 中的一行
type Entry struct {
	RunID      string    `json:"run_id"`
	BotIndex   int       `json:"bot_index"`
	RecordedAt time.Time `json:"recorded_at"`
	Data       any       `json:"data"`
}

// JSONFileRecorder 每个运行一个 .jsonl 文件，追加写入
type JSONFileRecorder struct {
	Dir string
	mu  sync.Mutex
}

func NewJSONFileRecorder(dir string) *JSONFileRecorder {
	return &JSONFileRecorder{Dir: dir}
}

// Path 运行对应的文件路径
func (r *JSONFileRecorder) Path(runID string) string {
	return filepath.Join(r.Dir, runID+".jsonl")
}

// Append 追加若干条记录，同一次调用的记录连续写入
func (r *JSONFileRecorder) Append(runID string, botIndex int, items ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("recorder: mkdir: %w", err)
	}
	file, err := os.OpenFile(r.Path(runID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("recorder: open: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	now := time.Now().UTC()
	for _, item := range items {
		data, err := json.Marshal(Entry{RunID: runID, BotIndex: botIndex, RecordedAt: now, Data: item})
		if err != nil {
			return fmt.Errorf("recorder: marshal: %w", err)
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return w.Flush()
}

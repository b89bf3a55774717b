package service

import (
	"gridflow/internal/model"
	"gridflow/pkg/recorder"
)

// SnapshotRecorder 把每个配置的快照流追加到 <dir>/<run_id>.jsonl
type SnapshotRecorder struct {
	rec *recorder.JSONFileRecorder
}

func NewSnapshotRecorder(dir string) *SnapshotRecorder {
	return &SnapshotRecorder{rec: recorder.NewJSONFileRecorder(dir)}
}

func (r *SnapshotRecorder) Record(runID string, botIndex int, snaps []model.Snapshot) error {
	items := make([]any, len(snaps))
	for i := range snaps {
		items[i] = snaps[i]
	}
	return r.rec.Append(runID, botIndex, items...)
}

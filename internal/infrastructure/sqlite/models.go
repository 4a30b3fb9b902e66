package sqlite

import (
	"bytes"
	"fmt"
	"time"

	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/fragment"
)

// payloadFormat is the fragment encoding used for stored module payloads.
const payloadFormat = fragment.FormatMsgpack

// SnapshotModel represents a row of the snapshots table.
type SnapshotModel struct {
	ID          int64
	BuildID     string
	ModuleCount int
	CreatedAt   int64 // Unix timestamp
}

// ModuleModel represents a row of the snapshot_modules table.
type ModuleModel struct {
	ID          int64
	SnapshotID  int64
	Position    int
	Name        string
	RecordCount int
	Payload     []byte // msgpack-encoded fragment
}

// toModuleModel encodes a module index for storage.
func toModuleModel(snapshotID int64, position int, idx implementors.ModuleIndex, buildID string) (*ModuleModel, error) {
	var buf bytes.Buffer
	if err := fragment.Encode(&buf, payloadFormat, idx, buildID); err != nil {
		return nil, fmt.Errorf("failed to encode module %s: %w", idx.Name(), err)
	}
	return &ModuleModel{
		SnapshotID:  snapshotID,
		Position:    position,
		Name:        idx.Name(),
		RecordCount: idx.Len(),
		Payload:     buf.Bytes(),
	}, nil
}

// toDomain decodes the stored payload back into a module index.
func (m *ModuleModel) toDomain() (implementors.ModuleIndex, error) {
	idx, _, err := fragment.Decode(bytes.NewReader(m.Payload), payloadFormat)
	if err != nil {
		return implementors.ModuleIndex{}, fmt.Errorf("failed to decode module %s: %w", m.Name, err)
	}
	return idx, nil
}

func (m *SnapshotModel) toSummary() SnapshotSummary {
	return SnapshotSummary{
		BuildID:     m.BuildID,
		ModuleCount: m.ModuleCount,
		CreatedAt:   time.Unix(m.CreatedAt, 0),
	}
}

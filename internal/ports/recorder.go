package ports

import (
	"context"

	"github.com/ghalamif/simlink/internal/domain"
)

// Recorder persists published snapshots off the hot path. Record never blocks;
// it reports false when the snapshot was dropped.
type Recorder interface {
	Start(ctx context.Context) error
	Record(s domain.Snapshot) bool
	Stop(ctx context.Context) error
	Name() string
}

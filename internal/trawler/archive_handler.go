package trawler

import (
	"context"
	"time"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/storage"
)

// ArchiveHandler appends every trawled page to the order history
// archive, stamped with the cycle start time so one cycle's rows group
// together downstream.
type ArchiveHandler struct {
	BaseHandler
	archive    storage.OrderArchive
	now        func() time.Time
	cycleStart time.Time
}

// NewArchiveHandler creates a handler appending to archive.
func NewArchiveHandler(archive storage.OrderArchive) *ArchiveHandler {
	return &ArchiveHandler{archive: archive, now: time.Now}
}

// Compile-time interface check.
var _ Handler = (*ArchiveHandler)(nil)

func (h *ArchiveHandler) StartTrawl(context.Context) error {
	h.cycleStart = h.now().UTC()
	return nil
}

func (h *ArchiveHandler) Orders(ctx context.Context, orders []domain.MarketOrder) error {
	return h.archive.AppendBatch(ctx, h.cycleStart, orders)
}

package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/openplag/internal/core/ports"
)

// WarmCacheUseCase embeds archived entries ahead of time through a caching embedder.
type WarmCacheUseCase struct {
	store    ports.ArchiveStore
	embedder ports.Embedder
}

func NewWarmCacheUseCase(store ports.ArchiveStore, embedder ports.Embedder) *WarmCacheUseCase {
	return &WarmCacheUseCase{store: store, embedder: embedder}
}

func (uc *WarmCacheUseCase) WarmEntry(ctx context.Context, entryID string) error {
	entry, err := uc.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("fetch archive entry: %w", err)
	}
	if entry.Content == "" {
		return nil
	}
	if _, err := uc.embedder.Embed(ctx, entry.Content); err != nil {
		return fmt.Errorf("embed archive entry: %w", err)
	}
	return nil
}

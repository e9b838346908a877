package service

import (
	"context"
	"errors"
	"fmt"

	"civitai/harvester/internal/client"
	"civitai/harvester/internal/domain"
	"civitai/harvester/internal/state"

	log "github.com/sirupsen/logrus"
)

// WalkOptions controls one crawl.
type WalkOptions struct {
	Params domain.PageParams
	Depth  int
	Resume bool
}

// WalkResult summarizes a crawl.
type WalkResult struct {
	Pages      int
	Items      int
	Failures   int
	LastCursor string
	// Finished is set when the catalog reported no further cursor.
	Finished bool
}

// Walker drives the catalog client from cursor to cursor.
type Walker struct {
	client       client.CivitaiClient
	stateManager state.StateManager
	maxFailures  int
}

func NewWalker(client client.CivitaiClient, stateManager state.StateManager, maxConsecutiveFailures int) *Walker {
	if maxConsecutiveFailures <= 0 {
		maxConsecutiveFailures = 1
	}
	return &Walker{
		client:       client,
		stateManager: stateManager,
		maxFailures:  maxConsecutiveFailures,
	}
}

// Walk fetches up to opts.Depth pages. A failed page keeps the cursor and
// is retried on the next iteration; the walk aborts once maxFailures
// failures happen in a row.
func (w *Walker) Walk(ctx context.Context, opts WalkOptions) (*WalkResult, error) {
	if opts.Depth <= 0 {
		return nil, fmt.Errorf("%w: depth must be positive, got %d", domain.ErrInvalidParams, opts.Depth)
	}

	walkKey := opts.Params.Key()
	result := &WalkResult{}

	cursor := ""
	if opts.Resume {
		saved, err := w.stateManager.GetCursor(ctx, walkKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load saved cursor: %w", err)
		}
		if saved != "" {
			log.Infof("🔄 Continue from cursor %s", saved)
		}
		cursor = saved
	}

	consecutive := 0
	for i := 0; i < opts.Depth; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fetched, err := w.client.FetchPage(ctx, cursor, opts.Params)
		if fetched != nil {
			result.Pages++
			result.Items += fetched.Items
		}

		switch {
		case errors.Is(err, domain.ErrEndOfStream):
			log.Info("✅ Cursor not found, crawl done")
			result.Finished = true
			result.LastCursor = cursor
			if err := w.stateManager.Clear(ctx, walkKey); err != nil {
				log.Warnf("⚠️ Failed to clear saved cursor: %v", err)
			}
			return result, nil

		case err != nil:
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failures++
			consecutive++
			log.Errorf("❌ Error fetching cursor %q (%d/%d): %v", cursor, consecutive, w.maxFailures, err)
			if consecutive >= w.maxFailures {
				result.LastCursor = cursor
				return result, fmt.Errorf("walk stalled at cursor %q after %d consecutive failures: %w", cursor, consecutive, err)
			}
			continue
		}

		consecutive = 0
		cursor = fetched.NextCursor
		result.LastCursor = cursor

		if err := w.stateManager.SetCursor(ctx, walkKey, cursor); err != nil {
			log.Warnf("⚠️ Failed to save cursor %s: %v", cursor, err)
		}
	}

	log.Infof("✅ Reached depth %d: %d pages, %d items", opts.Depth, result.Pages, result.Items)
	return result, nil
}

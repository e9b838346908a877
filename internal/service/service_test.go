package service

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"civitai/harvester/internal/client"
	"civitai/harvester/internal/domain"
	"civitai/harvester/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	next  string
	items int
	err   error
}

// scriptedClient replays steps and records the cursors it was asked for.
type scriptedClient struct {
	steps   []step
	cursors []string
}

func (c *scriptedClient) FetchPage(_ context.Context, cursor string, _ domain.PageParams) (*client.FetchResult, error) {
	c.cursors = append(c.cursors, cursor)
	if len(c.steps) == 0 {
		return &client.FetchResult{Cursor: cursor}, domain.ErrEndOfStream
	}
	s := c.steps[0]
	c.steps = c.steps[1:]

	switch {
	case s.err == domain.ErrEndOfStream:
		return &client.FetchResult{Cursor: cursor, Items: s.items}, s.err
	case s.err != nil:
		return nil, s.err
	}
	return &client.FetchResult{Cursor: cursor, NextCursor: s.next, Items: s.items}, nil
}

var params = domain.PageParams{Limit: 100}

func TestWalkStopsAtDepth(t *testing.T) {
	c := &scriptedClient{steps: []step{{next: "a", items: 2}, {next: "b", items: 2}, {next: "c", items: 2}}}
	w := NewWalker(c, state.NewNoopStateManager(), 3)

	res, err := w.Walk(context.Background(), WalkOptions{Params: params, Depth: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "a"}, c.cursors)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 4, res.Items)
	assert.Equal(t, "b", res.LastCursor)
	assert.False(t, res.Finished)
}

func TestWalkStopsAtEndOfStream(t *testing.T) {
	c := &scriptedClient{steps: []step{{next: "a", items: 1}, {items: 1, err: domain.ErrEndOfStream}, {next: "never"}}}
	w := NewWalker(c, state.NewNoopStateManager(), 3)

	res, err := w.Walk(context.Background(), WalkOptions{Params: params, Depth: 10})
	require.NoError(t, err)

	assert.True(t, res.Finished)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []string{"", "a"}, c.cursors)
}

func TestWalkRetriesSameCursorAfterTransportError(t *testing.T) {
	transport := &domain.TransportError{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}
	c := &scriptedClient{steps: []step{{next: "a"}, {err: transport}, {next: "b"}}}
	w := NewWalker(c, state.NewNoopStateManager(), 3)

	res, err := w.Walk(context.Background(), WalkOptions{Params: params, Depth: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "a", "a"}, c.cursors)
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, "b", res.LastCursor)
}

func TestWalkAbortsAfterConsecutiveFailures(t *testing.T) {
	transport := &domain.TransportError{StatusCode: http.StatusServiceUnavailable}
	c := &scriptedClient{steps: []step{{next: "a"}, {err: transport}, {err: transport}, {next: "b"}}}
	w := NewWalker(c, state.NewNoopStateManager(), 2)

	res, err := w.Walk(context.Background(), WalkOptions{Params: params, Depth: 10})
	require.Error(t, err)

	var terr *domain.TransportError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, 2, res.Failures)
	assert.Equal(t, "a", res.LastCursor)
	assert.Equal(t, []string{"", "a", "a"}, c.cursors)
}

func TestWalkResumesFromSavedCursor(t *testing.T) {
	ctx := context.Background()
	sm := state.NewFileStateManager(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, sm.SetCursor(ctx, params.Key(), "saved"))

	c := &scriptedClient{steps: []step{{next: "n1"}, {next: "n2"}}}
	w := NewWalker(c, sm, 3)

	_, err := w.Walk(ctx, WalkOptions{Params: params, Depth: 2, Resume: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"saved", "n1"}, c.cursors)

	cursor, err := sm.GetCursor(ctx, params.Key())
	require.NoError(t, err)
	assert.Equal(t, "n2", cursor)
}

func TestWalkWithoutResumeIgnoresSavedCursor(t *testing.T) {
	ctx := context.Background()
	sm := state.NewFileStateManager(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, sm.SetCursor(ctx, params.Key(), "saved"))

	c := &scriptedClient{steps: []step{{items: 1, err: domain.ErrEndOfStream}}}
	w := NewWalker(c, sm, 3)

	_, err := w.Walk(ctx, WalkOptions{Params: params, Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, c.cursors)

	cursor, err := sm.GetCursor(ctx, params.Key())
	require.NoError(t, err)
	assert.Empty(t, cursor, "end of stream clears the saved cursor")
}

func TestWalkRejectsNonPositiveDepth(t *testing.T) {
	w := NewWalker(&scriptedClient{}, state.NewNoopStateManager(), 3)

	_, err := w.Walk(context.Background(), WalkOptions{Params: params, Depth: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestWalkHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &scriptedClient{}
	w := NewWalker(c, state.NewNoopStateManager(), 3)

	_, err := w.Walk(ctx, WalkOptions{Params: params, Depth: 3})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.cursors)
}

// Package curator steps an operator through harvested images one at a time
// and lets them copy the ones worth keeping into the selection file.
package curator

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"civitai/harvester/internal/domain"
	"civitai/harvester/internal/repository"

	"github.com/dustin/go-humanize"
)

type SortKey string

const (
	SortLikeScore SortKey = "likeScore"
	SortCreatedAt SortKey = "createdAt"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortLikeScore, SortCreatedAt:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort column %q (want %s or %s)", s, SortLikeScore, SortCreatedAt)
}

// Sort orders items descending by key. Ties keep their load order.
func Sort(items []domain.Item, key SortKey) {
	switch key {
	case SortCreatedAt:
		slices.SortStableFunc(items, func(a, b domain.Item) int {
			return b.Created().Compare(a.Created())
		})
	default:
		slices.SortStableFunc(items, func(a, b domain.Item) int {
			return cmp.Compare(b.LikeScore(), a.LikeScore())
		})
	}
}

type State int

const (
	StateListing State = iota
	StateDisplaying
	StateAwaitingCommand
	StateSaving
	StateDone
)

func (s State) String() string {
	switch s {
	case StateListing:
		return "listing"
	case StateDisplaying:
		return "displaying"
	case StateAwaitingCommand:
		return "awaiting-command"
	case StateSaving:
		return "saving"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Command int

const (
	CommandNone Command = iota
	CommandNext
	CommandPrev
	CommandSave
	CommandQuit
)

// ParseCommand maps a key name to a command. Unknown keys are CommandNone.
func ParseCommand(key string) Command {
	switch key {
	case "a", "l", "right":
		return CommandNext
	case "q", "h", "left":
		return CommandPrev
	case "d", "s":
		return CommandSave
	case "p", "esc", "ctrl+c":
		return CommandQuit
	}
	return CommandNone
}

var ErrNoItems = errors.New("no items to curate")

// Session is the browsing state machine: Listing until Start, then
// Displaying and AwaitingCommand per item, Saving while the selection file
// is written, and Done after Quit.
type Session struct {
	items []domain.Item
	store repository.SelectionStore

	index    int
	state    State
	selected int
	lastErr  error
}

func NewSession(items []domain.Item, store repository.SelectionStore) *Session {
	return &Session{
		items: items,
		store: store,
		state: StateListing,
	}
}

// Start moves to the first item.
func (s *Session) Start() error {
	if s.state != StateListing {
		return nil
	}
	if len(s.items) == 0 {
		s.state = StateDone
		return ErrNoItems
	}
	s.state = StateDisplaying
	return nil
}

// Displayed marks the current item as on screen.
func (s *Session) Displayed() {
	if s.state == StateDisplaying {
		s.state = StateAwaitingCommand
	}
}

// Apply runs one operator command. Only Save can fail; the session then
// stays on the same item awaiting the next command.
func (s *Session) Apply(cmd Command) error {
	if s.state == StateListing || s.state == StateDone {
		return nil
	}

	switch cmd {
	case CommandNext:
		s.move(1)
	case CommandPrev:
		s.move(-1)
	case CommandSave:
		prev := s.state
		s.state = StateSaving
		n, err := s.store.Append(s.items[s.index])
		if err != nil {
			s.lastErr = fmt.Errorf("failed to save item %d: %w", s.items[s.index].ID, err)
			s.state = StateAwaitingCommand
			return s.lastErr
		}
		s.selected = n
		s.lastErr = nil
		s.state = prev
		s.move(1)
	case CommandQuit:
		s.state = StateDone
	}
	return nil
}

func (s *Session) move(delta int) {
	next := min(max(s.index+delta, 0), len(s.items)-1)
	if next != s.index {
		s.index = next
		s.state = StateDisplaying
	}
}

func (s *Session) State() State { return s.state }

func (s *Session) Done() bool { return s.state == StateDone }

func (s *Session) Index() int { return s.index }

func (s *Session) Total() int { return len(s.items) }

func (s *Session) Current() domain.Item { return s.items[s.index] }

// Selected is the size of the selection file after the last successful save.
func (s *Session) Selected() int { return s.selected }

func (s *Session) Err() error { return s.lastErr }

// InfoLines is the text panel shown under an item's image.
func InfoLines(item domain.Item, index, total, promptLen int) []string {
	resources, civitaiResources := 0, 0
	prompt, negative := "N/A", "N/A"
	if item.Meta != nil {
		resources = len(item.Meta.Resources)
		civitaiResources = len(item.Meta.CivitaiResources)
		prompt = truncate(item.Meta.Prompt, promptLen)
		negative = truncate(item.Meta.NegativePrompt, promptLen)
	}

	return []string{
		fmt.Sprintf("Index: %d/%d", index+1, total),
		fmt.Sprintf("ID: %d", item.ID),
		fmt.Sprintf("NSFW: %s", item.NSFWLevel.OrDefault("-")),
		fmt.Sprintf("Like: %s", humanize.Comma(item.LikeScore())),
		fmt.Sprintf("Base model: %s", item.BaseModel.OrDefault("N/A")),
		fmt.Sprintf("Resources: %d", resources),
		fmt.Sprintf("Civitai resources: %d", civitaiResources),
		fmt.Sprintf("pp: %s", prompt),
		fmt.Sprintf("nn: %s", negative),
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

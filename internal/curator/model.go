package curator

import (
	"context"
	"fmt"
	"image"

	"civitai/harvester/internal/client"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
)

const helpText = "a/→ next • q/← prev • d save • p quit"

type Options struct {
	DisplayHeight int
	PromptLength  int
}

// imageMsg carries a fetched image back to the model. index guards against
// results that arrive after the operator moved on.
type imageMsg struct {
	index int
	img   image.Image
	err   error
}

// Model is the bubbletea front end of a Session.
type Model struct {
	ctx     context.Context
	session *Session
	fetcher client.ImageFetcher
	opts    Options

	width    int
	img      image.Image
	rendered string
	status   string
}

func NewModel(ctx context.Context, session *Session, fetcher client.ImageFetcher, opts Options) *Model {
	return &Model{
		ctx:     ctx,
		session: session,
		fetcher: fetcher,
		opts:    opts,
	}
}

func (m *Model) Init() tea.Cmd {
	if err := m.session.Start(); err != nil {
		log.Warnf("⚠️ %v", err)
		return tea.Quit
	}
	return m.load()
}

func (m *Model) load() tea.Cmd {
	index := m.session.Index()
	url := m.session.Current().URL
	m.img = nil
	m.rendered = "loading…"

	return func() tea.Msg {
		img, err := m.fetcher.Fetch(m.ctx, url)
		return imageMsg{index: index, img: img, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.img != nil {
			m.render()
		}
		return m, nil

	case imageMsg:
		if msg.index != m.session.Index() {
			return m, nil
		}
		if msg.err != nil {
			log.WithField("id", m.session.Current().ID).Warnf("⚠️ Image unavailable: %v", msg.err)
		}
		m.img = msg.img
		m.render()
		m.session.Displayed()
		return m, nil

	case tea.KeyMsg:
		before := m.session.Index()
		cmd := ParseCommand(msg.String())
		if err := m.session.Apply(cmd); err != nil {
			log.WithField("id", m.session.Current().ID).Errorf("❌ %v", err)
			m.status = err.Error()
			return m, nil
		}
		if m.session.Done() {
			return m, tea.Quit
		}
		if cmd == CommandSave {
			m.status = fmt.Sprintf("Saved (%d selected)", m.session.Selected())
		} else if cmd != CommandNone {
			m.status = ""
		}
		if m.session.Index() != before {
			return m, m.load()
		}
	}
	return m, nil
}

// render redraws the current image. A failure is logged with the item id and
// leaves the panel and commands usable.
func (m *Model) render() {
	item := m.session.Current()
	out, err := RenderImage(m.img, m.opts.DisplayHeight, m.width)
	if err != nil {
		log.WithField("id", item.ID).Errorf("❌ Failed to render image: %v", err)
		m.rendered = fmt.Sprintf("ID %d: %v", item.ID, err)
		return
	}
	m.rendered = out
}

func (m *Model) View() string {
	if m.session.Done() || m.session.Total() == 0 {
		return ""
	}

	info := InfoLines(m.session.Current(), m.session.Index(), m.session.Total(), m.opts.PromptLength)
	parts := []string{m.rendered, RenderPanel(info, m.width)}
	if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	}
	parts = append(parts, helpStyle.Render(helpText))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Run drives the session in the terminal until the operator quits.
func Run(ctx context.Context, session *Session, fetcher client.ImageFetcher, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, session, fetcher, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("curator failed: %w", err)
	}
	return nil
}

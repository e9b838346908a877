package analysis

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"civitai/harvester/internal/histogram"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const previewRows = 5

type explorerState int

const (
	stateListing explorerState = iota
	stateAwaitingThreshold
	stateDone
)

// Explorer is the interactive loop over the frequency tables: pick a table,
// inspect it, optionally filter by a minimum count, repeat until exit.
type Explorer struct {
	tables []*FrequencyTable
	bins   int
	width  int

	state    explorerState
	selected *FrequencyTable
}

func NewExplorer(tables *Tables, bins, width int) *Explorer {
	return &Explorer{
		tables: tables.Ordered(),
		bins:   bins,
		width:  width,
	}
}

// Done reports whether the operator chose to exit.
func (e *Explorer) Done() bool {
	return e.state == stateDone
}

// Prompt is the question for the current state.
func (e *Explorer) Prompt() string {
	switch e.state {
	case stateListing:
		return "Select a number: "
	case stateAwaitingThreshold:
		return "Minimum count to show (integer, empty for all): "
	default:
		return ""
	}
}

// Menu renders the table choices plus the exit entry.
func (e *Explorer) Menu() string {
	var b strings.Builder
	b.WriteString("\n=== Select a table ===\n")
	for i, t := range e.tables {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t.Name)
	}
	fmt.Fprintf(&b, "%d. exit\n", len(e.tables)+1)
	return b.String()
}

// Handle applies one line of operator input and writes the resulting view.
// Invalid input leaves the state unchanged.
func (e *Explorer) Handle(w io.Writer, line string) error {
	line = strings.TrimSpace(line)

	switch e.state {
	case stateListing:
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(e.tables)+1 {
			_, err := fmt.Fprintln(w, "Invalid input, please choose again.")
			return err
		}
		if n == len(e.tables)+1 {
			e.state = stateDone
			_, err := fmt.Fprintln(w, "Exiting.")
			return err
		}
		e.selected = e.tables[n-1]
		e.state = stateAwaitingThreshold
		return e.display(w)

	case stateAwaitingThreshold:
		threshold := 0
		label := "all"
		if line != "" {
			n, err := strconv.Atoi(line)
			if err != nil || n < 0 {
				_, err := fmt.Fprintln(w, "Invalid input, please enter again.")
				return err
			}
			threshold = n
			label = strconv.Itoa(n)
		}
		fmt.Fprintf(w, "\n[%s] count >= %s:\n", e.selected.Name, label)
		fmt.Fprintln(w, RenderRows(e.selected.Column, e.selected.Filter(threshold)))
		fmt.Fprintln(w, "\nDone. Select a table again.")
		e.selected = nil
		e.state = stateListing
		_, err := io.WriteString(w, e.Menu())
		return err
	}

	return nil
}

func (e *Explorer) display(w io.Writer) error {
	t := e.selected

	fmt.Fprintf(w, "\n--- %s counter ---\n", t.Name)
	fmt.Fprintln(w, FormatCounter(t.MostCommon()))

	rows := t.Rows()
	if len(rows) > previewRows {
		rows = rows[:previewRows]
	}
	fmt.Fprintf(w, "\n--- %s preview (%d rows) ---\n", t.Name, t.Len())
	fmt.Fprintln(w, RenderRows(t.Column, rows))

	return histogram.Render(w, histogram.Ints(t.Counts()), e.bins, e.width)
}

// Run drives the explorer from in until exit or end of input.
func (e *Explorer) Run(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	if _, err := io.WriteString(out, e.Menu()); err != nil {
		return err
	}
	for !e.Done() {
		if _, err := io.WriteString(out, e.Prompt()); err != nil {
			return err
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := e.Handle(out, scanner.Text()); err != nil {
			return err
		}
	}
	return nil
}

// FormatCounter prints rows as {key: count, ...}.
func FormatCounter(rows []Row) string {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, fmt.Sprintf("%s: %d", r.Key, r.Count))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// RenderRows draws the two-column key/count projection.
func RenderRows(column string, rows []Row) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{r.Key.String(), strconv.Itoa(r.Count)})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(column, "count").
		Rows(data...).
		Render()
}

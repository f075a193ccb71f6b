// Package tui implements the interactive cache browser.
package tui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mstlab/sigfetch/internal/cache"
)

// chromeRows is the number of non-list rows (title and help line).
const chromeRows = 3

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// keyMap binds browser navigation.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "f"), key.WithHelp("pgdn", "page down")),
	Home:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
	End:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Browser is a scrolling list over the cache's stored entries. Only the
// visible window is rendered, so very large caches stay responsive.
type Browser struct {
	entries  []cache.Entry
	selected int
	top      int // first visible row index
	height   int
	width    int
}

// NewBrowser creates a Browser over the given entries, sorted by tree,
// shot, then digest.
func NewBrowser(entries []cache.Entry) *Browser {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Tree != b.Tree {
			return a.Tree < b.Tree
		}
		if a.Shot != b.Shot {
			return a.Shot < b.Shot
		}
		return a.Digest < b.Digest
	})
	return &Browser{entries: entries, height: 24, width: 80}
}

// Selected returns the entry under the cursor, or nil for an empty cache.
func (b *Browser) Selected() *cache.Entry {
	if len(b.entries) == 0 {
		return nil
	}
	return &b.entries[b.selected]
}

// Init implements tea.Model.
func (b *Browser) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.height = msg.Height
		b.width = msg.Width
		b.clampWindow()
		return b, nil
	case tea.KeyMsg:
		return b.handleKey(msg)
	}
	return b, nil
}

// handleKey moves the cursor.
func (b *Browser) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return b, tea.Quit
	case key.Matches(msg, keys.Up):
		b.move(-1)
	case key.Matches(msg, keys.Down):
		b.move(1)
	case key.Matches(msg, keys.PageUp):
		b.move(-b.pageSize())
	case key.Matches(msg, keys.PageDown):
		b.move(b.pageSize())
	case key.Matches(msg, keys.Home):
		b.selected = 0
		b.clampWindow()
	case key.Matches(msg, keys.End):
		b.selected = len(b.entries) - 1
		b.clampWindow()
	}
	return b, nil
}

func (b *Browser) pageSize() int {
	if n := b.height - chromeRows; n > 1 {
		return n
	}
	return 1
}

func (b *Browser) move(delta int) {
	if len(b.entries) == 0 {
		return
	}
	b.selected += delta
	if b.selected < 0 {
		b.selected = 0
	}
	if b.selected >= len(b.entries) {
		b.selected = len(b.entries) - 1
	}
	b.clampWindow()
}

// clampWindow keeps the cursor inside the visible rows.
func (b *Browser) clampWindow() {
	page := b.pageSize()
	if b.selected < b.top {
		b.top = b.selected
	}
	if b.selected >= b.top+page {
		b.top = b.selected - page + 1
	}
	if b.top < 0 {
		b.top = 0
	}
}

// View implements tea.Model.
func (b *Browser) View() string {
	out := titleStyle.Render("sigfetch cache") + "\n"

	if len(b.entries) == 0 {
		out += dimStyle.Render("(cache is empty)") + "\n"
	} else {
		page := b.pageSize()
		end := b.top + page
		if end > len(b.entries) {
			end = len(b.entries)
		}
		for i := b.top; i < end; i++ {
			e := b.entries[i]
			row := fmt.Sprintf("%-12s %10d  %.12s  %8d B", e.Tree, e.Shot, e.Digest, e.Size)
			if i == b.selected {
				row = selectedStyle.Render(row)
			}
			out += row + "\n"
		}
	}

	out += dimStyle.Render(fmt.Sprintf("%d entries · ↑/↓ move · q quit", len(b.entries)))
	return out
}

package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/usecase"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true)
	xStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	oStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	winningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")).Bold(true)
	fadedStyle   = lipgloss.NewStyle().Faint(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const helpText = "commands: 1-9 or move <1-9>, name <name>, reset, new, quit"

// Render draws the snapshot. Empty cells show their 1-based number.
func Render(snapshot usecase.Snapshot) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(snapshot.Headline))
	sb.WriteString("\n")

	switch {
	case snapshot.State == usecase.StateUninitialized:
		return sb.String()
	case snapshot.Record == nil:
		sb.WriteString(snapshot.Status)
		sb.WriteString("\n")
		return sb.String()
	case snapshot.NameRequired:
		sb.WriteString("What's your name?\n")
		return sb.String()
	}

	sb.WriteString(boxStyle.Render(renderBoard(snapshot)))
	sb.WriteString("\n")

	if snapshot.Role.IsPlayer() {
		fmt.Fprintf(&sb, "You are %s (%s)\n", snapshot.Name, snapshot.Role.Mark())
	}

	if snapshot.Status != "" {
		sb.WriteString(snapshot.Status)
		sb.WriteString("\n")
	}

	if snapshot.InviteURL != "" && snapshot.Record.PlayerO == "" {
		fmt.Fprintf(&sb, "Invite a friend: %s\n", snapshot.InviteURL)
	}

	switch {
	case snapshot.State == usecase.StateTerminal:
		sb.WriteString(hintStyle.Render("reset to play again, new for a new opponent"))
		sb.WriteString("\n")
	case snapshot.Record.IsFinished():
		sb.WriteString(hintStyle.Render("reset to clear the board"))
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderBoard(snapshot usecase.Snapshot) string {
	finished := snapshot.Record.IsFinished()
	rows := make([]string, 0, 3)

	for row := 0; row < 3; row++ {
		cells := make([]string, 0, 3)
		for col := 0; col < 3; col++ {
			cell := row*3 + col
			cells = append(cells, renderCell(snapshot, cell, finished))
		}
		rows = append(rows, strings.Join(cells, "│"))
	}

	return strings.Join(rows, "\n───┼───┼───\n")
}

func renderCell(snapshot usecase.Snapshot, cell int, finished bool) string {
	mark := snapshot.Record.Board[cell]
	text := fmt.Sprintf(" %s ", mark)

	switch {
	case finished && snapshot.IsWinningCell(cell):
		return winningStyle.Render(text)
	case finished:
		if mark == entity.EmptyCell {
			return fadedStyle.Render("   ")
		}
		return fadedStyle.Render(text)
	case mark == entity.PlayerX:
		return xStyle.Render(text)
	case mark == entity.PlayerO:
		return oStyle.Render(text)
	default:
		return emptyStyle.Render(fmt.Sprintf(" %d ", cell+1))
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/charmbracelet/lipgloss"
)

const nameWidth = 28

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	nameStyle   = lipgloss.NewStyle().Width(nameWidth).MaxWidth(nameWidth)
	emptyCell   = lipgloss.NewStyle().Width(3).Align(lipgloss.Center).Foreground(lipgloss.Color("240"))
)

// cellText is the first state's label, marked with "+" when the day
// resolved to several states.
func cellText(res *models.ResolvedDay) string {
	if res == nil || res.Empty() {
		return "·"
	}
	text := res.States[0].State.Label()
	if len(res.States) > 1 {
		text += "+"
	}
	return text
}

func cellStyle(st models.State) lipgloss.Style {
	s := lipgloss.NewStyle().Width(3).MaxWidth(3).Align(lipgloss.Center)
	if st.Color != "" {
		s = s.Foreground(lipgloss.Color(st.Color))
	}
	if st.BackgroundColor != "" {
		s = s.Background(lipgloss.Color(st.BackgroundColor))
	}
	return s
}

// renderMonth draws one line per person with a colored cell per day
func renderMonth(cal *models.MonthCalendar) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%d-%02d", cal.Year, int(cal.Month))))
	b.WriteString("\n")
	b.WriteString(nameStyle.Render(""))
	for _, d := range cal.Dates {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%3d", d.Day())))
	}
	b.WriteString("\n")

	for _, p := range cal.People {
		b.WriteString(nameStyle.Render(p.FullName()))
		for _, d := range cal.Dates {
			res := cal.Cell(p.ID, d.Day())
			if res == nil || res.Empty() {
				b.WriteString(emptyCell.Render(cellText(res)))
				continue
			}
			b.WriteString(cellStyle(res.States[0].State).Render(cellText(res)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

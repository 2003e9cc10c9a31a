package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/djq/internal/models"
)

const (
	colorPending   = "#FFA500"
	colorPlaying   = "#04B575"
	colorCompleted = "#626262"
	colorRejected  = "#FF0000"
)

var styles = NewPalette("#7D56F4", colorPlaying, colorRejected, colorPending, "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// StatusColor returns the display colour for status.
func StatusColor(status models.Status) lipgloss.Color {
	switch status {
	case models.StatusPending:
		return lipgloss.Color(colorPending)
	case models.StatusPlaying:
		return lipgloss.Color(colorPlaying)
	case models.StatusRejected:
		return lipgloss.Color(colorRejected)
	default:
		return lipgloss.Color(colorCompleted)
	}
}

// StatusStyle is a bold style in the status colour.
func StatusStyle(status models.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Bold(true)
}

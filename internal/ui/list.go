package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

var _ list.DefaultItem = requestItem{}

// requestItem wraps [models.SongRequest] to implement [list.Item].
type requestItem struct {
	request models.SongRequest
}

func (i requestItem) FilterValue() string {
	return i.request.SongTitle + " " + i.request.Artist + " " + i.request.RequesterName
}

func (i requestItem) Title() string { return i.request.Label() }

func (i requestItem) Description() string {
	parts := []string{shared.TimeAgo(i.request.CreatedAt)}
	if i.request.RequesterName != "" {
		parts = append(parts, "from "+i.request.RequesterName)
	}
	if i.request.SpecialMessage != "" {
		parts = append(parts, "\""+i.request.SpecialMessage+"\"")
	}
	return strings.Join(parts, " • ")
}

func requestItems(requests []models.SongRequest) []list.Item {
	items := make([]list.Item, len(requests))
	for i, r := range requests {
		items[i] = requestItem{request: r}
	}
	return items
}

// newRequestList builds a list whose selection is drawn in the status colour.
func newRequestList(status models.Status) list.Model {
	delegate := list.NewDefaultDelegate()
	color := StatusColor(status)
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(color).BorderForeground(color)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.BorderForeground(color)

	l := list.New(nil, delegate, 0, 0)
	l.Title = strings.ToUpper(status.String())
	l.Styles.Title = l.Styles.Title.Background(color)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

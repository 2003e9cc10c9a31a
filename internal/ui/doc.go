// Package ui implements the DJ's terminal dashboard using bubbletea's Elm architecture.
//
// The dashboard shows one tab per request status (pending, playing, completed, rejected), each a
// [list.Model] of requests in queue order. From the pending tab the DJ can move the selected request
// up or down (K/J), play it (p) or reject it (x); from the playing tab complete it (c). Every action
// runs against a [lifecycle.Manager] in a [tea.Cmd] and comes back as a [Msg], after which the tabs
// are rebuilt from the manager's snapshot. r re-fetches from the store.
//
// Status colours match the web dashboard: pending amber, playing green, completed grey, rejected red.
package ui

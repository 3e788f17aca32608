// Package ui is the terminal bidding view: catalog, bid form and the live
// notification log.
package ui

import (
	"context"
	"errors"

	"bidding-app/internal/client"
	"bidding-app/internal/domain"
	"bidding-app/internal/infrastructure/rest"
	"bidding-app/pkg/logger"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	validationAlert  = "Please select a product and enter a valid bid amount."
	genericBidFailed = "An error occurred while placing the bid."
)

type focusArea int

const (
	focusProducts focusArea = iota
	focusBid
)

type alertKind int

const (
	alertInfo alertKind = iota
	alertWarning
	alertError
)

// alert is a blocking popup; all keys except dismiss and quit are swallowed
// while one is shown.
type alert struct {
	kind alertKind
	text string
}

// Deps are the collaborators the view drives.
type Deps struct {
	Bidder   *client.Bidder
	Hub      domain.PushChannel
	Listener *client.NotificationListener
	Log      logger.Logger
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	bidder   *client.Bidder
	hub      domain.PushChannel
	listener *client.NotificationListener
	log      logger.Logger

	board      *client.Board
	cursor     int
	focus      focusArea
	input      textinput.Model
	alert      *alert
	hubStatus  string
	submitting bool
	closed     bool

	styles Styles
	width  int
	height int
}

// New builds the view. ctx bounds the component's lifetime: cancelling it,
// or quitting the program, abandons in-flight requests.
func New(ctx context.Context, deps Deps) Model {
	ctx, cancel := context.WithCancel(ctx)

	input := textinput.New()
	input.Placeholder = "Enter your bid"
	input.Prompt = "$ "
	input.CharLimit = 16

	return Model{
		ctx:       ctx,
		cancel:    cancel,
		bidder:    deps.Bidder,
		hub:       deps.Hub,
		listener:  deps.Listener,
		log:       deps.Log,
		board:     client.NewBoard(),
		input:     input,
		hubStatus: "connecting",
		styles:    DefaultStyles(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startHub(), m.fetchCatalog(), m.waitForNotification())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.closed {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case notificationMsg:
		m.board.AppendNotification(msg.text)
		return m, m.waitForNotification()

	case catalogLoadedMsg:
		m.board.ReplaceCatalog(msg.products)
		m.clampCursor()
		return m, nil

	case catalogFailedMsg:
		// Logged by the bidder; the view stays usable with what it has.
		return m, nil

	case bidPlacedMsg:
		m.submitting = false
		m.alert = &alert{kind: alertInfo, text: msg.response}
		m.board.ApplyBid(msg.productID, msg.bidAmount)
		m.input.Reset()
		return m, nil

	case bidFailedMsg:
		m.submitting = false
		text := genericBidFailed
		if serverMsg, ok := rest.ServerMessage(msg.err); ok {
			text = serverMsg
		}
		m.alert = &alert{kind: alertError, text: text}
		return m, nil

	case hubStartedMsg:
		m.hubStatus = "connected"
		return m, nil

	case hubFailedMsg:
		m.hubStatus = "disconnected"
		m.log.Error("Connection failed", "error", msg.err)
		return m, nil

	case HubStatusMsg:
		m.hubStatus = msg.Status
		return m, nil

	case RefreshCatalogMsg:
		return m, m.fetchCatalog()
	}

	if m.focus == focusBid {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	if m.alert != nil {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
			m.alert = nil
		}
		return m, nil
	}

	if msg.Type == tea.KeyTab || msg.Type == tea.KeyShiftTab {
		m.toggleFocus()
		return m, nil
	}

	if m.focus == focusBid {
		switch msg.Type {
		case tea.KeyEnter:
			return m.submitBid()
		case tea.KeyEsc:
			m.setFocus(focusProducts)
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.board.SetBidInput(m.input.Value())
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.board.Products())-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selectAtCursor()
	case "r":
		return m, m.fetchCatalog()
	}
	return m, nil
}

func (m *Model) selectAtCursor() {
	products := m.board.Products()
	if m.cursor < 0 || m.cursor >= len(products) {
		return
	}
	if err := m.board.Select(products[m.cursor].ID); err != nil {
		return
	}
	m.setFocus(focusBid)
}

func (m Model) submitBid() (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}

	req, err := m.board.PrepareBid()
	if err != nil {
		if !errors.Is(err, domain.ErrNoSelection) && !errors.Is(err, domain.ErrBlankBid) {
			m.log.Warn("Unexpected bid validation error", "error", err)
		}
		m.alert = &alert{kind: alertWarning, text: validationAlert}
		return m, nil
	}

	m.submitting = true
	return m, m.placeBid(req)
}

func (m *Model) toggleFocus() {
	if m.focus == focusProducts {
		m.setFocus(focusBid)
	} else {
		m.setFocus(focusProducts)
	}
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusBid {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) clampCursor() {
	n := len(m.board.Products())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// quit tears the component down: the lifetime context is cancelled so late
// results are ignored, and the push connection is closed before exiting.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.closed = true
	m.cancel()
	return m, tea.Sequence(m.teardown(), tea.Quit)
}

func (m Model) teardown() tea.Cmd {
	listener, hub, log := m.listener, m.hub, m.log
	return func() tea.Msg {
		if listener != nil {
			listener.Close()
		}
		if hub != nil {
			if err := hub.Stop(); err != nil {
				log.Error("Failed to stop hub connection", "error", err)
			}
		}
		return nil
	}
}

func (m Model) startHub() tea.Cmd {
	ctx, hub := m.ctx, m.hub
	if hub == nil {
		return nil
	}
	return func() tea.Msg {
		if err := hub.Start(ctx); err != nil {
			return hubFailedMsg{err: err}
		}
		return hubStartedMsg{}
	}
}

func (m Model) fetchCatalog() tea.Cmd {
	ctx, bidder := m.ctx, m.bidder
	return func() tea.Msg {
		products, err := bidder.FetchCatalog(ctx)
		if err != nil {
			return catalogFailedMsg{err: err}
		}
		return catalogLoadedMsg{products: products}
	}
}

func (m Model) placeBid(req domain.PlaceBidRequest) tea.Cmd {
	ctx, bidder := m.ctx, m.bidder
	return func() tea.Msg {
		response, err := bidder.PlaceBid(ctx, req)
		if err != nil {
			return bidFailedMsg{err: err}
		}
		return bidPlacedMsg{productID: req.ProductID, bidAmount: req.BidAmount, response: response}
	}
}

func (m Model) waitForNotification() tea.Cmd {
	if m.listener == nil {
		return nil
	}
	ctx, notifications := m.ctx, m.listener.Notifications()
	return func() tea.Msg {
		select {
		case text, ok := <-notifications:
			if !ok {
				return nil
			}
			return notificationMsg{text: text}
		case <-ctx.Done():
			return nil
		}
	}
}

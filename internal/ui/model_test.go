package ui

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"bidding-app/internal/client"
	"bidding-app/internal/domain"
	"bidding-app/internal/infrastructure/rest"
	"bidding-app/pkg/logger"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	products []domain.Product
	fetchErr error
	bidErr   error
	response string
	bids     []domain.PlaceBidRequest
}

func (f *fakeAPI) GetProducts(ctx context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]domain.Product(nil), f.products...), nil
}

func (f *fakeAPI) PlaceBid(ctx context.Context, req domain.PlaceBidRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bids = append(f.bids, req)
	if f.bidErr != nil {
		return "", f.bidErr
	}
	return f.response, nil
}

func (f *fakeAPI) placed() []domain.PlaceBidRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PlaceBidRequest(nil), f.bids...)
}

type fakeHub struct {
	mu       sync.Mutex
	handlers map[string]domain.InvocationHandler
	started  bool
	stopped  int
	startErr error
}

func (f *fakeHub) On(target string, handler domain.InvocationHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string]domain.InvocationHandler)
	}
	f.handlers[target] = handler
}

func (f *fakeHub) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return f.startErr
}

func (f *fakeHub) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeHub) push(t *testing.T, target, text string) {
	t.Helper()
	data, err := json.Marshal(text)
	require.NoError(t, err)
	f.mu.Lock()
	handler := f.handlers[target]
	f.mu.Unlock()
	require.NotNil(t, handler)
	handler([]json.RawMessage{data})
}

func catalog() []domain.Product {
	return []domain.Product{
		{ID: 1, Title: "Vintage Pocket Watch", CurrentBid: "$120.00"},
		{ID: 2, Title: "Signed First Edition", CurrentBid: "$250.00"},
		{ID: 3, Title: "Mid-Century Armchair", CurrentBid: "$75.50"},
	}
}

type fixture struct {
	api      *fakeAPI
	hub      *fakeHub
	listener *client.NotificationListener
	model    Model
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &fakeAPI{products: catalog(), response: "Bid placed successfully."}
	hub := &fakeHub{}
	listener := client.NewNotificationListener(8, logger.NewNop())
	listener.Bind(hub, "ReceiveNotification")

	m := New(context.Background(), Deps{
		Bidder:   client.NewBidder(api, logger.NewNop()),
		Hub:      hub,
		Listener: listener,
		Log:      logger.NewNop(),
	})
	t.Cleanup(listener.Close)
	return &fixture{api: api, hub: hub, listener: listener, model: m}
}

// send feeds msg through Update and returns the resulting command.
func (f *fixture) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := f.model.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	f.model = model
	return cmd
}

// run executes cmd and feeds its message back into the model.
func (f *fixture) run(t *testing.T, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	return f.send(t, cmd())
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	f.run(t, f.model.fetchCatalog())
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestModel_InitialState(t *testing.T) {
	f := newFixture(t)

	assert.Empty(t, f.model.board.Products())
	assert.Empty(t, f.model.board.Notifications())
	_, selected := f.model.board.Selected()
	assert.False(t, selected)
	assert.Nil(t, f.model.alert)
	assert.NotNil(t, f.model.Init())

	view := f.model.View()
	assert.Contains(t, view, "Bid App")
	assert.Contains(t, view, "Please select a product to place a bid.")
}

func TestModel_LoadsCatalogInServerOrder(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	assert.Equal(t, catalog(), f.model.board.Products())
	view := f.model.View()
	assert.Contains(t, view, "Vintage Pocket Watch - Current Bid: $120.00")
	assert.Contains(t, view, "Mid-Century Armchair - Current Bid: $75.50")
}

func TestModel_CatalogFailureLeavesEmptyList(t *testing.T) {
	f := newFixture(t)
	f.api.fetchErr = errors.New("connection refused")
	f.load(t)

	assert.Empty(t, f.model.board.Products())
	assert.Nil(t, f.model.alert)
}

func TestModel_StartsHub(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.startHub())

	assert.True(t, f.hub.started)
	assert.Equal(t, "connected", f.model.hubStatus)

	f.hub.startErr = errors.New("negotiate: unexpected status 503")
	f.run(t, f.model.startHub())
	assert.Equal(t, "disconnected", f.model.hubStatus)

	f.send(t, HubStatusMsg{Status: "reconnecting"})
	assert.Equal(t, "reconnecting", f.model.hubStatus)
}

func TestModel_SelectProduct(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.send(t, key(tea.KeyDown))
	f.send(t, key(tea.KeyEnter))

	selected, ok := f.model.board.Selected()
	require.True(t, ok)
	assert.Equal(t, 2, selected.ID)
	assert.Equal(t, focusBid, f.model.focus)

	view := f.model.View()
	assert.Contains(t, view, "Selected Product: ")
	assert.Contains(t, view, "Signed First Edition")
	assert.Contains(t, view, "Current Bid: $250.00")

	// Selecting another product replaces the selection.
	f.send(t, key(tea.KeyEsc))
	f.send(t, key(tea.KeyUp))
	f.send(t, key(tea.KeyEnter))
	selected, _ = f.model.board.Selected()
	assert.Equal(t, 1, selected.ID)
	assert.False(t, f.model.board.IsSelected(2))
}

func TestModel_SubmitWithoutSelection(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.send(t, key(tea.KeyTab))
	f.send(t, runes("150"))
	cmd := f.send(t, key(tea.KeyEnter))

	assert.Nil(t, cmd)
	require.NotNil(t, f.model.alert)
	assert.Equal(t, validationAlert, f.model.alert.text)
	assert.Empty(t, f.api.placed())
}

func TestModel_SubmitBlankBid(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.send(t, key(tea.KeyEnter))
	cmd := f.send(t, key(tea.KeyEnter))

	assert.Nil(t, cmd)
	require.NotNil(t, f.model.alert)
	assert.Equal(t, validationAlert, f.model.alert.text)
	assert.Empty(t, f.api.placed())

	// Any key other than dismiss is swallowed while the alert is open.
	f.send(t, runes("9"))
	assert.Empty(t, f.model.board.BidInput())
	f.send(t, key(tea.KeyEnter))
	assert.Nil(t, f.model.alert)
}

func TestModel_PlaceBidSuccess(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.send(t, key(tea.KeyEnter))
	f.send(t, runes("150"))
	assert.Equal(t, "150", f.model.board.BidInput())

	cmd := f.send(t, key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.True(t, f.model.submitting)

	// A second enter while the request is in flight sends nothing.
	assert.Nil(t, f.send(t, key(tea.KeyEnter)))

	f.run(t, cmd)

	assert.Equal(t, []domain.PlaceBidRequest{{ProductID: 1, BidAmount: "$150"}}, f.api.placed())
	require.NotNil(t, f.model.alert)
	assert.Equal(t, "Bid placed successfully.", f.model.alert.text)
	assert.Equal(t, "$150", f.model.board.Products()[0].CurrentBid)
	selected, _ := f.model.board.Selected()
	assert.Equal(t, "$150", selected.CurrentBid)
	assert.Empty(t, f.model.board.BidInput())
	assert.Empty(t, f.model.input.Value())
	assert.False(t, f.model.submitting)
}

func TestModel_PlaceBidServerRejection(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.api.bidErr = &rest.APIError{StatusCode: 400, Message: "Bid must be at least $120.01."}

	f.send(t, key(tea.KeyEnter))
	f.send(t, runes("100"))
	f.run(t, f.send(t, key(tea.KeyEnter)))

	require.NotNil(t, f.model.alert)
	assert.Equal(t, "Bid must be at least $120.01.", f.model.alert.text)
	assert.Equal(t, "$120.00", f.model.board.Products()[0].CurrentBid)
	assert.Equal(t, "100", f.model.board.BidInput())
}

func TestModel_PlaceBidTransportFailure(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.api.bidErr = errors.New("dial tcp: connection refused")

	f.send(t, key(tea.KeyEnter))
	f.send(t, runes("130"))
	f.run(t, f.send(t, key(tea.KeyEnter)))

	require.NotNil(t, f.model.alert)
	assert.Equal(t, genericBidFailed, f.model.alert.text)
	assert.Equal(t, catalog(), f.model.board.Products())
}

func TestModel_NotificationsAppendInArrivalOrder(t *testing.T) {
	f := newFixture(t)

	f.hub.push(t, "ReceiveNotification", "New bid of $130.00 placed on Vintage Pocket Watch")
	f.hub.push(t, "ReceiveNotification", "New bid of $140.00 placed on Vintage Pocket Watch")

	next := f.run(t, f.model.waitForNotification())
	require.NotNil(t, next, "listening continues after a notification")
	f.run(t, next)

	assert.Equal(t, []string{
		"New bid of $130.00 placed on Vintage Pocket Watch",
		"New bid of $140.00 placed on Vintage Pocket Watch",
	}, f.model.board.Notifications())
	assert.Contains(t, f.model.View(), "New bid of $140.00 placed on Vintage Pocket Watch")
}

func TestModel_NotificationDoesNotPatchCatalog(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.send(t, notificationMsg{text: "New bid of $999.00 placed on Vintage Pocket Watch"})
	assert.Equal(t, "$120.00", f.model.board.Products()[0].CurrentBid)
}

func TestModel_RefreshDropsVanishedSelection(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.send(t, key(tea.KeyDown))
	f.send(t, key(tea.KeyDown))
	f.send(t, key(tea.KeyEnter))
	require.True(t, f.model.board.IsSelected(3))

	f.api.products = catalog()[:2]
	f.run(t, f.send(t, RefreshCatalogMsg{}))

	_, ok := f.model.board.Selected()
	assert.False(t, ok)
	assert.Equal(t, 1, f.model.cursor)
}

func TestModel_QuitTearsDown(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.send(t, key(tea.KeyEnter))
	f.send(t, runes("150"))
	pending := f.send(t, key(tea.KeyEnter))
	require.NotNil(t, pending)

	quitCmd := f.send(t, key(tea.KeyCtrlC))
	require.NotNil(t, quitCmd)
	assert.True(t, f.model.closed)
	assert.Error(t, f.model.ctx.Err())
	assert.Empty(t, f.model.View())

	// Results arriving after teardown are ignored.
	f.send(t, bidPlacedMsg{productID: 1, bidAmount: "$150", response: "Bid placed successfully."})
	f.send(t, notificationMsg{text: "late"})
	f.send(t, catalogLoadedMsg{products: nil})
	assert.Nil(t, f.model.alert)
	assert.Equal(t, catalog(), f.model.board.Products())
	assert.Empty(t, f.model.board.Notifications())

	assert.Nil(t, f.model.teardown()())
	assert.Equal(t, 1, f.hub.stopped)

	// The notification stream is released.
	assert.Nil(t, f.model.waitForNotification()())
}

func TestModel_QuitKeyOnlyFromProductList(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.send(t, key(tea.KeyTab))
	f.send(t, runes("q"))
	assert.False(t, f.model.closed)
	assert.Equal(t, "q", f.model.board.BidInput())

	f.send(t, key(tea.KeyTab))
	assert.NotNil(t, f.send(t, runes("q")))
	assert.True(t, f.model.closed)
}

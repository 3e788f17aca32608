package ui

import "bidding-app/internal/domain"

type catalogLoadedMsg struct {
	products []domain.Product
}

type catalogFailedMsg struct {
	err error
}

type bidPlacedMsg struct {
	productID int
	bidAmount string
	response  string
}

type bidFailedMsg struct {
	err error
}

type notificationMsg struct {
	text string
}

type hubStartedMsg struct{}

type hubFailedMsg struct {
	err error
}

// RefreshCatalogMsg asks the model to fetch the catalog again.
type RefreshCatalogMsg struct{}

// HubStatusMsg reports a push connection state change for the status line.
type HubStatusMsg struct {
	Status string
}

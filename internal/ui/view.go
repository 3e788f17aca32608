package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.closed {
		return ""
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("Bid App"),
		m.renderNotifications(),
		"",
		m.renderProducts(),
		"",
		m.renderBidForm(),
		"",
		m.renderStatus(),
	)

	if m.alert == nil {
		return body
	}
	popup := m.renderAlert()
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popup)
	}
	return body + "\n\n" + popup
}

func (m Model) renderNotifications() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Section.Render("Notifications"))
	sb.WriteString("\n")

	notifications := m.board.Notifications()
	if len(notifications) == 0 {
		sb.WriteString(m.styles.Muted.Render("  No notifications yet."))
		return sb.String()
	}

	// Show the tail when the log outgrows the screen.
	if limit := m.notificationLimit(); len(notifications) > limit {
		notifications = notifications[len(notifications)-limit:]
	}
	for i, n := range notifications {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.styles.Notification.Render("  • " + n))
	}
	return sb.String()
}

func (m Model) notificationLimit() int {
	if m.height <= 0 {
		return 10
	}
	limit := m.height / 3
	if limit < 3 {
		limit = 3
	}
	return limit
}

func (m Model) renderProducts() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Section.Render("Products"))

	products := m.board.Products()
	if len(products) == 0 {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Muted.Render("  Loading products..."))
		return sb.String()
	}

	for i, p := range products {
		sb.WriteString("\n")
		pointer := "  "
		if i == m.cursor && m.focus == focusProducts {
			pointer = m.styles.Cursor.Render("> ")
		}
		line := fmt.Sprintf("%s - Current Bid: %s", p.Title, p.CurrentBid)
		if m.board.IsSelected(p.ID) {
			line = m.styles.Selected.Render(line)
		} else {
			line = m.styles.Item.Render(line)
		}
		sb.WriteString(pointer + line)
	}
	return sb.String()
}

func (m Model) renderBidForm() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Section.Render("Place Bid"))
	sb.WriteString("\n")

	selected, ok := m.board.Selected()
	if !ok {
		sb.WriteString(m.styles.Muted.Render("  Please select a product to place a bid."))
		return sb.String()
	}

	sb.WriteString("  Selected Product: ")
	sb.WriteString(m.styles.Selected.Render(selected.Title))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Current Bid: %s\n", selected.CurrentBid))
	sb.WriteString("  " + m.input.View())
	if m.submitting {
		sb.WriteString(m.styles.Muted.Render("  placing bid..."))
	}
	return sb.String()
}

func (m Model) renderStatus() string {
	help := "↑/↓ move • enter select • tab bid form • r refresh • q quit"
	if m.focus == focusBid {
		help = "enter place bid • esc/tab products • ctrl+c quit"
	}
	return m.styles.Status.Render("hub: "+m.hubStatus) + "\n" + m.styles.Help.Render(help)
}

func (m Model) renderAlert() string {
	style := m.styles.AlertInfo
	switch m.alert.kind {
	case alertWarning:
		style = m.styles.AlertWarning
	case alertError:
		style = m.styles.AlertError
	}
	text := m.alert.text
	if text == "" {
		text = "Done."
	}
	return style.Render(text + "\n\n" + m.styles.Help.Render("press enter to dismiss"))
}

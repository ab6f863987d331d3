package tablepush

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	colorAction  = 0x3BA55D
	colorSeat    = 0x5865F2
	colorTimeout = 0xFEE75C
	colorResult  = 0xED4245

	defaultFooter = "holdem-tables"
)

func FormatMessage(ev TableEvent) (FormattedMessage, bool) {
	table := fallback(ev.TableName, "Table "+strconv.Itoa(ev.TableID))
	player := fallback(ev.Player, "someone")
	base := FormattedMessage{
		Timestamp: eventTimestamp(ev.ServerTS),
		Footer:    defaultFooter,
	}

	switch ev.Type {
	case EventAction:
		base.Title = fmt.Sprintf("%s · Hand #%d", table, ev.HandNumber)
		base.Content = fmt.Sprintf("%s %s", player, actionText(ev.Action, ev.Amount))
		base.Description = base.Content
		base.Color = colorAction
		base.Fields = []MessageField{
			{Name: "Street", Value: fallback(ev.Phase, "-"), Inline: true},
			{Name: "Pot", Value: strconv.FormatInt(ev.Pot, 10), Inline: true},
		}
	case EventSeat:
		base.Title = table
		base.Content = fmt.Sprintf("%s sat down in seat %d", player, ev.Seat)
		base.Description = base.Content
		base.Color = colorSeat
	case EventTimeout:
		base.Title = table
		base.Content = fmt.Sprintf("%s ran out of time", player)
		base.Description = base.Content
		base.Color = colorTimeout
	case EventHandOver:
		base.Title = fmt.Sprintf("%s · Hand #%d result", table, ev.HandNumber)
		lines := make([]string, 0, len(ev.Winners))
		for _, w := range ev.Winners {
			line := fmt.Sprintf("%s wins %d", w.Player, w.Amount)
			if w.HandName != "" {
				line += " with " + w.HandName
			}
			lines = append(lines, line)
		}
		base.Content = fallback(strings.Join(lines, "; "), "hand complete")
		base.Description = strings.Join(lines, "\n")
		base.Color = colorResult
		base.Fields = []MessageField{{Name: "Board", Value: fallback(strings.Join(ev.Board, " "), "-"), Inline: false}}
	default:
		return FormattedMessage{}, false
	}
	return base, true
}

func actionText(action string, amount int64) string {
	switch action {
	case "bet", "raise":
		return fmt.Sprintf("%ss to %d", action, amount)
	case "call":
		if amount > 0 {
			return fmt.Sprintf("calls %d", amount)
		}
		return "calls"
	case "":
		return "acts"
	default:
		return action + "s"
	}
}

func eventTimestamp(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func fallback(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}

package public

import (
	"holdem-tables/internal/store"
	"holdem-tables/internal/table"
)

type TablesResponse struct {
	Items []table.Summary `json:"items"`
}

type ActionsResponse struct {
	TableID    int                  `json:"table_id"`
	HandNumber int                  `json:"hand_number,omitempty"`
	Limit      int                  `json:"limit"`
	Items      []store.ActionRecord `json:"items"`
}

type LocationResponse struct {
	IdentityID string `json:"identity_id"`
	Nickname   string `json:"nickname"`
	Location   string `json:"location"`
	TableID    int    `json:"table_id,omitempty"`
	Seat       int    `json:"seat,omitempty"`
	Online     bool   `json:"online"`
}

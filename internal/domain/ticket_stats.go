package domain

import "time"

// TicketStats is the derived overview served to the dashboard.
type TicketStats struct {
	Total        int                    `json:"total"`
	ByStatus     map[TicketStatus]int   `json:"by_status"`
	Urgent       int                    `json:"urgent"`
	High         int                    `json:"high"`
	ByCategory   map[TicketCategory]int `json:"by_category"`
	Recent       int                    `json:"recent"`
	Escalated    int                    `json:"escalated"`
	Unassigned   int                    `json:"unassigned"`
	AgeBuckets   map[string]int         `json:"age_buckets"`
	GeneratedAt  time.Time              `json:"generated_at"`
	RecentWindow time.Duration          `json:"-"`
}

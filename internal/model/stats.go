package model

// Stats is the dashboard aggregate computed by the remote store.
type Stats struct {
	TotalProperties     int     `json:"total_properties"`
	AvailableProperties int     `json:"available_properties"`
	TotalLeads          int     `json:"total_leads"`
	NewLeads            int     `json:"new_leads"`
	ActiveDeals         int     `json:"active_deals"`
	ClosedDeals         int     `json:"closed_deals"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalCommission     float64 `json:"total_commission"`
}

// ActivitySummary counts what one user has produced across the whole cache.
type ActivitySummary struct {
	LeadsCreated      int `json:"leads_created"`
	PropertiesCreated int `json:"properties_created"`
	Deals             int `json:"deals"`
}

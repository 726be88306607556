package dto

// SyncRunResponse reports a manually triggered sync cycle.
type SyncRunResponse struct {
	Processed int `json:"processed"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
}

// DealResponse is a CRM deal row exposed to operators.
type DealResponse struct {
	ID        string `json:"id"`
	SourceRef string `json:"source_ref,omitempty"`
}

// DealListResponse wraps the deal listing.
type DealListResponse struct {
	Deals []DealResponse `json:"deals"`
	Count int            `json:"count"`
}

// DeleteDealResponse reports a deal removal.
type DeleteDealResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

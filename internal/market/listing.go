package market

import "time"

// Listing is a single marketplace item as seen by the buyer agent.
// The URL doubles as the item identifier; re-listed items can collide on it,
// which is why downstream stages align results by position, not identifier.
type Listing struct {
	URL           string     `json:"url"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	ImageURL      string     `json:"image,omitempty"`
	ListedPrice   *float64   `json:"listed_price,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	SellerMessage string     `json:"seller_message,omitempty"`
}

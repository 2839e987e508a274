package domain

// CatalogItem is a menu item snapshot supplied by the catalog provider.
type CatalogItem struct {
	ItemID     string   `json:"item_id"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Rating     float64  `json:"rating"`
	IsFeatured bool     `json:"is_featured"`
	Tags       []string `json:"tags"`
	Available  bool     `json:"available"`
}

// RestaurantProfile is the static restaurant data FAQ answers are built from.
type RestaurantProfile struct {
	Name             string  `json:"name"`
	Address          string  `json:"address"`
	District         string  `json:"district"`
	City             string  `json:"city"`
	PhoneNumber      string  `json:"phone_number"`
	OpeningTime      string  `json:"opening_time"` // HH:MM, local to Timezone
	ClosingTime      string  `json:"closing_time"`
	Timezone         string  `json:"timezone"`
	DeliveryFee      float64 `json:"delivery_fee"`
	DeliveryRadiusKm float64 `json:"delivery_radius_km"`
	MinimumOrder     float64 `json:"minimum_order"`
	Currency         string  `json:"currency"`
}

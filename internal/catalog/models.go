package catalog

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Kind identifies a priceable resource table for id/name price lookups.
type Kind int

const (
	KindHotel Kind = iota
	KindSpot
	KindActivity
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindHotel:
		return "hotel"
	case KindSpot:
		return "spot"
	case KindActivity:
		return "activity"
	case KindTransport:
		return "transport"
	}
	return "unknown"
}

// Identity is the caller's identity for visibility filtering. A nil *Identity
// means an anonymous caller: public entries only, prices masked.
type Identity struct {
	Username string
}

type City struct {
	ID      string
	Name    string
	Country string
}

type Hotel struct {
	ID       string
	CityID   string
	Name     string
	RoomType string
	Price    *float64
	OwnerID  string
	IsPublic bool
}

type Spot struct {
	ID       string
	CityID   string
	Name     string
	Price    *float64
	OwnerID  string
	IsPublic bool
}

type Activity struct {
	ID       string
	CityID   string
	Name     string
	Price    *float64
	OwnerID  string
	IsPublic bool
}

type Transport struct {
	ID          string
	Region      string
	CarModel    string
	ServiceType string
	Passengers  int
	PriceLow    *float64
	PriceHigh   *float64
	OwnerID     string
	IsPublic    bool
}

type Restaurant struct {
	ID          string
	CityID      string
	Name        string
	CuisineType string
	AvgPrice    *float64
	DietaryTags string
	MealType    string
	OwnerID     string
	IsPublic    bool
}

type Document struct {
	ID          string
	Category    string
	Country     string
	CityID      string
	Title       string
	ContentText string
	UploadedAt  time.Time
	OwnerID     string
	IsPublic    bool
}

// HotelSummary is the lightweight shape surfaced to the model and tools.
type HotelSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	RoomType string   `json:"room_type,omitempty"`
}

// ResourceSummary covers spots and activities: id, display name, price.
type ResourceSummary struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

type TransportSummary struct {
	ID          string   `json:"id"`
	Region      string   `json:"region"`
	CarModel    string   `json:"carModel,omitempty"`
	ServiceType string   `json:"serviceType,omitempty"`
	Passengers  int      `json:"passengers"`
	PriceLow    *float64 `json:"priceLow"`
	PriceHigh   *float64 `json:"priceHigh"`
}

type RestaurantSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CuisineType string   `json:"cuisineType,omitempty"`
	AvgPrice    *float64 `json:"avgPrice"`
	DietaryTags string   `json:"dietaryTags,omitempty"`
	MealType    string   `json:"mealType,omitempty"`
}

type DocumentSummary struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Country  string `json:"country,omitempty"`
	CityID   string `json:"cityId,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// PricedName is a name-lookup result used by price backfilling.
type PricedName struct {
	ID    string
	Name  string
	Price float64
}

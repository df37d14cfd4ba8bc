package domain

import "time"

// PropertyStatus enumerates listing availability.
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "AVAILABLE"
	PropertyStatusReserved  PropertyStatus = "RESERVED"
	PropertyStatusSold      PropertyStatus = "SOLD"
)

// ParsePropertyStatus validates an externally supplied status value.
func ParsePropertyStatus(value string) (PropertyStatus, bool) {
	switch PropertyStatus(value) {
	case PropertyStatusAvailable, PropertyStatusReserved, PropertyStatusSold:
		return PropertyStatus(value), true
	default:
		return "", false
	}
}

// PropertyType enumerates listing categories.
type PropertyType string

const (
	PropertyTypeApartment  PropertyType = "APARTMENT"
	PropertyTypeHouse      PropertyType = "HOUSE"
	PropertyTypePenthouse  PropertyType = "PENTHOUSE"
	PropertyTypeLand       PropertyType = "LAND"
	PropertyTypeCommercial PropertyType = "COMMERCIAL"
)

// ParsePropertyType validates an externally supplied type value.
func ParsePropertyType(value string) (PropertyType, bool) {
	switch PropertyType(value) {
	case PropertyTypeApartment, PropertyTypeHouse, PropertyTypePenthouse, PropertyTypeLand, PropertyTypeCommercial:
		return PropertyType(value), true
	default:
		return "", false
	}
}

// Property is a real-estate listing a client may be interested in.
type Property struct {
	ID          string
	Title       string
	Description *string
	Address     *string
	Price       *float64
	Type        PropertyType
	Status      PropertyStatus
	UserID      string
	CreatedAt   time.Time
}

// Package model defines the CRM entities shared by the cache store, the API
// server and the client SDK.
package model

import "time"

// PropertyType classifies a listing.
type PropertyType string

const (
	PropertyTypeApartment PropertyType = "apartment"
	PropertyTypeVilla     PropertyType = "villa"
	PropertyTypeTownhouse PropertyType = "townhouse"
	PropertyTypePenthouse PropertyType = "penthouse"
	PropertyTypeOffice    PropertyType = "office"
	PropertyTypeRetail    PropertyType = "retail"
	PropertyTypeLand      PropertyType = "land"
)

// ValidPropertyType returns true if s is a known property type.
func ValidPropertyType(s string) bool {
	switch PropertyType(s) {
	case PropertyTypeApartment, PropertyTypeVilla, PropertyTypeTownhouse,
		PropertyTypePenthouse, PropertyTypeOffice, PropertyTypeRetail, PropertyTypeLand:
		return true
	}
	return false
}

// PropertyStatus is where a listing is in its lifecycle. Transitions are not
// validated; any status may be set at any time.
type PropertyStatus string

const (
	PropertyStatusDraft      PropertyStatus = "draft"
	PropertyStatusAvailable  PropertyStatus = "available"
	PropertyStatusUnderOffer PropertyStatus = "under_offer"
	PropertyStatusSold       PropertyStatus = "sold"
	PropertyStatusRented     PropertyStatus = "rented"
	PropertyStatusArchived   PropertyStatus = "archived"
)

// ValidPropertyStatus returns true if s is a known property status.
func ValidPropertyStatus(s string) bool {
	switch PropertyStatus(s) {
	case PropertyStatusDraft, PropertyStatusAvailable, PropertyStatusUnderOffer,
		PropertyStatusSold, PropertyStatusRented, PropertyStatusArchived:
		return true
	}
	return false
}

// MediaFile is an uploaded video or document attached to a property.
type MediaFile struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Name       string    `json:"name"`
	ByteSize   int64     `json:"byte_size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Property is a listing tracked by the agency.
type Property struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Type        PropertyType   `json:"type"`
	Status      PropertyStatus `json:"status"`
	Price       float64        `json:"price"`
	Location    string         `json:"location"`
	Area        float64        `json:"area"`
	Bedrooms    *int           `json:"bedrooms,omitempty"`
	Bathrooms   *int           `json:"bathrooms,omitempty"`
	Images      []string       `json:"images"`
	Videos      []MediaFile    `json:"videos"`
	Documents   []MediaFile    `json:"documents"`
	Features    []string       `json:"features"`
	OwnerName   string         `json:"owner_name"`
	OwnerPhone  string         `json:"owner_phone"`
	OwnerEmail  string         `json:"owner_email"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PropertyPatch is a partial update. Nil fields are left untouched.
// CreatedBy never changes after creation and has no patch field.
type PropertyPatch struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Type        *PropertyType   `json:"type,omitempty"`
	Status      *PropertyStatus `json:"status,omitempty"`
	Price       *float64        `json:"price,omitempty"`
	Location    *string         `json:"location,omitempty"`
	Area        *float64        `json:"area,omitempty"`
	Bedrooms    *int            `json:"bedrooms,omitempty"`
	Bathrooms   *int            `json:"bathrooms,omitempty"`
	Images      *[]string       `json:"images,omitempty"`
	Videos      *[]MediaFile    `json:"videos,omitempty"`
	Documents   *[]MediaFile    `json:"documents,omitempty"`
	Features    *[]string       `json:"features,omitempty"`
	OwnerName   *string         `json:"owner_name,omitempty"`
	OwnerPhone  *string         `json:"owner_phone,omitempty"`
	OwnerEmail  *string         `json:"owner_email,omitempty"`
}

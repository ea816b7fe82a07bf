package types

import (
	"time"
)

// NotAvailable marks a field the listing page did not expose.
const NotAvailable = "N/A"

// Place is a single business listing extracted from a Maps place page.
type Place struct {
	Name    string `json:"name"    bson:"name"`
	Address string `json:"address" bson:"address"`
	Phone   string `json:"phone"   bson:"phone"`
	Rating  string `json:"rating"  bson:"rating"`
	Website string `json:"website" bson:"website"`
	URL     string `json:"url"     bson:"url"`
}

// NewPlace returns a Place for pageURL with every other field set to N/A.
func NewPlace(pageURL string) *Place {
	return &Place{
		Name:    NotAvailable,
		Address: NotAvailable,
		Phone:   NotAvailable,
		Rating:  NotAvailable,
		Website: NotAvailable,
		URL:     pageURL,
	}
}

// Fields returns the place's fields in export column order.
func (p *Place) Fields() []string {
	return []string{p.Name, p.Address, p.Phone, p.Rating, p.Website, p.URL}
}

// FieldNames returns the column names matching Fields.
func FieldNames() []string {
	return []string{"name", "address", "phone", "rating", "website", "url"}
}

// Record is a Place as persisted by a results store.
type Record struct {
	ID        int64     `json:"id"         bson:"-"`
	TaskID    string    `json:"task_id"    bson:"task_id"`
	Place     `bson:",inline"`
	Timestamp time.Time `json:"timestamp"  bson:"timestamp"`
}

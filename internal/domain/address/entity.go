package address

import (
	"errors"

	"github.com/google/uuid"
)

var ErrAddressNotFound = errors.New("address not found")

// Address is a customer's shipping or billing book entry.
type Address struct {
	ID          int64
	UserID      uuid.UUID
	Label       string
	Recipient   string
	Phone       string
	Email       string
	Street      string
	Province    string
	City        string
	CityID      string
	District    string
	PostalCode  string
	Country     string
	CourierNote string
}

func (a *Address) OwnedBy(userID uuid.UUID) bool {
	return a != nil && a.UserID == userID
}

// Snapshot is the frozen copy stored on an order.
type Snapshot struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Street     string `json:"street"`
	Province   string `json:"province"`
	City       string `json:"city"`
	District   string `json:"district"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Label      string `json:"label"`
	Note       string `json:"note"`
}

func (a *Address) Snapshot(country string) Snapshot {
	c := a.Country
	if c == "" {
		c = country
	}
	return Snapshot{
		Recipient:  a.Recipient,
		Phone:      a.Phone,
		Email:      a.Email,
		Street:     a.Street,
		Province:   a.Province,
		City:       a.City,
		District:   a.District,
		PostalCode: a.PostalCode,
		Country:    c,
		Label:      a.Label,
		Note:       a.CourierNote,
	}
}

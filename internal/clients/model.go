package clients

import "time"

// ClientType distinguishes the kinds of parties that can carry a balance.
type ClientType string

const (
	TypeIndividual ClientType = "INDIVIDUAL"
	TypeCompany    ClientType = "COMPANY"
	TypeEmployee   ClientType = "EMPLOYEE"
	TypeInvestor   ClientType = "INVESTOR"
)

// Client is a party that can owe or be owed money. Balances hang off the
// client one row per currency; deleting a client cascades to its balances.
type Client struct {
	ID              int64
	Name            string
	Type            ClientType
	Status          string
	DiscountPercent float64
	CompanyID       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

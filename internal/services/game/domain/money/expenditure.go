package money

// Expenditure classifies spending for park accounting and reporting.
//
// Values are part of the wire contract; append new categories, never reorder.
type Expenditure uint8

const (
	ExpenditureNone Expenditure = iota
	ExpenditureRideConstruction
	ExpenditureRideRunningCosts
	ExpenditureLandPurchase
	ExpenditureLandscaping
	ExpenditureParkEntranceTickets
	ExpenditureParkRideTickets
	ExpenditureShopSales
	ExpenditureFoodDrinkSales
	ExpenditureWages
	ExpenditureMarketing
	ExpenditureResearch
	ExpenditureInterest

	expenditureCount
)

var expenditureNames = [...]string{
	ExpenditureNone:                "none",
	ExpenditureRideConstruction:    "ride_construction",
	ExpenditureRideRunningCosts:    "ride_running_costs",
	ExpenditureLandPurchase:        "land_purchase",
	ExpenditureLandscaping:         "landscaping",
	ExpenditureParkEntranceTickets: "park_entrance_tickets",
	ExpenditureParkRideTickets:     "park_ride_tickets",
	ExpenditureShopSales:           "shop_sales",
	ExpenditureFoodDrinkSales:      "food_drink_sales",
	ExpenditureWages:               "wages",
	ExpenditureMarketing:           "marketing",
	ExpenditureResearch:            "research",
	ExpenditureInterest:            "interest",
}

// Valid reports whether e is a known category.
func (e Expenditure) Valid() bool {
	return e < expenditureCount
}

func (e Expenditure) String() string {
	if !e.Valid() {
		return "unknown"
	}
	return expenditureNames[e]
}

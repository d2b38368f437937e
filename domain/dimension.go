package domain

import "time"

// DateDim is one row of the calendar dimension, generated for a configured
// year span and replaced wholesale.
type DateDim struct {
	DateKey    time.Time `json:"date_key"`
	DayOfWeek  string    `json:"day_of_week"`
	WeekNumber int       `json:"week_number"`
	Month      int       `json:"month"`
	Quarter    int       `json:"quarter"`
	Year       int       `json:"year"`
	IsWeekend  bool      `json:"is_weekend"`
}

// CustomerDim is one row of the customer dimension, derived from order facts.
type CustomerDim struct {
	CustomerID string    `json:"customer_id"`
	FirstSeen  time.Time `json:"first_seen"`
}

// ProductDim is a placeholder dimension row; product-level data is not
// present in the event feeds.
type ProductDim struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	VendorID    string  `json:"vendor_id"`
	UnitPrice   float64 `json:"unit_price"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAlertThreshold is the percentage of the limit at which a budget is
// considered near its limit when no threshold is given.
const DefaultAlertThreshold = 80.0

// Budget is a spending cap for a category over a date window.
type Budget struct {
	Base
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Category       string          `gorm:"not null;index" json:"category"`
	Limit          decimal.Decimal `gorm:"column:limit_amount;type:numeric(15,2);not null" json:"limit"`
	StartDate      time.Time       `gorm:"not null" json:"start_date"`
	EndDate        time.Time       `gorm:"not null" json:"end_date"`
	AlertThreshold float64         `gorm:"not null;default:80" json:"alert_threshold"`
}

// DateRange returns the inclusive window the budget covers.
func (b *Budget) DateRange() DateRange {
	return DateRange{From: b.StartDate, To: b.EndDate}
}

// DateRange is an inclusive [From, To] interval.
type DateRange struct {
	From time.Time
	To   time.Time
}

package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar day, encoded as YYYY-MM-DD in JSON and stored as DATE.
type Date struct{ time.Time }

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) { return d.String(), nil }

// Transaction amounts are NUMERIC(10,2) kept as decimal strings.
type Transaction struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	ExpenseID       int64     `db:"expense_id" json:"expense_id"`
	Amount          string    `db:"amount" json:"amount"`
	Description     *string   `db:"description" json:"description"`
	TransactionDate Date      `db:"transaction_date" json:"transaction_date"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Filter narrows a listing; zero values do not filter.
type Filter struct {
	ExpenseID  int64
	CategoryID int64
	StartDate  *Date
	EndDate    *Date
	Skip       int
	Limit      int
}

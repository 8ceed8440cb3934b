package finance

import "time"

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserUpdate carries the fields to change; nil fields are left alone.
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type Category struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Expense struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	CategoryID int64     `json:"category_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Transaction amounts travel as decimal strings ("45.80").
type Transaction struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	ExpenseID       int64     `json:"expense_id"`
	Amount          string    `json:"amount"`
	Description     *string   `json:"description,omitempty"`
	TransactionDate string    `json:"transaction_date"`
	CreatedAt       time.Time `json:"created_at"`
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TransactionInput struct {
	ExpenseID       int64   `json:"expense_id"`
	Amount          string  `json:"amount"`
	Description     *string `json:"description,omitempty"`
	TransactionDate string  `json:"transaction_date"`
}

// TransactionFilter narrows a transaction listing; zero values are omitted.
type TransactionFilter struct {
	ExpenseID  int64
	CategoryID int64
	StartDate  string
	EndDate    string
	Skip       int
	Limit      int
}

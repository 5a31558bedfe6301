package model

import "time"

// Policy is an insurance policy owned by one identity.
type Policy struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Type      string    `json:"type"`
	Company   string    `json:"company"`
	Premium   float64   `json:"premium"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	CreatedAt time.Time `json:"createdAt"`

	Claims        []Claim       `json:"claims,omitempty"`
	Beneficiaries []Beneficiary `json:"beneficiaries,omitempty"`
}

type Claim struct {
	ID          int64     `json:"id"`
	PolicyID    int64     `json:"policyId"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	FiledAt     time.Time `json:"filedAt"`
}

type Beneficiary struct {
	ID         int64   `json:"id"`
	PolicyID   int64   `json:"policyId"`
	Name       string  `json:"name"`
	Relation   string  `json:"relation"`
	Percentage float64 `json:"percentage"`
}

type Payment struct {
	ID       int64     `json:"id"`
	PolicyID int64     `json:"policyId"`
	Amount   float64   `json:"amount"`
	Method   string    `json:"method"`
	PaidAt   time.Time `json:"paidAt"`
}

// Ticket is a support request raised by an identity. Answer stays empty
// until an administrator replies.
type Ticket struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Answer    string    `json:"answer,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	TicketOpen     = "OPEN"
	TicketAnswered = "ANSWERED"

	ClaimFiled    = "FILED"
	ClaimApproved = "APPROVED"
	ClaimRejected = "REJECTED"
)

package domain

// User is the customer snapshot the invoice is issued to.
type User struct {
	ID       string
	FullName string
	Email    string
	Phone    string
	Address  string
}

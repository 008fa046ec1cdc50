package entity

type User struct {
	ID        string `json:"user_id" db:"user_id"`
	Email     string `json:"email" db:"email"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Guest     bool   `json:"guest" db:"guest"`
}

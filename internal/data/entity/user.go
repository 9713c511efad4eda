package entity

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	Base
	Name          string   `db:"name"`
	Email         string   `db:"email"`
	PasswordHash  string   `db:"password"`
	Phone         *string  `db:"phone"`
	Role          UserRole `db:"role"`
	EmailVerified bool     `db:"email_verified"`
	IsActive      bool     `db:"is_active"`
}

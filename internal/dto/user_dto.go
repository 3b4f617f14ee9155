package dto

// UserCreateRequest is the admin payload for provisioning an account.
type UserCreateRequest struct {
	Username   string `json:"username" validate:"required,min=3,max=30"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=admin faculty hod student"`
	RollNumber string `json:"roll_number"`
	Department string `json:"department"`
}

// UserUpdateRequest is the admin payload for amending an account. Absent
// fields are left untouched.
type UserUpdateRequest struct {
	Email      *string `json:"email" validate:"omitempty,email"`
	Password   *string `json:"password" validate:"omitempty,min=6"`
	FirstName  *string `json:"first_name" validate:"omitempty,min=1"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1"`
	Role       *string `json:"role" validate:"omitempty,oneof=admin faculty hod student"`
	RollNumber *string `json:"roll_number"`
	Department *string `json:"department"`
	IsActive   *bool   `json:"is_active"`
}

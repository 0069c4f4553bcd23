package domain

import "strings"

// Role decides which portal accepts a session
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole maps a backend role string to a Role. Anything unknown is a plain user.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// UserProfile is the persisted identity of the signed in user.
// Field names match the record written by the mobile apps.
type UserProfile struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	AltContact  string `json:"altContact,omitempty"`
}

// IsAdmin reports whether the profile may use the admin portal
func (p UserProfile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ProfileUpdate is a partial profile. Nil fields are left untouched;
// email and role are not updatable.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	AltContact  *string `json:"altContact,omitempty"`
}

// IsEmpty reports whether the update carries no fields
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Phone == nil && u.DateOfBirth == nil && u.AltContact == nil
}

// Fields returns the present fields keyed by their persisted JSON name
func (u ProfileUpdate) Fields() map[string]string {
	fields := make(map[string]string, 4)
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Phone != nil {
		fields["phone"] = *u.Phone
	}
	if u.DateOfBirth != nil {
		fields["dateOfBirth"] = *u.DateOfBirth
	}
	if u.AltContact != nil {
		fields["altContact"] = *u.AltContact
	}
	return fields
}

// Apply copies the present fields of u onto p
func (p *UserProfile) Apply(u ProfileUpdate) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.DateOfBirth != nil {
		p.DateOfBirth = *u.DateOfBirth
	}
	if u.AltContact != nil {
		p.AltContact = *u.AltContact
	}
}

// StringPtr is a small helper for building ProfileUpdate values
func StringPtr(s string) *string {
	return &s
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AdminCode   string `json:"admin_code,omitempty"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	AltContact  string `json:"alt_contact,omitempty"`
}

// AuthResponse is what the backend returns from login and signup
type AuthResponse struct {
	Status      string `json:"status"`
	UserID      string `json:"user_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

// Profile converts the response into the profile the session stores
func (r AuthResponse) Profile() UserProfile {
	return UserProfile{
		Email: r.Email,
		Name:  r.Name,
		Role:  ParseRole(r.Role),
	}
}

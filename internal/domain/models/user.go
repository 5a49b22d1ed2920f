package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	EcoScore     *int      `json:"ecoScore,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) Contact() Contact {
	return Contact{Name: u.Name, Email: u.Email, Phone: u.Phone}
}

func (u *User) Profile() Profile {
	return Profile{Name: u.Name, Email: u.Email, Phone: u.Phone}
}

// Contact is where alerts for a user are delivered.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c Contact) Empty() bool {
	return c.Email == "" && c.Phone == ""
}

// Profile is the public part of a user returned to the dashboard.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Message string  `json:"message"`
	Token   string  `json:"token"`
	User    Profile `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LeaderboardEntry struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	EcoScore int    `json:"ecoScore"`
}

type LeaderboardRequest struct {
	Limit int `query:"limit" default:"10" validate:"min=1,max=100"`
}

type MeResponse struct {
	User Profile `json:"user"`
}

package models

import "time"

// Domain models matching the database schema in db/migrations/0001_init.sql

const (
	RoleAdmin      = "admin"
	RoleSpecialist = "specialist"
	RoleClient     = "client"
)

type Profile struct {
	ID              string    `json:"id"`
	Nome            string    `json:"nome"`
	Email           string    `json:"email"`
	AvatarURL       string    `json:"avatar_url"`
	Role            string    `json:"role"`
	PasswordHash    string    `json:"-"`
	BirthdayGreeted bool      `json:"birthday_greeted"`
	CreatedAt       time.Time `json:"created_at"`
}

type Specialist struct {
	ID              string    `json:"id"`
	Specialty       string    `json:"specialty"`
	Bio             string    `json:"bio"`
	ExperienceYears int       `json:"experience_years"`
	Rating          float64   `json:"rating"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type SpecialistDetail struct {
	ID                string    `json:"id"`
	ShortDescription  string    `json:"short_description"`
	LongDescription   string    `json:"long_description"`
	Education         string    `json:"education"`
	ThumbnailURL      string    `json:"thumbnail_url"`
	SessionsCompleted int       `json:"sessions_completed"`
	ExpertiseAreas    []string  `json:"expertise_areas"`
	Languages         []string  `json:"languages"`
	Certifications    []string  `json:"certifications"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SpecialistView is the denormalized profile + specialist + detail record served
// to listing and profile pages.
type SpecialistView struct {
	ID                string    `json:"id"`
	Nome              string    `json:"nome"`
	Email             string    `json:"email"`
	AvatarURL         string    `json:"avatar_url"`
	CreatedAt         time.Time `json:"created_at"`
	Specialty         string    `json:"specialty"`
	Bio               string    `json:"bio"`
	ExperienceYears   int       `json:"experience_years"`
	Rating            float64   `json:"rating"`
	ShortDescription  string    `json:"short_description"`
	LongDescription   string    `json:"long_description"`
	Education         string    `json:"education"`
	ThumbnailURL      string    `json:"thumbnail_url"`
	SessionsCompleted int       `json:"sessions_completed"`
	ExpertiseAreas    []string  `json:"expertise_areas"`
	Languages         []string  `json:"languages"`
	Certifications    []string  `json:"certifications"`
	HasSpecialistRow  bool      `json:"has_specialist_row"`
	HasDetailRow      bool      `json:"has_detail_row"`
}

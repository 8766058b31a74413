package handler

import "time"

// --- Auth ---

type signupRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=6,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name"  validate:"max=100"`
	Company   string `json:"company"    validate:"max=200"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type authResponse struct {
	Account   accountResponse `json:"account"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// --- Self-service ---

type profileRequest struct {
	FirstName         string `json:"first_name"         validate:"max=100"`
	LastName          string `json:"last_name"          validate:"max=100"`
	Company           string `json:"company"            validate:"max=200"`
	Phone             string `json:"phone"              validate:"max=40"`
	JobTitle          string `json:"job_title"          validate:"max=100"`
	Industry          string `json:"industry"           validate:"max=100"`
	CompanySize       string `json:"company_size"       validate:"max=50"`
	Website           string `json:"website"            validate:"omitempty,url"`
	Address           string `json:"address"            validate:"max=300"`
	BusinessGoals     string `json:"business_goals"     validate:"max=2000"`
	CurrentChallenges string `json:"current_challenges" validate:"max=2000"`
	PreferredBudget   string `json:"preferred_budget"   validate:"max=100"`
	ProjectTimeline   string `json:"project_timeline"   validate:"max=100"`
	ReferralSource    string `json:"referral_source"    validate:"max=100"`
}

type preferencesRequest struct {
	EmailNotifications bool   `json:"email_notifications"`
	MarketingConsent   bool   `json:"marketing_consent"`
	Language           string `json:"language" validate:"max=10"`
	Timezone           string `json:"timezone" validate:"max=64"`
	Theme              string `json:"theme"    validate:"omitempty,oneof=light dark system"`
}

type avatarRequest struct {
	URL      string `json:"url"       validate:"required,url"`
	PublicID string `json:"public_id" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6,max=72"`
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// --- Admin ---

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=standard admin"`
}

type setStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type accountResponse struct {
	ID              string             `json:"id"`
	Email           string             `json:"email"`
	Role            string             `json:"role"`
	Active          bool               `json:"active"`
	Verified        bool               `json:"verified"`
	ProfileComplete bool               `json:"profile_complete"`
	Profile         profileRequest     `json:"profile"`
	Preferences     preferencesRequest `json:"preferences"`
	Avatar          *avatarRequest     `json:"avatar,omitempty"`
	LastLoginAt     *time.Time         `json:"last_login_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type userListResponse struct {
	Items      []accountResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

type activityResponse struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

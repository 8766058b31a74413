package domain

import "time"

// Role is the authorization level of an account.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleAdmin
}

// Profile holds the optional business details collected after signup.
type Profile struct {
	FirstName         string `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty" bson:"last_name,omitempty"`
	Company           string `json:"company,omitempty" bson:"company,omitempty"`
	Phone             string `json:"phone,omitempty" bson:"phone,omitempty"`
	JobTitle          string `json:"job_title,omitempty" bson:"job_title,omitempty"`
	Industry          string `json:"industry,omitempty" bson:"industry,omitempty"`
	CompanySize       string `json:"company_size,omitempty" bson:"company_size,omitempty"`
	Website           string `json:"website,omitempty" bson:"website,omitempty"`
	Address           string `json:"address,omitempty" bson:"address,omitempty"`
	BusinessGoals     string `json:"business_goals,omitempty" bson:"business_goals,omitempty"`
	CurrentChallenges string `json:"current_challenges,omitempty" bson:"current_challenges,omitempty"`
	PreferredBudget   string `json:"preferred_budget,omitempty" bson:"preferred_budget,omitempty"`
	ProjectTimeline   string `json:"project_timeline,omitempty" bson:"project_timeline,omitempty"`
	ReferralSource    string `json:"referral_source,omitempty" bson:"referral_source,omitempty"`
}

// Preferences are user-controlled settings that do not affect billing.
type Preferences struct {
	EmailNotifications bool   `json:"email_notifications" bson:"email_notifications"`
	MarketingConsent   bool   `json:"marketing_consent" bson:"marketing_consent"`
	Language           string `json:"language,omitempty" bson:"language,omitempty"`
	Timezone           string `json:"timezone,omitempty" bson:"timezone,omitempty"`
	Theme              string `json:"theme,omitempty" bson:"theme,omitempty"`
}

// Attachment references a file already stored by the external file-storage service.
type Attachment struct {
	URL      string `json:"url" bson:"url"`
	PublicID string `json:"public_id" bson:"public_id"`
}

// Account is a registered identity with credentials and a role.
type Account struct {
	ID                string      `json:"id" bson:"_id"`
	Email             string      `json:"email" bson:"email"`
	PasswordHash      string      `json:"-" bson:"password_hash"`
	Role              Role        `json:"role" bson:"role"`
	Active            bool        `json:"active" bson:"active"`
	Verified          bool        `json:"verified" bson:"verified"`
	Profile           Profile     `json:"profile" bson:"profile"`
	ProfileComplete   bool        `json:"profile_complete" bson:"profile_complete"`
	Preferences       Preferences `json:"preferences" bson:"preferences"`
	Avatar            *Attachment `json:"avatar,omitempty" bson:"avatar,omitempty"`
	GatewayCustomerID string      `json:"-" bson:"gateway_customer_id,omitempty"`
	LastLoginAt       *time.Time  `json:"last_login_at,omitempty" bson:"last_login_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" bson:"updated_at"`
	// Version is bumped by every write and checked by AccountRepository.Update.
	Version int64 `json:"-" bson:"version"`
}

// IsAdmin reports whether the account holds the admin role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

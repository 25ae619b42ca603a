// Package model defines domain entities exchanged with the marketplace backend.
package model

import "time"

// User is the signed-in account as reported by the backend.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Session is the client's current belief about who is logged in.
// User and Token are either both set or both empty.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time // access token expiry (for diagnostics)
}

// IsAuthenticated reports whether the session carries both an identity and a credential.
func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

// Item is a single classifieds listing.
type Item struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
	Location    string   `json:"location"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	DatePosted  string   `json:"datePosted"`
	IsReserved  bool     `json:"isReserved"`
	// IsMyItem is derived relative to the current session, not stored server-side.
	IsMyItem bool `json:"isMyItem"`
}

// Comment is a single comment attached to an item.
type Comment struct {
	ID     int64  `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
	Date   string `json:"date"`
}

// Page is one page of a paginated listing response.
type Page struct {
	Items       []Item `json:"items"`
	CurrentPage int    `json:"currentPage"`
	TotalItems  int64  `json:"totalItems"`
	TotalPages  int    `json:"totalPages"`
}

// Profile is the extended account view returned by the profile endpoint.
type Profile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Credentials is the login request payload.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

// Registration is the register request payload.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

// LoginResponse is the backend's reply to a successful login.
type LoginResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Token     string `json:"token"`
}

// User converts the login reply into the session identity.
func (r LoginResponse) User() *User {
	return &User{ID: r.ID, Username: r.Username, Email: r.Email, AvatarURL: r.AvatarURL}
}

// ImageUpload is one image attached to a create/update request.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// MaxItemImages bounds how many images a listing may carry.
const MaxItemImages = 5

// MaxImageBytes bounds the size of a single uploaded image (2 MiB).
const MaxImageBytes = 2 << 20

// ItemDraft carries the fields of a create or update item request.
type ItemDraft struct {
	Title       string `validate:"required,min=3,max=100"`
	Description string `validate:"required,min=10,max=1000"`
	Category    string `validate:"required"`
	Location    string `validate:"required,min=3,max=100"`
	Condition   string `validate:"required"`
	Images      []ImageUpload
}

// CommentDraft carries the fields of an add-comment request.
type CommentDraft struct {
	ItemID int64  `validate:"required,gt=0"`
	Text   string `validate:"required,min=3,max=500"`
}

// PasswordChange is the change-password request payload.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=100"`
}

// Categories accepted by the backend for item listings.
var Categories = []string{
	"Elektronik", "Möbel", "Kleidung", "Bücher", "Sport",
	"Spielzeug", "Küche", "Garten", "Sonstiges",
}

// Conditions accepted by the backend for item listings.
var Conditions = []string{"Wie neu", "Gut", "Akzeptabel", "Schlecht"}

package entity

import (
	"strings"
	"time"
)

// PhotoRef points at the profile photo held in the blob store.
// It is either fully populated or the zero value, never half set.
type PhotoRef struct {
	AssetID string `json:"asset_id"`
	Locator string `json:"url"`
}

// NewPhotoRef returns a populated ref, or the zero value when assetID is blank.
func NewPhotoRef(assetID, locator string) PhotoRef {
	if strings.TrimSpace(assetID) == "" {
		return PhotoRef{}
	}
	return PhotoRef{AssetID: assetID, Locator: locator}
}

func (p PhotoRef) IsZero() bool { return p.AssetID == "" }

// User is the aggregate root for the user domain.
// PasswordHash holds a bcrypt hash; State false means soft-deleted.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	IsUser       bool
	State        bool
	Photo        PhotoRef
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Credentials is the projection the update path authorizes against.
type Credentials struct {
	ID           string
	Email        string
	FirstName    string
	PasswordHash string
	Photo        PhotoRef
}

// UserPatch is a partial update. Nil fields are left untouched.
// Photo, when set, replaces both photo columns at once.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	PasswordHash *string
	IsAdmin      *bool
	IsUser       *bool
	Photo        *PhotoRef
}

func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.PasswordHash == nil && p.IsAdmin == nil && p.IsUser == nil && p.Photo == nil
}

// ChangedFields lists the names of the fields the patch touches, for notifications.
func (p UserPatch) ChangedFields() []string {
	var out []string
	if p.FirstName != nil {
		out = append(out, "first_name")
	}
	if p.LastName != nil {
		out = append(out, "last_name")
	}
	if p.Email != nil {
		out = append(out, "email")
	}
	if p.PasswordHash != nil {
		out = append(out, "password")
	}
	if p.IsAdmin != nil {
		out = append(out, "is_admin")
	}
	if p.IsUser != nil {
		out = append(out, "is_user")
	}
	if p.Photo != nil {
		out = append(out, "photo")
	}
	return out
}

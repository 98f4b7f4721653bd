package models

import (
	"time"
)

// User is the local profile shell of an identity owned by the identity
// provider. The id is the provider's user id.
type User struct {
	Id             string    `json:"_id" bson:"_id"`
	Email          string    `json:"email" bson:"email"`
	FullName       string    `json:"full_name" bson:"full_name"`
	Username       string    `json:"username" bson:"username"`
	Bio            string    `json:"bio" bson:"bio"`
	Location       string    `json:"location" bson:"location"`
	ProfilePicture string    `json:"profile_picture" bson:"profile_picture"`
	CoverPhoto     string    `json:"cover_photo" bson:"cover_photo"`
	Followers      []string  `json:"followers" bson:"followers"`
	Following      []string  `json:"following" bson:"following"`
	Connections    []string  `json:"connections" bson:"connections"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updated_at"`
}

// UserDto is the summary embedded in connection lists, inbox entries and
// pushed messages.
type UserDto struct {
	ID             string `bson:"_id" json:"_id"`
	FullName       string `bson:"full_name" json:"full_name"`
	Username       string `bson:"username" json:"username"`
	ProfilePicture string `bson:"profile_picture" json:"profile_picture"`
	Bio            string `bson:"bio" json:"bio,omitempty"`
}

func (u *User) Summary() UserDto {
	return UserDto{
		ID:             u.Id,
		FullName:       u.FullName,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
	}
}

// Edge names one of the identity graph sets stored on a user document.
type Edge string

const (
	EdgeFollowers   Edge = "followers"
	EdgeFollowing   Edge = "following"
	EdgeConnections Edge = "connections"
)

func (e Edge) Valid() bool {
	switch e {
	case EdgeFollowers, EdgeFollowing, EdgeConnections:
		return true
	}
	return false
}

// Members returns the slice backing edge e on u.
func (u *User) Members(e Edge) []string {
	switch e {
	case EdgeFollowers:
		return u.Followers
	case EdgeFollowing:
		return u.Following
	case EdgeConnections:
		return u.Connections
	}
	return nil
}

// HasMember reports whether id is in edge e of u.
func (u *User) HasMember(e Edge, id string) bool {
	for _, m := range u.Members(e) {
		if m == id {
			return true
		}
	}
	return false
}

// ProfileUpdate carries the display fields refreshed from the identity
// provider. Empty fields are left untouched.
type ProfileUpdate struct {
	Email          string
	FullName       string
	ProfilePicture string
}

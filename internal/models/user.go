package models

import (
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type SubscriptionStatus string

const (
	SubscriptionFree    SubscriptionStatus = "free"
	SubscriptionPremium SubscriptionStatus = "premium"
)

type User struct {
	ID    string  `json:"id" gorm:"primaryKey;size:255"`
	Phone *string `json:"phone,omitempty" gorm:"uniqueIndex;size:20"`
	Name  string  `json:"name" gorm:"size:100"`
	Email *string `json:"email,omitempty" gorm:"size:255"`

	ExamPreparations  datatypes.JSONSlice[ExamCategory] `json:"examPreparations" gorm:"type:jsonb"`
	PreferredLanguage Language                          `json:"preferredLanguage" gorm:"size:10;default:English"`
	Role              UserRole                          `json:"role" gorm:"size:10;default:user"`

	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus" gorm:"size:10;default:free"`
	SubscriptionExpiry *time.Time         `json:"subscriptionExpiry"`

	// Weekly quota state
	WeeklyExamsAttempted int       `json:"weeklyExamsAttempted" gorm:"default:0"`
	LastWeekReset        time.Time `json:"lastWeekReset"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// IsPremium reports whether the subscription is premium and not past its expiry
func (u *User) IsPremium(now time.Time) bool {
	if u.SubscriptionStatus != SubscriptionPremium {
		return false
	}
	return u.SubscriptionExpiry == nil || u.SubscriptionExpiry.After(now)
}

func (u *User) IsPreparingFor(category ExamCategory) bool {
	for _, c := range u.ExamPreparations {
		if c == category {
			return true
		}
	}
	return false
}

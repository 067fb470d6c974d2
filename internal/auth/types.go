package auth

import "time"

// Group is a role label shared by its member accounts.
type Group struct {
	ID   int64
	Code string
	Name string
}

// Account is a login identity. Password holds the stored secret reference (already hashed).
type Account struct {
	ID         int64
	Code       string
	Name       string
	Password   string
	Blocked    bool
	Archived   bool
	ActivateOn *time.Time
	ExpiresOn  *time.Time
	Group      *Group
}

// IsActive reports whether the account may authenticate at the given instant.
func (a *Account) IsActive(now time.Time) bool {
	if a == nil || a.Blocked || a.Archived {
		return false
	}
	if a.ActivateOn != nil && a.ActivateOn.After(now) {
		return false
	}
	if a.ExpiresOn != nil && !a.ExpiresOn.After(now) {
		return false
	}
	return true
}

// Accepted is the result of a successful credential check.
type Accepted struct {
	Code string
}

// AuthorizationInfo lists the role labels held by an identity.
type AuthorizationInfo struct {
	Code  string   `json:"code"`
	Roles []string `json:"roles"`
}

// HasRole reports whether role is among the resolved role labels.
func (a AuthorizationInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func authorizationFor(account *Account) AuthorizationInfo {
	info := AuthorizationInfo{Code: account.Code, Roles: []string{}}
	if account.Group != nil && account.Group.Code != "" {
		info.Roles = append(info.Roles, account.Group.Code)
	}
	return info
}

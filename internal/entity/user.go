package entity

import (
	"github.com/gofrs/uuid/v5"
)

// User is the authenticated caller. The identity provider lives outside this
// service; we only carry the stable identifier and email it issued.
type User struct {
	ID    uuid.UUID
	Email string
}

func (u User) String() string {
	return u.ID.String()
}

package domain

import (
	"context"
	"errors"
)

type Capability string

const (
	CapabilityReadSelf   Capability = "read:self"
	CapabilityAdminister Capability = "admin:*"
)

var ErrForbidden = errors.New("capability not granted")

// Authorizer decides whether a user may exercise a capability. Callers do not
// inspect roles directly.
type Authorizer interface {
	Authorize(ctx context.Context, user *User, capability Capability) error
}

// RolePolicy grants capabilities from a static role table.
type RolePolicy struct {
	grants map[Role]map[Capability]bool
}

func NewRolePolicy() *RolePolicy {
	return &RolePolicy{
		grants: map[Role]map[Capability]bool{
			RoleUser: {
				CapabilityReadSelf: true,
			},
			RoleAdmin: {
				CapabilityReadSelf:   true,
				CapabilityAdminister: true,
			},
		},
	}
}

func (p *RolePolicy) Authorize(_ context.Context, user *User, capability Capability) error {
	if user == nil {
		return ErrForbidden
	}
	if p.grants[user.Role][capability] {
		return nil
	}
	return ErrForbidden
}

var _ Authorizer = (*RolePolicy)(nil)

package ledger

// Role is a bit set of named authorization grants.
type Role uint8

const (
	RoleGovernment Role = 1 << iota
	RoleAdmin
	RolePauser
)

func (r Role) String() string {
	switch r {
	case RoleGovernment:
		return "GOVERNMENT"
	case RoleAdmin:
		return "ADMIN"
	case RolePauser:
		return "PAUSER"
	}
	return "UNKNOWN"
}

func (c *core) hasRole(id string, r Role) bool {
	return c.roles[id]&r != 0
}

// GrantRole adds a role to an identity. Admin only; effective immediately.
func (e *Engine) GrantRole(caller, id string, r Role) error {
	c := e.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settling {
		return ErrReentrantCall
	}
	if !c.hasRole(caller, RoleAdmin) {
		return ErrUnauthorized
	}
	if id == "" {
		return ErrInvalidAddress
	}
	c.roles[id] |= r
	c.audit(caller, "ACCESS", "ROLE_GRANTED", map[string]any{"identity": id, "role": r.String()})
	return nil
}

// RevokeRole removes a role from an identity. Admin only.
func (e *Engine) RevokeRole(caller, id string, r Role) error {
	c := e.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settling {
		return ErrReentrantCall
	}
	if !c.hasRole(caller, RoleAdmin) {
		return ErrUnauthorized
	}
	if id == "" {
		return ErrInvalidAddress
	}
	c.roles[id] &^= r
	if c.roles[id] == 0 {
		delete(c.roles, id)
	}
	c.audit(caller, "ACCESS", "ROLE_REVOKED", map[string]any{"identity": id, "role": r.String()})
	return nil
}

func (e *Engine) HasRole(id string, r Role) bool {
	c := e.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasRole(id, r)
}

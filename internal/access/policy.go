package access

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role grants a set of capabilities. A "*" entry grants all of them.
type Role struct {
	Name         string       `yaml:"name"`
	Capabilities []Capability `yaml:"capabilities"`
}

// PolicyConfig is the on-disk shape of the permissions file.
type PolicyConfig struct {
	Roles []Role `yaml:"roles"`
}

// RolePolicy authorizes by role membership.
type RolePolicy struct {
	roles map[string]map[Capability]bool
}

// NewRolePolicy validates cfg and indexes it by role.
func NewRolePolicy(cfg PolicyConfig) (*RolePolicy, error) {
	p := &RolePolicy{roles: make(map[string]map[Capability]bool, len(cfg.Roles))}

	for _, role := range cfg.Roles {
		name := strings.TrimSpace(role.Name)
		if name == "" {
			return nil, fmt.Errorf("role without a name")
		}
		if _, dup := p.roles[name]; dup {
			return nil, fmt.Errorf("role %q defined twice", name)
		}

		caps := make(map[Capability]bool)
		for _, c := range role.Capabilities {
			if c == "*" {
				for _, all := range Capabilities {
					caps[all] = true
				}
				continue
			}
			if !c.Valid() {
				return nil, fmt.Errorf("role %q: unknown capability %q", name, c)
			}
			caps[c] = true
		}
		p.roles[name] = caps
	}

	return p, nil
}

// LoadRolePolicy reads a YAML permissions file.
func LoadRolePolicy(path string) (*RolePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := PolicyConfig{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse permissions file: %w", err)
	}

	return NewRolePolicy(cfg)
}

func (p *RolePolicy) Authorize(_ context.Context, id Identity, capability Capability) Decision {
	caps, ok := p.roles[id.Role]
	if !ok {
		return Deny(fmt.Sprintf("unknown role %q", id.Role))
	}
	if !caps[capability] {
		return Deny(fmt.Sprintf("role %q lacks %s", id.Role, capability))
	}
	return Allow()
}

// HasRole reports whether role is defined.
func (p *RolePolicy) HasRole(role string) bool {
	_, ok := p.roles[role]
	return ok
}

// DefaultPolicy is used when no permissions file is configured.
func DefaultPolicy() *RolePolicy {
	p, err := NewRolePolicy(PolicyConfig{Roles: []Role{
		{Name: "admin", Capabilities: []Capability{"*"}},
		{Name: "manager", Capabilities: []Capability{
			CategoryCreate, CategoryDelete, MenuCreate, MenuUpdate, MenuDelete,
			TableView, TableCreate, TableDelete, TableChangeStatus,
			ReservationView, ReservationCreate, ReservationUpdate, ReservationDelete,
			OrderView, OrderCreate, OrderChangeStatus, OrderItemAdd, OrderItemChange,
			PaymentView, PaymentCreate, PaymentChangeStatus,
		}},
		{Name: "waiter", Capabilities: []Capability{
			TableView, TableChangeStatus,
			ReservationView, ReservationCreate, ReservationUpdate, ReservationDelete,
			OrderView, OrderCreate, OrderChangeStatus, OrderItemAdd, OrderItemChange,
			PaymentView, PaymentCreate,
		}},
		{Name: "cashier", Capabilities: []Capability{
			TableView, OrderView, PaymentView, PaymentCreate, PaymentChangeStatus,
		}},
	}})
	if err != nil {
		panic(err)
	}
	return p
}

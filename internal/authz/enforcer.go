package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const rbacModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

// Enforcer answers "may role do action" from an in-memory casbin policy
// loaded from the role table.
type Enforcer struct {
	e *casbin.Enforcer
}

func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	var rules [][]string
	for _, role := range Roles {
		for _, a := range Actions {
			if AllowedActions(role)[a] {
				rules = append(rules, []string{string(role), string(a)})
			}
		}
	}
	if _, err := e.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	return &Enforcer{e: e}, nil
}

// Can reports whether role may perform action. Enforcement errors deny.
func (en *Enforcer) Can(role Role, action Action) bool {
	ok, err := en.e.Enforce(string(role), string(action))
	return err == nil && ok
}

package auth

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
)

// Resources guarded in the admin area.
const (
	ResourceDashboard     = "dashboard"
	ResourceOrders        = "orders"
	ResourceProducts      = "products"
	ResourceCustomers     = "customers"
	ResourceMessages      = "messages"
	ResourceNotifications = "notifications"
	ResourceSettings      = "settings"
	ResourceUsers         = "users"

	ActionRead  = "read"
	ActionWrite = "write"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

//go:embed policy.csv
var defaultPolicy string

// Authorizer answers role/resource/action questions from a casbin RBAC model.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

// NewAuthorizer loads the built-in policy.
func NewAuthorizer() (*Authorizer, error) {
	return NewAuthorizerFromPolicy(defaultPolicy)
}

// NewAuthorizerFromPolicy loads policy lines in casbin CSV form
// ("p, role, resource, action" and "g, role, parent").
func NewAuthorizerFromPolicy(policy string) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("init enforcer: %w", err)
	}
	for n, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		switch {
		case fields[0] == "p" && len(fields) == 4:
			_, err = e.AddPolicy(fields[1], fields[2], fields[3])
		case fields[0] == "g" && len(fields) == 3:
			_, err = e.AddGroupingPolicy(fields[1], fields[2])
		default:
			err = fmt.Errorf("malformed rule %q", line)
		}
		if err != nil {
			return nil, fmt.Errorf("policy line %d: %w", n+1, err)
		}
	}
	return &Authorizer{enforcer: e}, nil
}

// Allowed reports whether role may perform action on resource.
func (a *Authorizer) Allowed(role models.Role, resource, action string) bool {
	ok, err := a.enforcer.Enforce(string(models.NormalizeRole(role)), resource, action)
	return err == nil && ok
}

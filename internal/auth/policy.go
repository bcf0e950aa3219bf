package auth

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"autoservice/internal/domain"
)

// Action пара (ресурс, действие), которую проверяет политика
type Action struct {
	Object string
	Act    string
}

func (a Action) String() string { return a.Object + ":" + a.Act }

var (
	AppointmentCreate       = Action{"appointment", "create"}
	AppointmentRead         = Action{"appointment", "read"}
	AppointmentUpdateStatus = Action{"appointment", "update_status"}
	AppointmentAssignMaster = Action{"appointment", "assign_master"}
	AppointmentDelete       = Action{"appointment", "delete"}

	OrderCreate       = Action{"order", "create"}
	OrderRead         = Action{"order", "read"}
	OrderUpdateStatus = Action{"order", "update_status"}
	OrderAddItem      = Action{"order", "add_item"}
	OrderDelete       = Action{"order", "delete"}

	ProductManage = Action{"product", "manage"}
	ServiceManage = Action{"service", "manage"}
	UserManage    = Action{"user", "manage"}
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && (r.act == p.act || p.act == "*")
`

// правила роль -> действие; проверка владения выполняется в сервисах
var rules = [][]string{
	{string(domain.RoleClient), "appointment", "create"},
	{string(domain.RoleClient), "appointment", "read"},
	{string(domain.RoleClient), "appointment", "delete"},
	{string(domain.RoleClient), "order", "create"},
	{string(domain.RoleClient), "order", "read"},
	{string(domain.RoleClient), "order", "add_item"},
	{string(domain.RoleClient), "order", "delete"},

	{string(domain.RoleMaster), "appointment", "read"},
	{string(domain.RoleMaster), "appointment", "update_status"},

	{string(domain.RoleAdmin), "appointment", "*"},
	{string(domain.RoleAdmin), "order", "*"},
	{string(domain.RoleAdmin), "product", "*"},
	{string(domain.RoleAdmin), "service", "*"},
	{string(domain.RoleAdmin), "user", "*"},
}

// Decision результат проверки с причиной отказа
type Decision struct {
	Allowed bool
	Reason  string
}

// Authorizer решает, может ли вызывающий выполнить действие
type Authorizer interface {
	Authorize(p Principal, a Action) Decision
}

// Policy RBAC-политика на casbin
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize enforcer: %w", err)
	}
	for _, r := range rules {
		if _, err := e.AddPolicy(r[0], r[1], r[2]); err != nil {
			return nil, fmt.Errorf("failed to add policy %v: %w", r, err)
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Authorize(pr Principal, a Action) Decision {
	if pr.UserID == "" || len(pr.Roles) == 0 {
		return Decision{Reason: "unauthenticated caller"}
	}
	for _, role := range pr.Roles {
		ok, err := p.enforcer.Enforce(string(role), a.Object, a.Act)
		if err != nil {
			return Decision{Reason: fmt.Sprintf("policy check failed: %v", err)}
		}
		if ok {
			return Decision{Allowed: true}
		}
	}
	roles := make([]string, 0, len(pr.Roles))
	for _, r := range pr.Roles {
		roles = append(roles, string(r))
	}
	return Decision{Reason: fmt.Sprintf("roles [%s] may not perform %s", strings.Join(roles, ","), a)}
}

// Require превращает отказ в domain.ErrForbidden
func Require(az Authorizer, p Principal, a Action) error {
	if d := az.Authorize(p, a); !d.Allowed {
		return domain.Forbidden("%s", d.Reason)
	}
	return nil
}

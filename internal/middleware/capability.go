package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

// HeaderUserRole carries the caller's role. It is trusted as sent; the
// check below decides what a role may do, not who the caller is.
const HeaderUserRole = "X-User-Role"

const ContextUserRole = "user_role"

const capabilityModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// NewCapabilityEnforcer loads role policies into an in-memory enforcer.
func NewCapabilityEnforcer(policies []config.CapabilityPolicy) (*casbin.Enforcer, error) {
	m, err := casbinmodel.NewModelFromString(capabilityModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse capability model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	rules := make([][]string, 0, len(policies))
	for _, p := range policies {
		rules = append(rules, []string{strings.ToLower(p.Role), p.Resource, p.Action})
	}
	if len(rules) > 0 {
		if _, err := e.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("failed to load capability policies: %w", err)
		}
	}
	return e, nil
}

type CapabilityMiddleware struct {
	enforcer *casbin.Enforcer
}

func NewCapabilityMiddleware(enforcer *casbin.Enforcer) *CapabilityMiddleware {
	return &CapabilityMiddleware{enforcer: enforcer}
}

// Require aborts with 403 unless the caller's role may perform action on
// resource.
func (m *CapabilityMiddleware) Require(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole)))
		if role == "" {
			httputil.AbortWithMessage(c, http.StatusForbidden, "missing "+HeaderUserRole+" header")
			return
		}

		ok, err := m.enforcer.Enforce(role, resource, action)
		if err != nil {
			log.Error().Err(err).Str("role", role).Msg("capability check failed")
			httputil.AbortWithMessage(c, http.StatusInternalServerError, "internal server error")
			return
		}
		if !ok {
			httputil.AbortWithMessage(c, http.StatusForbidden,
				fmt.Sprintf("role %q may not %s %s", role, action, resource))
			return
		}

		c.Set(ContextUserRole, role)
		c.Next()
	}
}

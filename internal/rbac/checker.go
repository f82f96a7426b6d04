package rbac

import (
	"context"
	"strings"
)

type Checker struct {
	perms map[string][]string
}

// NewChecker builds a checker over a role->permission table; nil uses the
// package default policy.
func NewChecker(perms map[string][]string) *Checker {
	if perms == nil {
		perms = RolePermissions
	}
	return &Checker{perms: perms}
}

func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.perms[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// ---- identity in context ----

type ctxKey int

const (
	ctxKeyRole ctxKey = iota
	ctxKeySub
)

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

func RoleFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRole).(string); ok {
		return s
	}
	return ""
}

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeySub).(string); ok {
		return s
	}
	return ""
}

// Package gate decides, from the request path and the caller's session
// claims alone, whether a request may proceed.
package gate

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"expressconnect/internal/models"
	"expressconnect/internal/security"
)

type Action int

const (
	Forward Action = iota
	Redirect
	Reject
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case Redirect:
		return "redirect"
	case Reject:
		return "reject"
	}
	return "unknown"
}

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbiddenTenantMismatch = errors.New("forbidden: tenant mismatch")
	ErrUnknownRole             = errors.New("unknown role")
)

// Decision is the outcome for one request. Location is set for redirects,
// Status for rejections. Reason is informational and nil on the happy path.
type Decision struct {
	Action   Action
	Location string
	Status   int
	Reason   error
}

func forward() Decision {
	return Decision{Action: Forward}
}

func redirect(location string, reason error) Decision {
	return Decision{Action: Redirect, Location: location, Status: http.StatusFound, Reason: reason}
}

func reject(status int, reason error) Decision {
	return Decision{Action: Reject, Status: status, Reason: reason}
}

type Config struct {
	// APIPrefixes stay reachable without a session.
	APIPrefixes      []string
	SignInPath       string
	UnauthorizedPath string
	AdminHome        string
}

const (
	segmentAPI      = "api"
	segmentHost     = "host"
	segmentAttendee = "attendee"
	segmentAdmin    = "admin"
)

type Gate struct {
	apiPrefixes      []string
	signInPath       string
	unauthorizedPath string
	adminHome        string
}

func New(cfg Config) *Gate {
	g := &Gate{
		signInPath:       cfg.SignInPath,
		unauthorizedPath: cfg.UnauthorizedPath,
		adminHome:        cfg.AdminHome,
	}
	if g.signInPath == "" {
		g.signInPath = "/auth/signin"
	}
	if g.unauthorizedPath == "" {
		g.unauthorizedPath = "/auth/unauthorized"
	}
	if g.adminHome == "" {
		g.adminHome = "/admin/me"
	}

	prefixes := cfg.APIPrefixes
	if len(prefixes) == 0 {
		prefixes = []string{"/api/auth/", "/api/users/"}
	}
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g.apiPrefixes = append(g.apiPrefixes, strings.TrimSuffix(p, "/")+"/")
	}
	return g
}

// Authorize has no side effects; the same path and claims always produce
// the same decision. A nil claims pointer means no session.
func (g *Gate) Authorize(requestPath string, claims *security.SessionClaims) Decision {
	p := path.Clean("/" + requestPath)
	first, second := splitSegments(p)

	if claims != nil && models.Role(claims.Role) == models.RoleAdmin {
		return forward()
	}

	if g.isPublicAPI(p) {
		return forward()
	}

	if first == segmentAPI {
		if claims == nil {
			return reject(http.StatusUnauthorized, ErrUnauthorized)
		}
		return forward()
	}

	if p == "/" {
		if claims == nil {
			return redirect(g.signInPath, ErrUnauthorized)
		}
		home, ok := g.Home(*claims)
		if !ok {
			return redirect(g.unauthorizedPath, ErrUnknownRole)
		}
		return redirect(home, nil)
	}

	if !isProtected(p) {
		return forward()
	}

	if claims == nil {
		return redirect(g.signInPath, ErrUnauthorized)
	}

	role := models.Role(claims.Role)
	switch {
	case role.IsHost():
		if first == segmentHost && claims.HostID != "" && second == claims.HostID {
			return forward()
		}
	case role.IsAttendee():
		if first == segmentAttendee && claims.AttendeeID != "" && second == claims.AttendeeID {
			return forward()
		}
	default:
		return redirect(g.unauthorizedPath, ErrUnknownRole)
	}

	home, ok := g.Home(*claims)
	if !ok {
		return redirect(g.unauthorizedPath, ErrForbiddenTenantMismatch)
	}
	return redirect(home, ErrForbiddenTenantMismatch)
}

// Home is the landing page for the claims' role. It reports false for an
// unknown role or a tenant role without its tenant id.
func (g *Gate) Home(claims security.SessionClaims) (string, bool) {
	role := models.Role(claims.Role)
	switch {
	case role == models.RoleAdmin:
		return g.adminHome, true
	case role.IsHost():
		if claims.HostID == "" {
			return "", false
		}
		return "/host/" + claims.HostID + "/dashboard", true
	case role.IsAttendee():
		if claims.AttendeeID == "" {
			return "", false
		}
		return "/attendee/" + claims.AttendeeID + "/dashboard", true
	}
	return "", false
}

func (g *Gate) isPublicAPI(p string) bool {
	for _, prefix := range g.apiPrefixes {
		if strings.HasPrefix(p, prefix) || p == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}
	return false
}

// isProtected matches the tenant and admin trees by plain string prefix, so
// lookalikes such as /hostess or /admin-panel are guarded too. Tenant
// ownership is still checked on whole segments.
func isProtected(p string) bool {
	for _, prefix := range []string{"/" + segmentHost, "/" + segmentAttendee, "/" + segmentAdmin} {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// splitSegments returns the first two segments of a cleaned absolute path.
func splitSegments(p string) (string, string) {
	parts := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 3)
	first := parts[0]
	second := ""
	if len(parts) > 1 {
		second = parts[1]
	}
	return first, second
}

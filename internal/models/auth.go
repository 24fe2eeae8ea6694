package models

import "github.com/golang-jwt/jwt/v5"

// Role is the active role a user is acting under.
type Role string

const (
	RoleAdmin              Role = "admin"
	RoleTeacher            Role = "teacher"
	RoleUpperManagement    Role = "upper-management"
	RoleHighLevelDashboard Role = "high-level-dashboard"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleUpperManagement, RoleHighLevelDashboard:
		return true
	}
	return false
}

// Actor is the current user as seen by the enrollment engine.
type Actor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ActiveRole Role   `json:"activeRole"`
}

// CanEditDirectly reports whether the actor mutates schedules without review.
func (a *Actor) CanEditDirectly() bool {
	return a != nil && a.ActiveRole == RoleAdmin
}

// CanRequestChanges reports whether the actor may raise change requests.
func (a *Actor) CanRequestChanges() bool {
	return a != nil && a.ActiveRole == RoleTeacher
}

// CanViewReports reports whether the actor may read school-wide aggregates.
func (a *Actor) CanViewReports() bool {
	if a == nil {
		return false
	}
	switch a.ActiveRole {
	case RoleAdmin, RoleUpperManagement, RoleHighLevelDashboard:
		return true
	}
	return false
}

// ActorClaims is the JWT payload identifying an actor.
type ActorClaims struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	ActiveRole Role   `json:"active_role"`
	jwt.RegisteredClaims
}

// Actor converts claims into an Actor.
func (c *ActorClaims) Actor() *Actor {
	if c == nil {
		return nil
	}
	return &Actor{ID: c.UserID, Name: c.Name, ActiveRole: c.ActiveRole}
}

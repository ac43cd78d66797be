// Package authz is the single place that decides what a role may do.
package authz

import (
	"fmt"
	"slices"
	"strings"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleClubAdmin Role = "club-admin"
	RoleStudent   Role = "student"
	RolePublic    Role = "public"
)

var Roles = []Role{RoleAdmin, RoleClubAdmin, RoleStudent, RolePublic}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Roles, r) {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

type Action string

const (
	ActionBrowse        Action = "browse"
	ActionReportIssue   Action = "report_issue"
	ActionVote          Action = "vote"
	ActionUploadImage   Action = "upload_image"
	ActionResolveIssue  Action = "resolve_issue"
	ActionApplyLeave    Action = "apply_leave"
	ActionDecideLeave   Action = "decide_leave"
	ActionUseGatePass   Action = "use_gate_pass"
	ActionViewGateLog   Action = "view_gate_log"
	ActionPublishEvent  Action = "publish_event"
	ActionViewDashboard Action = "view_admin_dashboard"
)

var Actions = []Action{
	ActionBrowse, ActionReportIssue, ActionVote, ActionUploadImage,
	ActionResolveIssue, ActionApplyLeave, ActionDecideLeave,
	ActionUseGatePass, ActionViewGateLog, ActionPublishEvent, ActionViewDashboard,
}

// The three audiences views are gated on.
var (
	AdminOnly     = []Role{RoleAdmin}
	CampusMembers = []Role{RoleStudent, RoleClubAdmin}
	Organisers    = []Role{RoleAdmin, RoleClubAdmin}
)

// audience lists, per action, the roles allowed to perform it.
var audience = map[Action][]Role{
	ActionBrowse:        Roles,
	ActionReportIssue:   CampusMembers,
	ActionVote:          CampusMembers,
	ActionUploadImage:   {RoleAdmin, RoleClubAdmin, RoleStudent},
	ActionResolveIssue:  AdminOnly,
	ActionApplyLeave:    CampusMembers,
	ActionDecideLeave:   AdminOnly,
	ActionUseGatePass:   CampusMembers,
	ActionViewGateLog:   AdminOnly,
	ActionPublishEvent:  Organisers,
	ActionViewDashboard: AdminOnly,
}

// AllowedActions returns every action role may perform. Unknown roles get nothing.
func AllowedActions(role Role) map[Action]bool {
	out := make(map[Action]bool)
	for _, a := range Actions {
		if slices.Contains(audience[a], role) {
			out[a] = true
		}
	}
	return out
}

// Audience returns the roles allowed to perform a.
func Audience(a Action) []Role {
	return slices.Clone(audience[a])
}

// Permits reports whether role is in the allowed set.
func Permits(allowed []Role, role Role) bool {
	return slices.Contains(allowed, role)
}

// Package hierarchy computes record visibility for the three-level reporting
// structure: directors see everything, managers see their direct reports'
// records, agents see their own. All resolvers are pure functions over user
// and client snapshots so callers pass the viewer explicitly.
package hierarchy

import "github.com/spec-kit/realty-crm/internal/domain"

// ManagerSeesOwnClients controls whether a manager's visible client set also
// includes clients the manager owns directly (UserID == manager ID). Managers
// normally never own clients, so the scope stays subordinates-only.
const ManagerSeesOwnClients = false

// SubordinateIDs returns the IDs of users directly reporting to the viewer.
// A ManagerID pointing at a non-existent user never matches any viewer, so
// orphaned users drop out of every subordinate computation.
func SubordinateIDs(viewer *domain.User, users []domain.User) map[string]struct{} {
	ids := make(map[string]struct{})
	if viewer == nil {
		return ids
	}
	for _, u := range users {
		if u.ReportsTo(viewer.ID) {
			ids[u.ID] = struct{}{}
		}
	}
	return ids
}

// VisibleClients narrows the client set to what the viewer may see.
// A nil viewer sees nothing. Input order is preserved.
func VisibleClients(viewer *domain.User, users []domain.User, clients []domain.Client) []domain.Client {
	if viewer == nil {
		return []domain.Client{}
	}
	switch viewer.Role {
	case domain.RoleDirector:
		out := make([]domain.Client, len(clients))
		copy(out, clients)
		return out
	case domain.RoleManager:
		subordinates := SubordinateIDs(viewer, users)
		out := make([]domain.Client, 0, len(clients))
		for _, c := range clients {
			if _, ok := subordinates[c.UserID]; ok {
				out = append(out, c)
				continue
			}
			if ManagerSeesOwnClients && c.UserID == viewer.ID {
				out = append(out, c)
			}
		}
		return out
	case domain.RoleAgent:
		out := make([]domain.Client, 0, len(clients))
		for _, c := range clients {
			if c.UserID == viewer.ID {
				out = append(out, c)
			}
		}
		return out
	default:
		return []domain.Client{}
	}
}

// CanViewClient reports whether a single client falls inside the viewer's
// visibility scope.
func CanViewClient(viewer *domain.User, users []domain.User, client *domain.Client) bool {
	if viewer == nil || client == nil {
		return false
	}
	switch viewer.Role {
	case domain.RoleDirector:
		return true
	case domain.RoleManager:
		if ManagerSeesOwnClients && client.UserID == viewer.ID {
			return true
		}
		_, ok := SubordinateIDs(viewer, users)[client.UserID]
		return ok
	case domain.RoleAgent:
		return client.UserID == viewer.ID
	default:
		return false
	}
}

// VisibleUsers narrows the user set to what the viewer may see: directors see
// everyone, managers see their direct reports plus themselves, agents see
// only themselves.
func VisibleUsers(viewer *domain.User, users []domain.User) []domain.User {
	if viewer == nil {
		return []domain.User{}
	}
	switch viewer.Role {
	case domain.RoleDirector:
		out := make([]domain.User, len(users))
		copy(out, users)
		return out
	case domain.RoleManager:
		out := make([]domain.User, 0, len(users))
		for _, u := range users {
			if u.ReportsTo(viewer.ID) || u.ID == viewer.ID {
				out = append(out, u)
			}
		}
		return out
	case domain.RoleAgent:
		out := make([]domain.User, 0, 1)
		for _, u := range users {
			if u.ID == viewer.ID {
				out = append(out, u)
			}
		}
		return out
	default:
		return []domain.User{}
	}
}

// AssignableAgents returns the agents the viewer may assign clients to:
// directors pick any agent, managers pick their own agents, agents only
// themselves.
func AssignableAgents(viewer *domain.User, users []domain.User) []domain.User {
	if viewer == nil {
		return []domain.User{}
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.Role != domain.RoleAgent {
			continue
		}
		switch viewer.Role {
		case domain.RoleDirector:
			out = append(out, u)
		case domain.RoleManager:
			if u.ReportsTo(viewer.ID) {
				out = append(out, u)
			}
		case domain.RoleAgent:
			if u.ID == viewer.ID {
				out = append(out, u)
			}
		}
	}
	return out
}

// CanManageUser reports whether the viewer may edit or delete the target.
// Directors manage everyone. A manager manages their direct reports and, as
// inherited behavior, any agent regardless of reporting line. Agents manage
// nobody, themselves included.
func CanManageUser(viewer *domain.User, target *domain.User) bool {
	if viewer == nil || target == nil {
		return false
	}
	switch viewer.Role {
	case domain.RoleDirector:
		return true
	case domain.RoleManager:
		return target.ReportsTo(viewer.ID) || target.Role == domain.RoleAgent
	default:
		return false
	}
}

// ValidateReportsTo checks that a role/manager pairing keeps the hierarchy a
// two-level forest: directors report to nobody, managers to a director,
// agents to a manager. Returns the offending expectation when invalid.
func ValidateReportsTo(role domain.Role, managerID *string, users []domain.User) (ok bool, expected domain.Role) {
	switch role {
	case domain.RoleDirector:
		return managerID == nil, ""
	case domain.RoleManager:
		expected = domain.RoleDirector
	case domain.RoleAgent:
		expected = domain.RoleManager
	default:
		return false, ""
	}
	if managerID == nil {
		return false, expected
	}
	for _, u := range users {
		if u.ID == *managerID {
			return u.Role == expected, expected
		}
	}
	return false, expected
}

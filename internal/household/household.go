// Package household describes the fixed set of people the scheduler reasons about.
package household

import "homeplan/internal/config"

type Role string

const (
	RoleAdult Role = "adult"
	RoleChild Role = "child"
)

// Member is one person on the roster.
type Member struct {
	ID   string
	Name string
	Role Role
}

// Roster is an ordered, immutable list of members. Order is the order the
// members were configured in and is used wherever output must be stable.
type Roster struct {
	members []Member
	byID    map[string]int
}

// New builds a roster from members in the given order.
func New(members []Member) *Roster {
	r := &Roster{
		members: append([]Member(nil), members...),
		byID:    make(map[string]int, len(members)),
	}
	for i, m := range r.members {
		r.byID[m.ID] = i
	}
	return r
}

// FromConfig builds the roster described by the household section of the config.
func FromConfig(members []config.MemberConfig) *Roster {
	out := make([]Member, 0, len(members))
	for _, m := range members {
		out = append(out, Member{ID: m.ID, Name: m.Name, Role: Role(m.Role)})
	}
	return New(out)
}

func (r *Roster) Members() []Member {
	return append([]Member(nil), r.members...)
}

func (r *Roster) Size() int {
	return len(r.members)
}

// IDs returns member ids in roster order.
func (r *Roster) IDs() []string {
	ids := make([]string, len(r.members))
	for i, m := range r.members {
		ids[i] = m.ID
	}
	return ids
}

func (r *Roster) Get(id string) (Member, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Member{}, false
	}
	return r.members[i], true
}

// DisplayName falls back to the id for unknown members.
func (r *Roster) DisplayName(id string) string {
	if m, ok := r.Get(id); ok && m.Name != "" {
		return m.Name
	}
	return id
}

// WithRole returns the ids of every member with the given role.
func (r *Roster) WithRole(role Role) []string {
	var ids []string
	for _, m := range r.members {
		if m.Role == role {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// IsExactly reports whether the set of present members is exactly the set
// of members holding role. A role nobody holds never matches.
func (r *Roster) IsExactly(present map[string]bool, role Role) bool {
	want := r.WithRole(role)
	if len(want) == 0 {
		return false
	}
	for _, m := range r.members {
		if present[m.ID] != (m.Role == role) {
			return false
		}
	}
	return true
}

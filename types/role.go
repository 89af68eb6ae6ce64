package types

// AgentRole is the closed set of specialized agent roles in the
// coordination fabric. The zero value is never a valid role.
type AgentRole string

const (
	RoleMarket    AgentRole = "MARKET"
	RoleContent   AgentRole = "CONTENT"
	RoleLogistics AgentRole = "LOGISTICS"
	RoleExecutive AgentRole = "EXECUTIVE"
	RoleLiaison   AgentRole = "LIAISON"
)

// Roles enumerates all valid AgentRole values in declared order, used
// for deterministic tie-breaking and registry iteration.
var Roles = []AgentRole{RoleMarket, RoleContent, RoleLogistics, RoleExecutive, RoleLiaison}

// Valid reports whether r is one of the declared roles.
func (r AgentRole) Valid() bool {
	for _, candidate := range Roles {
		if candidate == r {
			return true
		}
	}
	return false
}

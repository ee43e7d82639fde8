package domain

import "time"

// StaffRole enumerates hotel staff roles.
type StaffRole string

const (
	StaffRoleHousekeeper            StaffRole = "housekeeper"
	StaffRoleHousekeepingSupervisor StaffRole = "housekeeping_supervisor"
	StaffRoleMaintenanceTechnician  StaffRole = "maintenance_technician"
	StaffRoleMaintenanceSupervisor  StaffRole = "maintenance_supervisor"
	StaffRoleReceptionist           StaffRole = "receptionist"
	StaffRoleFrontOfficeManager     StaffRole = "front_office_manager"
	StaffRoleWaiter                 StaffRole = "waiter"
	StaffRoleSecurityGuard          StaffRole = "security_guard"
	StaffRoleManager                StaffRole = "manager"
	StaffRoleAdmin                  StaffRole = "admin"
)

// IsSupervisor reports whether the role may approve or reassign work.
func (r StaffRole) IsSupervisor() bool {
	switch r {
	case StaffRoleHousekeepingSupervisor, StaffRoleMaintenanceSupervisor,
		StaffRoleFrontOfficeManager, StaffRoleManager, StaffRoleAdmin:
		return true
	}
	return false
}

// StaffMember models an employee of a hotel.
type StaffMember struct {
	ID             string
	HotelID        string
	OrganizationID string
	Name           string
	Email          string
	PasswordHash   string
	Role           StaffRole
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

package domain

// DepartmentEligibility maps a staff role to the departments whose tickets it
// may be auto-dispatched. Order is primary first.
type DepartmentEligibility map[StaffRole][]Department

// DefaultDepartmentEligibility is the built-in role table. Housekeeping roles
// pick up maintenance as a secondary department. Managers and admins are not
// auto-dispatched.
var DefaultDepartmentEligibility = DepartmentEligibility{
	StaffRoleHousekeeper:            {DepartmentHousekeeping, DepartmentMaintenance},
	StaffRoleHousekeepingSupervisor: {DepartmentHousekeeping, DepartmentMaintenance},
	StaffRoleMaintenanceTechnician:  {DepartmentMaintenance},
	StaffRoleMaintenanceSupervisor:  {DepartmentMaintenance},
	StaffRoleReceptionist:           {DepartmentFrontOffice},
	StaffRoleFrontOfficeManager:     {DepartmentFrontOffice},
	StaffRoleWaiter:                 {DepartmentFoodBeverage},
	StaffRoleSecurityGuard:          {DepartmentSecurity},
}

// For returns a copy of the departments eligible for role.
func (e DepartmentEligibility) For(role StaffRole) []Department {
	depts := e[role]
	if len(depts) == 0 {
		return nil
	}
	out := make([]Department, len(depts))
	copy(out, depts)
	return out
}

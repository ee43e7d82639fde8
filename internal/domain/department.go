package domain

// Department identifies the operational unit a ticket is routed to.
type Department string

const (
	DepartmentHousekeeping Department = "housekeeping"
	DepartmentMaintenance  Department = "maintenance"
	DepartmentFrontOffice  Department = "front_office"
	DepartmentFoodBeverage Department = "food_beverage"
	DepartmentSecurity     Department = "security"
)

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	switch d {
	case DepartmentHousekeeping, DepartmentMaintenance, DepartmentFrontOffice, DepartmentFoodBeverage, DepartmentSecurity:
		return true
	}
	return false
}

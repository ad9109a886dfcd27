package cache

import "fmt"

// Key builders. Keys scoped to a day end with the department-local date so
// that a user's or a department's entries share a "<kind>:<owner>:" prefix.

func KeyUserToday(userID, date string) string {
	return fmt.Sprintf("attendance:today:%s:%s", userID, date)
}

func KeyAttendanceList(department, date string) string {
	return fmt.Sprintf("attendance:list:%s:%s", department, date)
}

func KeyDepartmentStats(department, date string) string {
	return fmt.Sprintf("stats:department:%s:%s", department, date)
}

func KeyLiveRoster(department string) string {
	return fmt.Sprintf("roster:department:%s", department)
}

func KeyDepartmentPolicy(department string) string {
	return fmt.Sprintf("policy:department:%s", department)
}

const KeyActiveOffices = "offices:active"

// InvalidateUser drops cached reads derived from one user's records.
func (c *Cache) InvalidateUser(userID string) int {
	return c.InvalidatePrefix(fmt.Sprintf("attendance:today:%s:", userID))
}

// InvalidateDepartment drops cached aggregates for the department.
func (c *Cache) InvalidateDepartment(department string) int {
	c.Invalidate(KeyLiveRoster(department))
	return c.InvalidatePrefix(
		fmt.Sprintf("attendance:list:%s:", department),
		fmt.Sprintf("stats:department:%s:", department),
	)
}

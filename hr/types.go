// Package hr contains the typed REST clients for the HR backend's
// resources. They are thin glue over the authenticated transport and hold no
// session logic of their own: the transport decides what a 401 means.
package hr

// Employee is a staff member record.
type Employee struct {
	ID           string `json:"id,omitempty"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
	PositionID   string `json:"positionId,omitempty"`
	HireDate     string `json:"hireDate,omitempty"`
	Active       bool   `json:"active"`
}

// Department groups employees under a manager.
type Department struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	ManagerID string `json:"managerId,omitempty"`
}

// Position is a job title with a salary band.
type Position struct {
	ID        string  `json:"id,omitempty"`
	Title     string  `json:"title"`
	MinSalary float64 `json:"minSalary,omitempty"`
	MaxSalary float64 `json:"maxSalary,omitempty"`
}

// Contract binds an employee to terms of employment.
type Contract struct {
	ID         string  `json:"id,omitempty"`
	EmployeeID string  `json:"employeeId"`
	Type       string  `json:"type"`
	StartDate  string  `json:"startDate"`
	EndDate    string  `json:"endDate,omitempty"`
	Salary     float64 `json:"salary"`
}

// Shift is a scheduled working window.
type Shift struct {
	ID         string `json:"id,omitempty"`
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

// PayrollRecord is one employee's pay for one period.
type PayrollRecord struct {
	ID         string  `json:"id,omitempty"`
	EmployeeID string  `json:"employeeId"`
	Period     string  `json:"period"`
	Gross      float64 `json:"gross"`
	Net        float64 `json:"net"`
	Status     string  `json:"status,omitempty"`
}

// AttendanceRecord is one employee's presence for one day.
type AttendanceRecord struct {
	ID         string `json:"id,omitempty"`
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	CheckIn    string `json:"checkIn,omitempty"`
	CheckOut   string `json:"checkOut,omitempty"`
	Status     string `json:"status"`
}

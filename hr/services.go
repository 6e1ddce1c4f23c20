package hr

import (
	"context"
	"net/url"

	"github.com/kadrohq/kadro-go/transport"
)

// Client bundles one service per HR resource, all sharing the same
// authenticated transport.
type Client struct {
	Employees   *EmployeeService
	Departments *DepartmentService
	Positions   *PositionService
	Contracts   *ContractService
	Shifts      *ShiftService
	Payroll     *PayrollService
	Attendance  *AttendanceService
}

// NewClient wires every resource service to api.
func NewClient(api doer) *Client {
	return &Client{
		Employees:   &EmployeeService{resource[Employee]{client: api, path: "/employees"}},
		Departments: &DepartmentService{resource[Department]{client: api, path: "/departments"}},
		Positions:   &PositionService{resource[Position]{client: api, path: "/positions"}},
		Contracts:   &ContractService{resource[Contract]{client: api, path: "/contracts"}},
		Shifts:      &ShiftService{resource[Shift]{client: api, path: "/shifts"}},
		Payroll:     &PayrollService{resource[PayrollRecord]{client: api, path: "/payroll"}},
		Attendance:  &AttendanceService{resource[AttendanceRecord]{client: api, path: "/attendance"}},
	}
}

type EmployeeService struct {
	resource[Employee]
}

// ListByDepartment lists the employees assigned to one department.
func (s *EmployeeService) ListByDepartment(ctx context.Context, departmentID string) ([]Employee, error) {
	q := url.Values{}
	q.Set("departmentId", departmentID)
	return s.List(ctx, transport.WithQuery(q))
}

type DepartmentService struct {
	resource[Department]
}

type PositionService struct {
	resource[Position]
}

type ContractService struct {
	resource[Contract]
}

type ShiftService struct {
	resource[Shift]
}

// ListByDate lists the shifts scheduled on one date (YYYY-MM-DD).
func (s *ShiftService) ListByDate(ctx context.Context, date string) ([]Shift, error) {
	q := url.Values{}
	q.Set("date", date)
	return s.List(ctx, transport.WithQuery(q))
}

type PayrollService struct {
	resource[PayrollRecord]
}

// ListByPeriod lists payroll records for one period (YYYY-MM).
func (s *PayrollService) ListByPeriod(ctx context.Context, period string) ([]PayrollRecord, error) {
	q := url.Values{}
	q.Set("period", period)
	return s.List(ctx, transport.WithQuery(q))
}

type AttendanceService struct {
	resource[AttendanceRecord]
}

// ListByEmployee lists one employee's attendance for one month (YYYY-MM).
func (s *AttendanceService) ListByEmployee(ctx context.Context, employeeID, month string) ([]AttendanceRecord, error) {
	q := url.Values{}
	q.Set("employeeId", employeeID)
	q.Set("month", month)
	return s.List(ctx, transport.WithQuery(q))
}

// Package directory models the read-only external HR/organization directory
// the core consumes but does not own (spec §1's "out of scope... referred to
// only where the core consumes their outputs").
package directory

// Employee is a (job_number, organization_position, department) record
// synced from the external HR system.
type Employee struct {
	JobNumber      string
	Name           string
	OrgPositionID  int64
	DepartmentCode string
}

// Department is an organization unit. Code is the dotted/hierarchical code
// whose first five characters identify the "second-level department" used
// for the Query/Projection Service's grouping axis (§4.7).
type Department struct {
	Code string
	Name string
}

// Directory is the read-only collaborator interface. Implementations sync
// from an external HR system on their own schedule/retry policy (spec §5
// explicitly excludes that sync from the core's no-retry rule).
type Directory interface {
	Employee(jobNumber string) (Employee, bool)
	EmployeesAtPosition(orgPositionID int64) ([]Employee, bool)
	Department(code string) (Department, bool)
}

// SecondLevelDepartmentCode returns the 5-character prefix used to group
// tasks by second-level department, per original_source's dept_util.py.
func SecondLevelDepartmentCode(fullCode string) string {
	if len(fullCode) <= 5 {
		return fullCode
	}
	return fullCode[:5]
}

// InMemory is a simple in-memory Directory, used by the app's test suite and
// as a reference implementation for local/dev wiring in place of a live HR
// sync.
type InMemory struct {
	employees   map[string]Employee
	byPosition  map[int64][]Employee
	departments map[string]Department
}

func NewInMemory() *InMemory {
	return &InMemory{
		employees:   map[string]Employee{},
		byPosition:  map[int64][]Employee{},
		departments: map[string]Department{},
	}
}

func (d *InMemory) AddEmployee(e Employee) {
	d.employees[e.JobNumber] = e
	d.byPosition[e.OrgPositionID] = append(d.byPosition[e.OrgPositionID], e)
}

func (d *InMemory) AddDepartment(dep Department) {
	d.departments[dep.Code] = dep
}

func (d *InMemory) Employee(jobNumber string) (Employee, bool) {
	e, ok := d.employees[jobNumber]
	return e, ok
}

func (d *InMemory) EmployeesAtPosition(orgPositionID int64) ([]Employee, bool) {
	es, ok := d.byPosition[orgPositionID]
	return es, ok
}

func (d *InMemory) Department(code string) (Department, bool) {
	dep, ok := d.departments[code]
	return dep, ok
}

var _ Directory = (*InMemory)(nil)

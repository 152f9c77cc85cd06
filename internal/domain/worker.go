package domain

import "time"

// Worker contract types.
const (
	WorkerTypePayroll    = "payroll"
	WorkerTypeContractor = "contractor"
)

// IsValidWorkerType reports whether t is a known worker contract type.
func IsValidWorkerType(t string) bool {
	return t == WorkerTypePayroll || t == WorkerTypeContractor
}

// Worker is a shop-floor employee. Contractor workers belong to a Company;
// payroll workers have no company. Deleting a company detaches its workers
// instead of removing them.
type Worker struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DocumentID string    `json:"document_id"`
	WorkerType string    `json:"worker_type"`
	CompanyID  *string   `json:"company_id,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName returns the worker's display name.
func (w *Worker) FullName() string {
	if w.FirstName == "" {
		return w.LastName
	}
	if w.LastName == "" {
		return w.FirstName
	}
	return w.FirstName + " " + w.LastName
}

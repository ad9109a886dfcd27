package department

import "context"

type PolicyRepository interface {
	// Get returns ErrPolicyNotFound when the department has no policy.
	Get(ctx context.Context, department string) (Policy, error)
	List(ctx context.Context) ([]Policy, error)
}

package aggregates

// Contract documents an aggregate's write surface: the operations it owns and the
// lock scopes that serialize them inside one process. Every write runs in its own
// transaction started by the aggregate; callers never pass one in.
type Contract struct {
	Name       string
	Operations []string
	LockScopes []string
	Notes      string
}

// Aggregate is implemented by every write aggregate.
type Aggregate interface {
	Contract() Contract
}

// Owns reports whether op is one of the contract's operations.
func (c Contract) Owns(op string) bool {
	for _, o := range c.Operations {
		if o == op {
			return true
		}
	}
	return false
}

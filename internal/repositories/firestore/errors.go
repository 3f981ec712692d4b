package firestore

import "fmt"

// repoError backs synthetic repository errors that do not originate from a
// Firestore status code, such as empty query results.
type repoError struct {
	op       string
	notFound bool
}

func (e *repoError) Error() string {
	if e.notFound {
		return fmt.Sprintf("%s: not found", e.op)
	}
	return e.op
}

func (e *repoError) IsNotFound() bool    { return e != nil && e.notFound }
func (e *repoError) IsConflict() bool    { return false }
func (e *repoError) IsUnavailable() bool { return false }

func notFoundError(op string) error {
	return &repoError{op: op, notFound: true}
}

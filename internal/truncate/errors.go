package truncate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/koustreak/tablewipe/internal/database"
)

// IntrospectionError reports that the table list could not be read.
// No statement has been executed when it is returned.
type IntrospectionError struct {
	Cause error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("error finding database tables: %v", e.Cause)
}

func (e *IntrospectionError) Unwrap() error { return e.Cause }

// DependencyQueryError reports that the foreign keys into Table could not
// be read. The run stops there; tables emptied earlier stay empty.
type DependencyQueryError struct {
	Table database.Table
	Cause error
}

func (e *DependencyQueryError) Error() string {
	return fmt.Sprintf("error analyzing exported keys of %s: %v", e.Table, e.Cause)
}

func (e *DependencyQueryError) Unwrap() error { return e.Cause }

// DeleteError reports that the DELETE for Table failed.
// Earlier deletes in the same run are not rolled back.
type DeleteError struct {
	Table     database.Table
	Statement string
	Cause     error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("error deleting data from %s: %v", e.Table, e.Cause)
}

func (e *DeleteError) Unwrap() error { return e.Cause }

// CycleError reports a foreign-key cycle between two or more tables.
// Path starts and ends with the same table. None of the tables on the path
// has been deleted from.
type CycleError struct {
	Path []database.Table
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Path))
	for i, t := range e.Path {
		names[i] = t.String()
	}
	return "foreign key cycle: " + strings.Join(names, " -> ")
}

// FailedTable returns the table named by a run error, if any.
func FailedTable(err error) (database.Table, bool) {
	var (
		depErr   *DependencyQueryError
		delErr   *DeleteError
		cycleErr *CycleError
	)
	switch {
	case errors.As(err, &delErr):
		return delErr.Table, true
	case errors.As(err, &depErr):
		return depErr.Table, true
	case errors.As(err, &cycleErr) && len(cycleErr.Path) > 0:
		return cycleErr.Path[0], true
	default:
		return database.Table{}, false
	}
}

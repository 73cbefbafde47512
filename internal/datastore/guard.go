package datastore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMutatingStatement is matched by every guard rejection.
var ErrMutatingStatement = errors.New("only SELECT queries are allowed")

var deniedKeywords = []string{"INSERT", "UPDATE", "DELETE", "ALTER", "DROP", "TRUNCATE"}

// GuardError reports the denylisted keyword found in a statement.
type GuardError struct {
	Keyword string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("datastore: %s: statement contains %s", ErrMutatingStatement, e.Keyword)
}

func (e *GuardError) Unwrap() error {
	return ErrMutatingStatement
}

// Guard rejects statements containing a data-mutating keyword anywhere,
// case-insensitively. Matching is by substring, so identifiers that embed a
// keyword are rejected too.
func Guard(stmt string) error {
	upper := strings.ToUpper(stmt)
	for _, kw := range deniedKeywords {
		if strings.Contains(upper, kw) {
			return &GuardError{Keyword: kw}
		}
	}
	return nil
}

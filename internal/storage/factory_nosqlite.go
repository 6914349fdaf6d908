//go:build !sqlite

package storage

import "fmt"

// DefaultStoreKind names the backend this build defaults to.
func DefaultStoreKind() string {
	return "memory"
}

func newSQLiteStore(_ string) (Store, error) {
	return nil, fmt.Errorf("sqlite backend unavailable in this build; rebuild with -tags sqlite")
}

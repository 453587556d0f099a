// Package state keeps the correlation token issued before a redirect until
// the subject returns from the hosted flow.
package state

import (
	"github.com/google/uuid"
)

const keyPrefix = "idv:state:"

// NewToken issues an opaque correlation token.
func NewToken() string {
	return uuid.NewString()
}

func key(subjectID string) string {
	return keyPrefix + subjectID
}

package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewConnID returns a unique identifier for a live connection.
func NewConnID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Fallback to timestamp if the entropy source is unavailable.
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id.String()
}

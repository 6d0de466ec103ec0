package idgen

import (
	"github.com/google/uuid"
)

// ID prefixes for different models
const (
	PrefixConnection = "conn_"
	PrefixCommand    = "cmd_"
)

// NewConnection generates a new connection ID with conn_ prefix
func NewConnection() string {
	return PrefixConnection + uuid.New().String()
}

// NewCommand generates a new command ID with cmd_ prefix
func NewCommand() string {
	return PrefixCommand + uuid.New().String()
}

// New generates a generic UUID without prefix (for internal use only)
func New() string {
	return uuid.New().String()
}

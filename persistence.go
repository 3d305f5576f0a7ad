package identity

import (
	"github.com/goliatone/go-persistence-bun"
)

// RegisterModels registers the package models with the persistence client
// so migrations and fixtures can see them.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
}

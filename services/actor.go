package services

import (
	"github.com/fabricaconecta/parceria-api/models"
)

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID uint
	Role   string
}

// ActorFromUser builds the Actor for a stored user
func ActorFromUser(user *models.User) Actor {
	return Actor{UserID: user.ID, Role: user.Role}
}

// IsFactory reports whether the actor acts on the factory side
func (a Actor) IsFactory() bool {
	return a.Role == models.RoleFactory
}

// IsSpecifier reports whether the actor acts on the specifier side
func (a Actor) IsSpecifier() bool {
	return a.Role == models.RoleSpecifier
}

func requireSpecifier(actor Actor) error {
	if !actor.IsSpecifier() {
		return newForbiddenError("Only specifiers can perform this action")
	}
	return nil
}

func requireFactory(actor Actor) error {
	if !actor.IsFactory() {
		return newForbiddenError("Only factories can perform this action")
	}
	return nil
}

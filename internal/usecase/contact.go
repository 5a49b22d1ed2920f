package usecase

import (
	"context"
	"fmt"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	domsvc "SmartEnergy/internal/domain/service"
)

// FirstUserResolver sends alerts to the earliest registered user.
type FirstUserResolver struct {
	users drepo.UserStore
}

// NewFirstUserResolver creates a resolver returning the first registered user.
func NewFirstUserResolver(users drepo.UserStore) *FirstUserResolver {
	return &FirstUserResolver{users: users}
}

var _ domsvc.ContactResolver = (*FirstUserResolver)(nil)

func (r *FirstUserResolver) Resolve(ctx context.Context) (models.Contact, error) {
	u, err := r.users.First(ctx)
	if err != nil {
		return models.Contact{}, fmt.Errorf("resolve contact: %w", err)
	}
	return u.Contact(), nil
}

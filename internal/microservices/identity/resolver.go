package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/http-api/repository"

	"github.com/samber/lo"
)

// Profile is the display identity of a principal, cached on a connection for its lifetime
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
	JobTitle    string `json:"jobTitle,omitempty"`
	Department  string `json:"department,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Summary is the id + displayName pair broadcast in member lists
type Summary struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

func (p *Profile) Summary() Summary {
	return Summary{ID: p.ID, DisplayName: p.DisplayName}
}

// ProfileLookup is the slice of UserRepository the resolver needs
type ProfileLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// Resolver turns principal ids into profiles.
// Unknown ids resolve to nil, never to an error.
type Resolver struct {
	users  ProfileLookup
	logger *slog.Logger
}

func NewResolver(users ProfileLookup, logger *slog.Logger) *Resolver {
	return &Resolver{users: users, logger: logger}
}

// Resolve returns nil, nil when id is unknown
func (r *Resolver) Resolve(ctx context.Context, id string) (*Profile, error) {
	user, err := r.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve principal %s: %w", id, err)
	}
	return fromUser(user), nil
}

// ResolveMany issues one lookup for the distinct ids and returns the profiles found,
// in first-seen order of ids. Unknown ids are dropped.
func (r *Resolver) ResolveMany(ctx context.Context, ids []string) ([]Profile, error) {
	unique := lo.Uniq(lo.Compact(ids))
	if len(unique) == 0 {
		return nil, nil
	}

	users, err := r.users.FindByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("resolve %d principals: %w", len(unique), err)
	}

	byID := lo.KeyBy(users, func(u models.User) string { return u.ID })
	profiles := make([]Profile, 0, len(unique))
	for _, id := range unique {
		u, ok := byID[id]
		if !ok {
			r.logger.Debug("principal_unresolved", "principal_id", id)
			continue
		}
		profiles = append(profiles, *fromUser(&u))
	}
	return profiles, nil
}

func fromUser(u *models.User) *Profile {
	return &Profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Mail:        u.Mail,
		JobTitle:    u.JobTitle,
		Department:  u.Department,
		Avatar:      u.Avatar,
	}
}

package profile

import "context"

type Repository interface {
	// Get returns the stored profile, or an empty one when none was saved.
	Get(ctx context.Context) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
}

package repositoryimpl

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/pkg/cerr"
	"github.com/kazz187/microwin/pkg/storage"
)

const profilePath = "profile.yaml"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func (r *YAMLRepository) Get(ctx context.Context) (*profile.Profile, error) {
	data, err := r.storage.Read(ctx, profilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &profile.Profile{}, nil
		}
		return nil, cerr.WrapStorageReadError("profile", err)
	}
	var p profile.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal profile: %w", err))
	}
	return &p, nil
}

func (r *YAMLRepository) Save(ctx context.Context, p *profile.Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal profile: %w", err))
	}
	if err := r.storage.Write(ctx, profilePath, data); err != nil {
		return cerr.WrapStorageWriteError("profile", err)
	}
	return nil
}

package profile

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/pkg/cerr"
)

var _ api.ProfileServiceHandler = (*Server)(nil)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) GetProfile(ctx context.Context, _ *connect.Request[api.GetProfileRequest]) (*connect.Response[api.GetProfileResponse], error) {
	p, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetProfileResponse{Profile: ToAPI(p)}), nil
}

func (s *Server) UpdateProfile(ctx context.Context, req *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.UpdateProfileResponse], error) {
	p := FromAPI(req.Msg.Profile)
	if p == nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "profile is required", nil)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.UpdateProfileResponse{Profile: ToAPI(p)}), nil
}

// Validate checks the granularity value. Free-text fields are not checked.
func (p *Profile) Validate() error {
	switch p.GranularityPreference {
	case "", GranularityNormal, GranularityHigh:
		return nil
	}
	return cerr.NewError(cerr.InvalidArgument, "invalid profile", nil).
		AddDetailMessage("granularity preference must be " + GranularityNormal + " or " + GranularityHigh)
}

func ToAPI(p *Profile) *api.Profile {
	if p == nil {
		return nil
	}
	return &api.Profile{
		GranularityPreference: p.GranularityPreference,
		TriggersToAvoid:       p.TriggersToAvoid,
		SupportStyle:          p.SupportStyle,
		UpdatedAt:             p.UpdatedAt,
	}
}

func FromAPI(p *api.Profile) *Profile {
	if p == nil {
		return nil
	}
	return &Profile{
		GranularityPreference: strings.TrimSpace(p.GranularityPreference),
		TriggersToAvoid:       strings.TrimSpace(p.TriggersToAvoid),
		SupportStyle:          strings.TrimSpace(p.SupportStyle),
		UpdatedAt:             p.UpdatedAt,
	}
}

package pushsubscription

import (
	"time"

	"github.com/kazz187/microwin/pkg/cerr"
)

// Subscription is a browser endpoint registered for Web Push.
type Subscription struct {
	ID        string    `yaml:"id" json:"id"`
	Endpoint  string    `yaml:"endpoint" json:"endpoint"`
	P256dhKey string    `yaml:"p256dh_key" json:"p256dhKey"`
	AuthKey   string    `yaml:"auth_key" json:"authKey"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
}

func (s *Subscription) Validate() error {
	e := cerr.NewError(cerr.InvalidArgument, "invalid push subscription", nil)
	if s.Endpoint == "" {
		e.AddDetailMessage("endpoint is required")
	}
	if s.P256dhKey == "" {
		e.AddDetailMessage("p256dh key is required")
	}
	if s.AuthKey == "" {
		e.AddDetailMessage("auth key is required")
	}
	if len(e.Details) > 0 {
		return e
	}
	return nil
}

// Package credentials obtains the user's access token and id from the
// identity relay.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"RendaBot/internal/model"
	"RendaBot/internal/poll"
)

// Source returns the current credentials, possibly incomplete.
type Source interface {
	Fetch(ctx context.Context) (model.Credentials, error)
}

// File reads the JSON token file the relay keeps up to date.
type File struct {
	Path string
}

func (f File) Fetch(context.Context) (model.Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return model.Credentials{}, nil
	}
	if err != nil {
		return model.Credentials{}, fmt.Errorf("read token file: %w", err)
	}
	var c model.Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		// the relay may be halfway through rewriting it
		return model.Credentials{}, nil
	}
	return c, nil
}

// Env reads RENDABOT_ACCESS_TOKEN and RENDABOT_USER_ID.
type Env struct{}

func (Env) Fetch(context.Context) (model.Credentials, error) {
	return model.Credentials{
		AccessToken: os.Getenv("RENDABOT_ACCESS_TOKEN"),
		UserID:      os.Getenv("RENDABOT_USER_ID"),
	}, nil
}

// First tries each source in order and returns the first complete credentials.
type First []Source

func (s First) Fetch(ctx context.Context) (model.Credentials, error) {
	for _, src := range s {
		c, err := src.Fetch(ctx)
		if err != nil {
			return model.Credentials{}, err
		}
		if c.Valid() {
			return c, nil
		}
	}
	return model.Credentials{}, nil
}

// Wait polls src every interval, at most attempts times, until both fields are present.
func Wait(ctx context.Context, src Source, interval time.Duration, attempts int, log logrus.FieldLogger) (model.Credentials, error) {
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; ; i++ {
		c, err := src.Fetch(ctx)
		if err != nil {
			return model.Credentials{}, fmt.Errorf("%w: %v", model.ErrCredentialsUnavailable, err)
		}
		if c.Valid() {
			log.WithField("user_id", c.UserID).Info("credentials obtained")
			return c, nil
		}
		if i >= attempts {
			return model.Credentials{}, fmt.Errorf("%w: token or user id missing after %d attempts", model.ErrCredentialsUnavailable, attempts)
		}
		log.WithField("attempt", i).Warn("waiting for credentials")
		if err := poll.Sleep(ctx, interval); err != nil {
			return model.Credentials{}, err
		}
	}
}

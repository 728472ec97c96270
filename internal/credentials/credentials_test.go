package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"RendaBot/internal/model"
)

type scripted struct {
	calls int
	ready int // call number from which credentials are complete
}

func (s *scripted) Fetch(context.Context) (model.Credentials, error) {
	s.calls++
	if s.ready > 0 && s.calls >= s.ready {
		return model.Credentials{AccessToken: "tok", UserID: "u1"}, nil
	}
	return model.Credentials{UserID: "u1"}, nil
}

func TestWaitEventuallySucceeds(t *testing.T) {
	log, _ := test.NewNullLogger()
	src := &scripted{ready: 3}
	c, err := Wait(context.Background(), src, time.Millisecond, 10, log)
	if err != nil {
		t.Fatal(err)
	}
	if c.AccessToken != "tok" || src.calls != 3 {
		t.Errorf("creds = %+v after %d calls", c, src.calls)
	}
}

func TestWaitExhausted(t *testing.T) {
	log, _ := test.NewNullLogger()
	src := &scripted{}
	_, err := Wait(context.Background(), src, time.Millisecond, 3, log)
	if !errors.Is(err, model.ErrCredentialsUnavailable) {
		t.Fatalf("err = %v, want ErrCredentialsUnavailable", err)
	}
	if src.calls != 3 {
		t.Errorf("calls = %d, want 3", src.calls)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	f := File{Path: path}

	c, err := f.Fetch(context.Background())
	if err != nil || c.Valid() {
		t.Fatalf("missing file: %+v, %v", c, err)
	}

	if err := os.WriteFile(path, []byte(`{"access_token":"a","user_id":"b"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err = f.Fetch(context.Background())
	if err != nil || !c.Valid() {
		t.Fatalf("written file: %+v, %v", c, err)
	}

	if err := os.WriteFile(path, []byte(`{"access_tok`), 0o600); err != nil {
		t.Fatal(err)
	}
	if c, err := f.Fetch(context.Background()); err != nil || c.Valid() {
		t.Errorf("partial file: %+v, %v", c, err)
	}
}

func TestFirstSource(t *testing.T) {
	t.Setenv("RENDABOT_ACCESS_TOKEN", "env-tok")
	t.Setenv("RENDABOT_USER_ID", "env-user")
	src := First{File{Path: filepath.Join(t.TempDir(), "none.json")}, Env{}}
	c, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.UserID != "env-user" {
		t.Errorf("creds = %+v", c)
	}
}

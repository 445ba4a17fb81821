package auth

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
	tu "github.com/desertthunder/modulearn/internal/testing"
)

func googleSession() *models.Session {
	return &models.Session{
		AccessToken: "access",
		User: models.Identity{
			ID:       "u1",
			Email:    "ada@example.com",
			Metadata: map[string]any{"name": "Ada Lovelace"},
		},
	}
}

type recorder struct {
	mu     sync.Mutex
	routes []models.Route
}

func (r *recorder) Navigate(route models.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *recorder) all() []models.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Route(nil), r.routes...)
}

func TestNewBootstrap(t *testing.T) {
	t.Run("no code is ready immediately", func(t *testing.T) {
		b := NewBootstrap("http://localhost:3000/?ref=home#/features")
		select {
		case <-b.Ready():
		default:
			t.Fatal("expected Ready to be closed")
		}
		if b.URL() != "http://localhost:3000/?ref=home#/features" {
			t.Errorf("URL changed: %s", b.URL())
		}
		if b.HasCode() {
			t.Error("expected no code")
		}
	})

	t.Run("code is stripped at construction", func(t *testing.T) {
		b := NewBootstrap("http://localhost:3000/?code=abc&ref=home")
		u, err := url.Parse(b.URL())
		if err != nil {
			t.Fatal(err)
		}
		if u.Query().Has("code") {
			t.Errorf("code still present in %s", b.URL())
		}
		if u.Query().Get("ref") != "home" {
			t.Errorf("other params lost: %s", b.URL())
		}
		select {
		case <-b.Ready():
			t.Fatal("Ready should stay open until Start runs")
		default:
		}
	})

	t.Run("unparseable URL", func(t *testing.T) {
		b := NewBootstrap("http://[::1")
		if b.HasCode() {
			t.Error("expected no code")
		}
		<-b.Ready()
	})
}

func TestBootstrapRoutes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		auth      *tu.MockAuth
		profiles  *tu.MemoryProfiles
		want      models.Route
		wantSaves int
	}{
		{
			name:     "onboarded profile goes to dashboard",
			auth:     &tu.MockAuth{Session: googleSession()},
			profiles: tu.NewMemoryProfiles(models.UserProfile{ID: "u1", FullName: "Ada", Onboarded: true}),
			want:     models.RouteDashboard,
		},
		{
			name:     "named profile not onboarded",
			auth:     &tu.MockAuth{Session: googleSession()},
			profiles: tu.NewMemoryProfiles(models.UserProfile{ID: "u1", FullName: "Ada"}),
			want:     models.RouteOnboarding,
		},
		{
			name:      "unnamed profile gets metadata name",
			auth:      &tu.MockAuth{Session: googleSession()},
			profiles:  tu.NewMemoryProfiles(models.UserProfile{ID: "u1"}),
			want:      models.RouteOnboarding,
			wantSaves: 1,
		},
		{
			name:      "missing profile is created",
			auth:      &tu.MockAuth{Session: googleSession()},
			profiles:  tu.NewMemoryProfiles(),
			want:      models.RouteOnboarding,
			wantSaves: 1,
		},
		{
			name:     "profile read failure onboards without writing",
			auth:     &tu.MockAuth{Session: googleSession()},
			profiles: &tu.MemoryProfiles{GetErr: shared.ErrServiceUnavailable, UpsertErr: shared.ErrServiceUnavailable},
			want:     models.RouteOnboarding,
		},
		{
			name:     "exchange failure goes to login",
			auth:     &tu.MockAuth{ExchangeErr: shared.ErrAuthFailed},
			profiles: tu.NewMemoryProfiles(),
			want:     models.RouteLogin,
		},
		{
			name:     "no session goes to login",
			auth:     &tu.MockAuth{},
			profiles: tu.NewMemoryProfiles(),
			want:     models.RouteLogin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.auth, tt.profiles, true, nil)
			b := NewBootstrap("http://localhost:3000/?code=abc")
			nav := &recorder{}

			b.Start(ctx, svc, "verifier", nav)

			<-b.Ready()
			if b.Route() != tt.want {
				t.Errorf("expected route %s, got %s", tt.want, b.Route())
			}
			if routes := nav.all(); len(routes) != 1 || routes[0] != tt.want {
				t.Errorf("expected single navigation to %s, got %v", tt.want, routes)
			}
			if n := len(tt.profiles.Upserts()); n != tt.wantSaves {
				t.Errorf("expected %d saves, got %d", tt.wantSaves, n)
			}
		})
	}

	t.Run("read failure keeps an onboarded row intact", func(t *testing.T) {
		profiles := tu.NewMemoryProfiles(models.UserProfile{ID: "u1", FullName: "Ada", Onboarded: true})
		profiles.GetErr = shared.ErrServiceUnavailable
		svc := NewService(&tu.MockAuth{Session: googleSession()}, profiles, true, nil)
		b := NewBootstrap("http://localhost:3000/?code=abc")
		b.Start(ctx, svc, "", nil)

		if b.Route() != models.RouteOnboarding {
			t.Errorf("expected onboarding, got %s", b.Route())
		}
		if n := len(profiles.Upserts()); n != 0 {
			t.Errorf("expected no writes, got %d", n)
		}
		row, _ := profiles.Row("u1")
		if !row.Onboarded || row.FullName != "Ada" {
			t.Errorf("row should be unchanged, got %+v", row)
		}
	})

	t.Run("saved bare row carries oauth name and email", func(t *testing.T) {
		profiles := tu.NewMemoryProfiles()
		svc := NewService(&tu.MockAuth{Session: googleSession()}, profiles, true, nil)
		b := NewBootstrap("http://localhost:3000/?code=abc")
		b.Start(ctx, svc, "", nil)

		row, ok := profiles.Row("u1")
		if !ok {
			t.Fatal("expected profile row")
		}
		if row.FullName != "Ada Lovelace" || row.Email != "ada@example.com" || row.Onboarded {
			t.Errorf("unexpected row %+v", row)
		}
		if b.Session() == nil || b.Session().AccessToken != "access" {
			t.Error("expected session to be exposed")
		}
	})

	t.Run("not configured goes to login", func(t *testing.T) {
		mock := &tu.MockAuth{Session: googleSession()}
		svc := NewService(mock, tu.NewMemoryProfiles(), false, nil)
		b := NewBootstrap("http://localhost:3000/?code=abc")
		b.Start(ctx, svc, "", nil)
		if b.Route() != models.RouteLogin {
			t.Errorf("expected login, got %s", b.Route())
		}
		if len(mock.Exchanged()) != 0 {
			t.Error("exchange should not be attempted")
		}
	})
}

func TestBootstrapRunsOnce(t *testing.T) {
	mock := &tu.MockAuth{Session: googleSession()}
	svc := NewService(mock, tu.NewMemoryProfiles(), true, nil)
	b := NewBootstrap("http://localhost:3000/?code=abc")
	nav := &recorder{}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Start(context.Background(), svc, "verifier", nav)
		}()
	}
	wg.Wait()
	<-b.Ready()

	if got := mock.Exchanged(); len(got) != 1 || got[0] != "abc" {
		t.Errorf("expected exactly one exchange of abc, got %v", got)
	}
	if n := len(nav.all()); n != 1 {
		t.Errorf("expected one navigation, got %d", n)
	}

	b.Start(context.Background(), svc, "verifier", nav)
	if len(mock.Exchanged()) != 1 {
		t.Error("a later Start must not exchange again")
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("partial save keeps full name", func(t *testing.T) {
		profiles := tu.NewMemoryProfiles()
		svc := NewService(&tu.MockAuth{}, profiles, true, nil)
		caller := &models.Identity{ID: "u1"}

		if err := svc.SaveProfile(ctx, caller, models.ProfileUpdate{FullName: models.Ptr("Ada")}); err != nil {
			t.Fatal(err)
		}
		if err := svc.SaveProfile(ctx, caller, models.ProfileUpdate{Onboarded: models.Ptr(true)}); err != nil {
			t.Fatal(err)
		}

		p, err := svc.GetProfile(ctx, caller)
		if err != nil {
			t.Fatal(err)
		}
		if p.FullName != "Ada" || !p.Onboarded {
			t.Errorf("unexpected profile %+v", p)
		}
	})

	t.Run("full name fallback order", func(t *testing.T) {
		tests := []struct {
			meta map[string]any
			want string
		}{
			{map[string]any{"full_name": "A", "name": "B", "display_name": "C"}, "A"},
			{map[string]any{"name": "B", "display_name": "C"}, "B"},
			{map[string]any{"display_name": "C"}, "C"},
		}
		for _, tt := range tests {
			profiles := tu.NewMemoryProfiles()
			svc := NewService(&tu.MockAuth{}, profiles, true, nil)
			if err := svc.SaveProfile(ctx, &models.Identity{ID: "u1", Metadata: tt.meta}, models.ProfileUpdate{}); err != nil {
				t.Fatal(err)
			}
			row, _ := profiles.Row("u1")
			if row.FullName != tt.want {
				t.Errorf("expected %q, got %q", tt.want, row.FullName)
			}
		}
	})

	t.Run("explicit id skips fallbacks", func(t *testing.T) {
		profiles := tu.NewMemoryProfiles()
		svc := NewService(&tu.MockAuth{}, profiles, true, nil)
		if err := svc.SaveProfileFor(ctx, "u9", models.ProfileUpdate{Onboarded: models.Ptr(false)}); err != nil {
			t.Fatal(err)
		}
		if u := profiles.Upserts()[0]; u.FullName != nil || u.Email != nil {
			t.Errorf("unexpected fallback fields %+v", u)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		profiles := tu.NewMemoryProfiles()
		svc := NewService(&tu.MockAuth{}, profiles, false, nil)
		if err := svc.SaveProfile(ctx, &models.Identity{ID: "u1"}, models.ProfileUpdate{}); !errors.Is(err, shared.ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
		if _, err := svc.SignIn(ctx, LoginRequest{Email: "a@b.co", Password: "secret"}); !errors.Is(err, shared.ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
		if len(profiles.Upserts()) != 0 {
			t.Error("no write should reach the store")
		}
	})

	t.Run("save without identity", func(t *testing.T) {
		svc := NewService(&tu.MockAuth{}, tu.NewMemoryProfiles(), true, nil)
		if err := svc.SaveProfile(ctx, nil, models.ProfileUpdate{}); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	form := SignUpRequest{FullName: "Ada", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"}

	t.Run("local validation", func(t *testing.T) {
		svc := NewService(&tu.MockAuth{}, tu.NewMemoryProfiles(), true, nil)

		mismatch := form
		mismatch.ConfirmPassword = "other"
		if _, err := svc.SignUp(ctx, mismatch); !errors.Is(err, ErrPasswordMismatch) {
			t.Errorf("expected mismatch, got %v", err)
		}

		short := form
		short.Password, short.ConfirmPassword = "abc", "abc"
		_, err := svc.SignUp(ctx, short)
		if !errors.Is(err, ErrPasswordTooShort) {
			t.Errorf("expected too short, got %v", err)
		}
		if msg := shared.UserMessage(err); msg != "Password must be at least 6 characters long" {
			t.Errorf("unexpected message %q", msg)
		}

		badEmail := form
		badEmail.Email = "not-an-email"
		if _, err := svc.SignUp(ctx, badEmail); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("session creates profile with explicit id", func(t *testing.T) {
		profiles := tu.NewMemoryProfiles()
		svc := NewService(&tu.MockAuth{Session: googleSession()}, profiles, true, nil)

		out, err := svc.SignUp(ctx, form)
		if err != nil {
			t.Fatal(err)
		}
		if out.Route != models.RouteOnboarding || out.Session == nil {
			t.Errorf("unexpected outcome %+v", out)
		}
		row, ok := profiles.Row("new-user")
		if !ok || row.FullName != "Ada" || row.Email != "ada@example.com" || row.Onboarded {
			t.Errorf("unexpected row %+v", row)
		}
	})

	t.Run("profile failure is swallowed", func(t *testing.T) {
		svc := NewService(&tu.MockAuth{Session: googleSession()}, &tu.MemoryProfiles{UpsertErr: shared.ErrAPIRequest}, true, nil)
		out, err := svc.SignUp(ctx, form)
		if err != nil || out.Route != models.RouteOnboarding {
			t.Errorf("expected onboarding despite save failure, got %+v, %v", out, err)
		}
	})

	t.Run("email confirmation required", func(t *testing.T) {
		profiles := tu.NewMemoryProfiles()
		mock := &tu.MockAuth{SignUpRes: &services.SignUpResult{User: models.Identity{ID: "u2"}}}
		svc := NewService(mock, profiles, true, nil)

		out, err := svc.SignUp(ctx, form)
		if err != nil {
			t.Fatal(err)
		}
		if out.Message != MsgCheckEmail || out.Session != nil {
			t.Errorf("unexpected outcome %+v", out)
		}
		if len(profiles.Upserts()) != 0 {
			t.Error("no profile should be written without a session")
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		svc := NewService(&tu.MockAuth{SignUpErr: shared.ErrRateLimited}, tu.NewMemoryProfiles(), true, nil)
		_, err := svc.SignUp(ctx, form)
		if shared.UserMessage(err) != shared.MsgRateLimited {
			t.Errorf("unexpected message %q", shared.UserMessage(err))
		}
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		profiles *tu.MemoryProfiles
		want     models.Route
	}{
		{"onboarded", tu.NewMemoryProfiles(models.UserProfile{ID: "u1", Onboarded: true}), models.RouteDashboard},
		{"not onboarded", tu.NewMemoryProfiles(models.UserProfile{ID: "u1"}), models.RouteOnboarding},
		{"no row", tu.NewMemoryProfiles(), models.RouteOnboarding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&tu.MockAuth{Session: googleSession()}, tt.profiles, true, nil)
			out, err := svc.SignIn(ctx, LoginRequest{Email: "ada@example.com", Password: "secret1"})
			if err != nil {
				t.Fatal(err)
			}
			if out.Route != tt.want {
				t.Errorf("expected %s, got %s", tt.want, out.Route)
			}
		})
	}

	t.Run("bad credentials", func(t *testing.T) {
		svc := NewService(&tu.MockAuth{SignInErr: shared.ErrInvalidCredentials}, tu.NewMemoryProfiles(), true, nil)
		_, err := svc.SignIn(ctx, LoginRequest{Email: "ada@example.com", Password: "nope"})
		if shared.UserMessage(err) != shared.MsgInvalidLogin {
			t.Errorf("unexpected message %q", shared.UserMessage(err))
		}
	})
}

func TestUpdateSettings(t *testing.T) {
	profiles := tu.NewMemoryProfiles(models.UserProfile{ID: "u1", FullName: "Ada", Languages: []string{"English"}, Onboarded: true})
	svc := NewService(&tu.MockAuth{}, profiles, true, nil)

	p, err := svc.UpdateSettings(context.Background(), &models.Identity{ID: "u1"}, SettingsRequest{FullName: "Ada L.", Gender: "female", Age: "36"})
	if err != nil {
		t.Fatal(err)
	}
	if p.FullName != "Ada L." || p.Gender != "female" || p.Age != "36" {
		t.Errorf("unexpected profile %+v", p)
	}
	if len(p.Languages) != 1 || !p.Onboarded {
		t.Error("settings save must not touch other fields")
	}
}

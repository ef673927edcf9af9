package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-toon/internal/auth"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/config"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config failure", err)
	}
}

// TestRun_ValidationFailure verifies run refuses a config that fails validation
// before touching any infrastructure.
func TestRun_ValidationFailure(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
bridge:
  id: toon-test
devices:
  - id: washer
    type: plug
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, configPath)
	if err == nil {
		t.Fatal("run() should fail for a plug without dev_uuid")
	}
	if !strings.Contains(err.Error(), "dev_uuid") {
		t.Errorf("run() error = %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestApp_ConfigFromEnv verifies the config flag falls back to the
// environment variable.
func TestApp_ConfigFromEnv(t *testing.T) {
	t.Setenv("GRAYLOGIC_TOON_CONFIG", "/nonexistent/env/config.yaml")

	err := newApp().RunContext(context.Background(), []string{"toonbridge"})
	if err == nil {
		t.Fatal("app should fail with the config path from the environment")
	}
	if !strings.Contains(err.Error(), "/nonexistent/env/config.yaml") {
		t.Errorf("error = %v, want the env path", err)
	}
}

func TestTokenCommand(t *testing.T) {
	const secret = "0123456789abcdef0123456789abcdef"
	path := writeConfig(t, `
bridge:
  id: toon-test
api:
  auth:
    jwt_secret: "`+secret+`"
`)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	args := []string{"toonbridge", "--config", path, "token", "--subject", "ops-laptop", "--role", "admin", "--ttl", "1h"}
	if err := app.RunContext(context.Background(), args); err != nil {
		t.Fatalf("token command error = %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), secret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "ops-laptop" || claims.Role != auth.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl > time.Hour || ttl < 50*time.Minute {
		t.Errorf("token lifetime = %v, want about 1h", ttl)
	}
}

func TestTokenCommand_Errors(t *testing.T) {
	t.Setenv("GRAYLOGIC_API_JWT_SECRET", "")
	noSecret := writeConfig(t, "bridge:\n  id: toon-test\n")

	if _, err := issueToken(noSecret, "ops", auth.RoleViewer, time.Hour); err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("issueToken() without secret error = %v", err)
	}

	withSecret := writeConfig(t, "api:\n  auth:\n    jwt_secret: \"0123456789abcdef0123456789abcdef\"\n")
	if _, err := issueToken(withSecret, "ops", auth.Role("owner"), time.Hour); err == nil {
		t.Error("issueToken() should reject an unknown role")
	}
	if _, err := issueToken("/nonexistent/config.yaml", "ops", auth.RoleViewer, time.Hour); err == nil {
		t.Error("issueToken() should fail on a missing file")
	}
}

func TestToonConfig(t *testing.T) {
	if toonConfig(nil) != nil {
		t.Error("toonConfig(nil) should stay nil")
	}
	if toonAPIURL(nil) != "" {
		t.Error("toonAPIURL(nil) should be empty")
	}

	in := &config.ToonConfig{
		Username:        "user",
		Password:        "pass",
		ClientID:        "id",
		ClientSecret:    "secret",
		AccessCode:      "code",
		AccessToken:     "token",
		RefreshInterval: 60000,
		AuthURL:         "https://auth.local/authorize",
		TokenURL:        "https://auth.local/token",
		APIURL:          "https://api.local",
	}
	out := toonConfig(in)
	if out.Username != "user" || out.Password != "pass" || out.ClientID != "id" || out.ClientSecret != "secret" {
		t.Errorf("credentials not copied: %v", out)
	}
	if out.AccessCode != "code" || out.AccessToken != "token" {
		t.Error("seed code/token not copied")
	}
	if out.RefreshPeriod() != time.Minute {
		t.Errorf("RefreshPeriod() = %v, want 1m", out.RefreshPeriod())
	}
	if out.AuthURL != in.AuthURL || out.TokenURL != in.TokenURL {
		t.Error("endpoints not copied")
	}
	if toonAPIURL(in) != "https://api.local" {
		t.Errorf("toonAPIURL() = %q", toonAPIURL(in))
	}
}

func TestConfigExampleLoads(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if cfg.Toon == nil {
		t.Fatal("example config should carry a toon section")
	}
	if len(cfg.Devices) == 0 {
		t.Error("example config should declare devices")
	}
}

//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/app/apiapp"
	"github.com/valentina-app/backend/internal/config"
)

func TestAPISmoke(t *testing.T) {
	ts := startAPI(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected healthz status: got %d want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp, err = http.Get(ts.URL + "/v1/public/config")
	if err != nil {
		t.Fatalf("get public config: %v", err)
	}
	defer resp.Body.Close()
	var cfg struct {
		RevealAt      time.Time `json:"reveal_at"`
		SignupFeeKobo int64     `json:"signup_fee_kobo"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode public config: %v", err)
	}
	if cfg.SignupFeeKobo != config.Default().App.SignupFeeKobo || cfg.RevealAt.IsZero() {
		t.Fatalf("unexpected public config: %+v", cfg)
	}

	body := `{"name":"Ada","email":"ada@example.com","password":"correct-horse","gender":"female","whatsapp_phone":"+2348000000000"}`
	resp, err = http.Post(ts.URL+"/v1/auth/register", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected register status: got %d want %d", resp.StatusCode, http.StatusCreated)
	}
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/matches", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("unpaid user should get 402, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/admin/v1/overview")
	if err != nil {
		t.Fatalf("admin overview: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("admin overview without session should get 401, got %d", resp.StatusCode)
	}
}

func startAPI(t *testing.T) *httptest.Server {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "valentina_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping test because docker/testcontainers is unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container mapped port: %v", err)
	}

	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.HTTP.Addr = ":0"
	cfg.Postgres.DSN = fmt.Sprintf("postgres://postgres:postgres@%s:%s/valentina_test?sslmode=disable", host, port.Port())
	cfg.Redis.Addr = mr.Addr()

	app, err := apiapp.New(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Shutdown(shutdownCtx)
	})

	ts := httptest.NewServer(app.Handler())
	t.Cleanup(ts.Close)
	return ts
}

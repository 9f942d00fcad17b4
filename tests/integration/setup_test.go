package integration

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jcanyelles/mosaic/internal/application"
	"github.com/jcanyelles/mosaic/internal/domain"
	"github.com/jcanyelles/mosaic/internal/infrastructure/config"
	gatewayhttp "github.com/jcanyelles/mosaic/internal/infrastructure/http"
	"github.com/jcanyelles/mosaic/internal/infrastructure/jwt"
	"github.com/jcanyelles/mosaic/internal/respond"
	"github.com/jcanyelles/mosaic/internal/routing"
	"github.com/jcanyelles/mosaic/internal/services/system"
)

var (
	testServer      *gatewayhttp.Server
	testServerURL   string
	redisContainer  testcontainers.Container
	testJWT         *jwt.Service
	greeterLoads    atomic.Int64
	greeterCleanups atomic.Int64
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	if err := setupRedisContainer(ctx); err != nil {
		log.Fatalf("failed to setup redis container: %v", err)
	}

	if err := setupServer(); err != nil {
		log.Fatalf("failed to setup server: %v", err)
	}

	code := m.Run()

	cleanup(ctx)
	os.Exit(code)
}

func setupRedisContainer(ctx context.Context) error {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("failed to start redis container: %w", err)
	}
	redisContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis host: %w", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return fmt.Errorf("failed to get redis port: %w", err)
	}

	if err := os.Setenv("REDIS_URL", fmt.Sprintf("redis://%s:%s/0", host, port.Port())); err != nil {
		return fmt.Errorf("failed to set REDIS_URL: %w", err)
	}
	return nil
}

func setupServer() error {
	port, err := getFreePort()
	if err != nil {
		return fmt.Errorf("failed to get free port: %w", err)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	pubBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	})

	env := map[string]string{
		"PORT":                  fmt.Sprintf("%d", port),
		"ENV":                   "test",
		"LOG_LEVEL":             "error",
		"RATE_LIMIT_ENABLED":    "true",
		"RATE_LIMIT_IP_RPM":     "1000",
		"ADMIN_JWT_PUBLIC_KEY":  string(pubPEM),
		"ADMIN_JWT_PRIVATE_KEY": string(privPEM),
	}
	for k, v := range env {
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}

	cfg, err := config.Load("test", "", "")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	testJWT = jwt.NewServiceWithKeys(privateKey, &privateKey.PublicKey, cfg.AdminJWTIssuer, cfg.AdminJWTTTL)

	start := time.Now()
	server, err := gatewayhttp.NewServer(cfg, func(registry *application.Registry) []application.Provider {
		return []application.Provider{
			system.Provider(registry, "test", start),
			greeterProvider(),
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testServer = server

	go func() {
		if err := server.Run(); err != nil && err != http.ErrServerClosed {
			log.Printf("server error: %v", err)
		}
	}()

	testServerURL = fmt.Sprintf("http://localhost:%d", port)

	if err := waitForServer(testServerURL, 10*time.Second); err != nil {
		return fmt.Errorf("server didn't start in time: %w", err)
	}

	return nil
}

// greeterProvider builds a small reloadable service so the tests can watch
// the load and cleanup hooks fire across dispose/accept cycles.
func greeterProvider() application.Provider {
	return func() *domain.ServiceDescriptor {
		router := routing.NewRouter()

		router.Add(http.MethodGet, "/hello/[name]", func(_ context.Context, req *domain.Request) (*domain.Response, error) {
			return respond.JSON(http.StatusOK, map[string]string{
				"greeting": "hello " + req.Param("name"),
			})
		})

		router.Add(http.MethodGet, "/loads", func(context.Context, *domain.Request) (*domain.Response, error) {
			return respond.JSON(http.StatusOK, map[string]int64{
				"loads":    greeterLoads.Load(),
				"cleanups": greeterCleanups.Load(),
			})
		})

		return &domain.ServiceDescriptor{
			Name: "greeter",
			Tree: domain.TreeRouter(router),
			OnLoad: func(context.Context) error {
				greeterLoads.Add(1)
				return nil
			},
			OnCleanup: func(context.Context) error {
				greeterCleanups.Add(1)
				return nil
			},
		}
	}
}

func cleanup(ctx context.Context) {
	if testServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := testServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("failed to shutdown server: %v", err)
		}
	}

	if redisContainer != nil {
		if err := redisContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate redis container: %v", err)
		}
	}
}

func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

func waitForServer(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not respond within %v", timeout)
}

func getHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := testJWT.GenerateAdminToken("integration-tests")
	if err != nil {
		t.Fatalf("failed to sign admin token: %v", err)
	}
	return token
}

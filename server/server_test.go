package chserver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrport/userd/server/api/users"
	"github.com/openrport/userd/server/api/users/userstest"
	"github.com/openrport/userd/share/logger"
)

func newTestServerConfig(driver string, seed bool) *Config {
	cfg := &Config{
		Logging: LogConfig{
			LogOutput: logger.LogOutput{File: os.Stdout},
			LogLevel:  logger.LogLevelDebug,
		},
		Storage: StorageConfig{Driver: driver, Seed: seed},
	}
	cfg.Server.ShutdownTimeout = time.Second
	return cfg
}

func TestNewServerStorage(t *testing.T) {
	for _, driver := range []string{StorageMemory, StorageSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := newTestServerConfig(driver, true)
			require.NoError(t, cfg.ParseAndValidate())

			s, err := NewServer(ctx, cfg)
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, s.Close())
			}()

			seeded, err := s.repo.Get(ctx, DemoUser.ID)
			require.NoError(t, err)
			assert.Equal(t, DemoUser.Name, seeded.Name)
			assert.Equal(t, DemoUser.BirthDate, seeded.BirthDate)
			assert.NotNil(t, seeded.CreatedAt)
			assert.Nil(t, seeded.UpdatedAt)
		})
	}
}

func TestNewServerWithoutSeed(t *testing.T) {
	ctx := context.Background()
	cfg := newTestServerConfig(StorageMemory, false)
	require.NoError(t, cfg.ParseAndValidate())

	s, err := NewServer(ctx, cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.repo.Get(ctx, DemoUser.ID)
	assert.ErrorIs(t, err, users.ErrInvalidID)
}

func TestNewServerUnknownStorage(t *testing.T) {
	cfg := newTestServerConfig("redis", false)

	_, err := NewServer(context.Background(), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage driver "redis"`)
}

func TestServerRun(t *testing.T) {
	cfg := newTestServerConfig(StorageMemory, true)
	require.NoError(t, cfg.ParseAndValidate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := NewServer(ctx, cfg)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx)
	}()

	var addr string
	require.Eventually(t, func() bool {
		if a := s.apiListener.Addr(); a != nil {
			addr = a.String()
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/api/v1/users/" + DemoUser.ID.String())
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got userResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, DemoUser.ID, got.Data.ID)

	resp, err = http.Post("http://"+addr+"/api/v1/users", "application/json", strings.NewReader(userBody("", "Ana")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// poisonableRepository returns a memory repository whose clock panics while fail is set.
func poisonableRepository(fail *atomic.Bool) *users.MemoryRepository {
	return users.NewMemoryRepository(users.WithClock(func() time.Time {
		if fail.Load() {
			panic("clock failure")
		}
		return time.Now()
	}))
}

func poison(t *testing.T, repo *users.MemoryRepository, fail *atomic.Bool) {
	t.Helper()
	fail.Store(true)
	_, err := repo.Create(context.Background(), DemoUser)
	fail.Store(false)
	require.ErrorIs(t, err, users.ErrLock)
	_, poisoned := repo.Poisoned()
	require.True(t, poisoned)
}

func TestServerClearPoison(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	repo := poisonableRepository(&fail)
	s := &Server{
		Logger: testLog,
		config: newTestServerConfig(StorageMemory, false),
		repo:   repo,
	}
	poison(t, repo, &fail)

	_, err := repo.Get(ctx, DemoUser.ID)
	assert.ErrorIs(t, err, users.ErrLock)

	s.ClearPoison()

	_, err = repo.Get(ctx, DemoUser.ID)
	assert.ErrorIs(t, err, users.ErrInvalidID)
	_, err = repo.Create(ctx, DemoUser)
	assert.NoError(t, err)

	// backends without a poisoned state are left alone
	stub := &userstest.RepositoryStub{}
	s.repo = stub
	s.ClearPoison()
	assert.Empty(t, stub.Calls())
}

func writeTestCertificate(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "userd-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certFile, keyFile
}

func TestServerRunTLS(t *testing.T) {
	cfg := newTestServerConfig(StorageMemory, false)
	cfg.Server.CertFile, cfg.Server.KeyFile = writeTestCertificate(t)
	require.NoError(t, cfg.ParseAndValidate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := NewServer(ctx, cfg)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx)
	}()

	var addr string
	require.Eventually(t, func() bool {
		if a := s.apiListener.Addr(); a != nil {
			addr = a.String()
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}
	resp, err := client.Get("https://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, resp.TLS)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

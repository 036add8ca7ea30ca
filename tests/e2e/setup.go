//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-checkout/cmd/bootstrap"
	"storefront-checkout/cmd/bootstrap/components"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/infra/messaging"
	"storefront-checkout/internal/infra/rajaongkir"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/tests/common/dbtest"

	"github.com/alicebob/miniredis/v2"
	"github.com/docker/go-connections/nat"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
)

var (
	postgresContainerOnce sync.Once
	postgresTestContainer testcontainers.Container

	testUser     = "test"
	testPassword = "testpass"
)

type ContainerInfo struct {
	Host string
	Port nat.Port
}

// Collaborators outside the process are replaced by these doubles.
type Externals struct {
	Carrier   *CarrierStub
	Payments  *PaymentStub
	Publisher *RecordingPublisher
	Redis     *miniredis.Miniredis
}

// ------------------------------------------------------------
// per test process setup
// ------------------------------------------------------------
func setupE2EEnvironment(t *testing.T) (*pgxpool.Pool, *gin.Engine, config.Config, *messaging.Dispatcher, *Externals) {
	postgresInfo := startContainers(t)

	pool, dbConfig := prepareDatabase(t, postgresInfo)

	ext := newExternals(t)
	router, cfg, dispatcher, app := buildE2EApp(pool, dbConfig, ext)
	require.NotNil(t, router, "router setup failed")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			slog.Warn("failed to stop fx app", "error", err.Error())
		}
	})

	slog.Info("e2e environment ready",
		"postgres_host", postgresInfo.Host,
		"postgres_port", postgresInfo.Port.Port())

	return pool, router, cfg, dispatcher, ext
}

func startContainers(t *testing.T) ContainerInfo {
	gin.SetMode(gin.TestMode)
	startPostgreSQLContainerOnce(t)

	postgresInfo, err := getContainerHostPort(postgresTestContainer, "5432/tcp")
	require.NoError(t, err, "failed to read postgres container address")

	return postgresInfo
}

// ------------------------------------------------------------
// database per test process
// ------------------------------------------------------------
func prepareDatabase(t *testing.T, postgresInfo ContainerInfo) (*pgxpool.Pool, config.DBConfig) {
	dbName := "testdb_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	adminDSN := fmt.Sprintf("postgres://%s:%s@%s:%s/postgres?sslmode=disable",
		testUser, testPassword, postgresInfo.Host, postgresInfo.Port.Port())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	adminPool, err := pgxpool.New(ctx, adminDSN)
	require.NoError(t, err, "admin connection failed")
	defer adminPool.Close()

	var createErr error
	for attempts := range 5 {
		if attempts > 0 {
			waitTime := min(time.Duration(500+attempts*500)*time.Millisecond, 3*time.Second)
			time.Sleep(waitTime)
			slog.Warn("retrying database creation", "attempt", attempts+1, "error", createErr, "retry_wait", waitTime)
		}
		_, createErr = adminPool.Exec(ctx, "CREATE DATABASE "+dbName)
		if createErr == nil {
			break
		}
	}
	require.NoError(t, createErr, "failed to create test database")

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()

		cleanupPool, err := pgxpool.New(cleanupCtx, adminDSN)
		if err != nil {
			slog.Warn("cleanup connection failed", "database", dbName, "error", err.Error())
			return
		}
		defer cleanupPool.Close()

		if _, err := cleanupPool.Exec(cleanupCtx, "DROP DATABASE IF EXISTS "+dbName+" WITH (FORCE)"); err != nil {
			slog.Warn("failed to drop test database", "database", dbName, "error", err.Error())
		}
	})

	dbConfig := config.DBConfig{
		Host:     postgresInfo.Host,
		Port:     postgresInfo.Port.Port(),
		User:     testUser,
		Password: testPassword,
		DBName:   dbName,
		SSLMode:  "disable",
		TimeZone: "Asia/Jakarta",
		MaxConns: 30,
	}

	pool, _, err := db.Connect(dbConfig)
	require.NoError(t, err, "database connection failed")
	require.NotNil(t, pool)

	require.NoError(t, db.Migrate(pool), "migration failed")

	return pool, dbConfig
}

// ------------------------------------------------------------
// external doubles
// ------------------------------------------------------------

// CarrierStub answers the RajaOngkir /cost endpoint with a fixed quote table.
type CarrierStub struct {
	Server *httptest.Server
	Calls  atomic.Int64
	Fail   atomic.Bool
}

func newCarrierStub(t *testing.T) *CarrierStub {
	stub := &CarrierStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.Calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if stub.Fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"rajaongkir":{"status":{"code":502,"description":"upstream down"}}}`))
			return
		}
		if err := r.ParseForm(); err != nil || r.Header.Get("key") == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"rajaongkir":{"status":{"code":400,"description":"Invalid key."}}}`))
			return
		}
		courier := r.PostForm.Get("courier")
		_, _ = fmt.Fprintf(w, `{"rajaongkir":{"status":{"code":200,"description":"OK"},"results":[{"code":%q,"name":"Jalur Nugraha Ekakurir (JNE)","costs":[
			{"service":"OKE","description":"Ongkos Kirim Ekonomis","cost":[{"value":15000,"etd":"2-3","note":""}]},
			{"service":"REG","description":"Layanan Reguler","cost":[{"value":18000,"etd":"1-2","note":""}]}
		]}]}}`, courier)
	}))
	t.Cleanup(stub.Server.Close)
	return stub
}

// PaymentStub issues deterministic snap tokens.
type PaymentStub struct {
	mu       sync.Mutex
	requests []commands.PaymentRequest
	Fail     atomic.Bool
}

func (p *PaymentStub) CreateSession(_ context.Context, req commands.PaymentRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.Fail.Load() {
		return "", fmt.Errorf("payment provider unavailable")
	}
	return "snap-" + req.OrderNumber, nil
}

func (p *PaymentStub) Requests() []commands.PaymentRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]commands.PaymentRequest(nil), p.requests...)
}

func (p *PaymentStub) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = nil
	p.Fail.Store(false)
}

// RecordingPublisher stands in for the AMQP publisher.
type RecordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *RecordingPublisher) Publish(_ context.Context, topic, _ string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *RecordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = nil
}

func newExternals(t *testing.T) *Externals {
	return &Externals{
		Carrier:   newCarrierStub(t),
		Payments:  &PaymentStub{},
		Publisher: &RecordingPublisher{},
		Redis:     miniredis.RunT(t),
	}
}

// ------------------------------------------------------------
// fx app for e2e
// ------------------------------------------------------------
func buildE2EApp(pool *pgxpool.Pool, dbConfig config.DBConfig, ext *Externals) (*gin.Engine, config.Config, *messaging.Dispatcher, *fx.App) {
	var (
		router     *gin.Engine
		cfg        config.Config
		dispatcher *messaging.Dispatcher
	)

	testDBModule := fx.Module("testdb",
		fx.Provide(func() *pgxpool.Pool { return pool }),
	)

	testConfigModule := fx.Module("testconfig",
		fx.Provide(func() config.Config {
			return createTestConfig(dbConfig, ext)
		}),
		fx.Provide(bootstrap.NewLocation),
	)

	testClientsModule := fx.Module("testclients",
		fx.Provide(
			func() redis.UniversalClient {
				return redis.NewClient(&redis.Options{Addr: ext.Redis.Addr()})
			},
			func(cfg config.Config, rdb redis.UniversalClient) commands.RateClient {
				return rajaongkir.NewCachedClient(rajaongkir.NewClient(cfg.RajaOngkir, ext.Carrier.Server.Client()), rdb, cfg.RajaOngkir.CacheTTL)
			},
			func() commands.PaymentGateway { return ext.Payments },
		),
	)

	// Dispatcher is driven manually by tests through DispatchOnce.
	testMessagingModule := fx.Module("testmessaging",
		fx.Provide(func(cfg config.Config, store messaging.JobStore, clk clock.Clock) *messaging.Dispatcher {
			return messaging.NewDispatcher(store, ext.Publisher, clk, cfg.AMQP.PollInterval, cfg.AMQP.BatchSize)
		}),
	)

	app := fx.New(
		testDBModule,
		testConfigModule,
		testClientsModule,
		testMessagingModule,
		fx.Provide(func() *gin.Engine { return gin.New() }),
		bootstrap.LoggerModule,
		bootstrap.JWTModule,
		components.PersistenceModule,
		components.UseCaseModule,
		components.HandlerModule,

		fx.Populate(&router, &cfg, &dispatcher),

		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		panic(fmt.Sprintf("Failed to start fx app: %v", err))
	}

	if router == nil {
		panic("fx app started without a router")
	}

	return router, cfg, dispatcher, app
}

func createTestConfig(dbConfig config.DBConfig, ext *Externals) config.Config {
	testConfig := config.NewTestConfig()
	testConfig.DB = dbConfig
	testConfig.RajaOngkir.BaseURL = ext.Carrier.Server.URL
	testConfig.Redis.Addr = ext.Redis.Addr()
	testConfig.AMQP.BatchSize = 50
	return testConfig
}

func startGenericContainer(req testcontainers.ContainerRequest, timeoutSec int) (testcontainers.Container, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	return testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
}

// ------------------------------------------------------------
// start (or reuse) the postgres container once
// ------------------------------------------------------------
func startPostgreSQLContainerOnce(t *testing.T) {
	postgresContainerOnce.Do(func() {
		req := testcontainers.ContainerRequest{
			Image:        "postgres:17",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     testUser,
				"POSTGRES_PASSWORD": testPassword,
				"POSTGRES_DB":       "postgres",
			},
			Tmpfs: map[string]string{
				"/var/lib/postgresql/data": "rw,size=512m",
			},
			Cmd: []string{
				"postgres",
				"-c", "fsync=off",
				"-c", "full_page_writes=off",
				"-c", "synchronous_commit=off",
				"-c", "shared_buffers=256MB",
				"-c", "max_connections=200",
				"-c", "log_statement=none",
			},
			WaitingFor: wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
				return fmt.Sprintf("postgres://%s:%s@%s:%s/postgres?sslmode=disable",
					testUser, testPassword, host, port.Port())
			}).WithStartupTimeout(60 * time.Second),
			Labels: map[string]string{"purpose": "e2e-tests"},
		}

		var err error
		postgresTestContainer, err = startGenericContainer(req, 180)
		require.NoError(t, err, "failed to start postgres container")

		t.Cleanup(func() {
			if postgresTestContainer != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := postgresTestContainer.Terminate(ctx); err != nil {
					slog.Warn("failed to terminate postgres container", "error", err.Error())
				}
			}
		})
	})
}

func getContainerHostPort(c testcontainers.Container, port string) (ContainerInfo, error) {
	ctx := context.Background()
	mappedPort, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return ContainerInfo{}, err
	}
	host, err := c.Host(ctx)
	if err != nil {
		return ContainerInfo{}, err
	}
	return ContainerInfo{Host: host, Port: mappedPort}, nil
}

// ------------------------------------------------------------
// shared e2e suite
// ------------------------------------------------------------
type SharedSuite struct {
	suite.Suite
	Router     *gin.Engine
	DB         *pgxpool.Pool
	Config     config.Config
	Dispatcher *messaging.Dispatcher
	Ext        *Externals
}

func (s *SharedSuite) SetupSharedSuite(t *testing.T) {
	pool, router, cfg, dispatcher, ext := setupE2EEnvironment(t)
	s.DB = pool
	s.Router = router
	s.Config = cfg
	s.Dispatcher = dispatcher
	s.Ext = ext
	require.NotNil(t, pool)
	require.NotEmpty(t, s.Config)
	require.NotNil(t, s.Router)
}

func (s *SharedSuite) SetupSuite() {
	s.SetupSharedSuite(s.T())
}

func (s *SharedSuite) SetupTest() {
	s.reset()
}

func (s *SharedSuite) SetupSubTest() {
	s.reset()
}

func (s *SharedSuite) reset() {
	require.NoError(s.T(), dbtest.ResetDB(s.DB), "Failed to reset database state")
	s.Ext.Redis.FlushAll()
	s.Ext.Carrier.Fail.Store(false)
	s.Ext.Payments.Reset()
	s.Ext.Publisher.Reset()
}

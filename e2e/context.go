package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"assura/internal/encryption"
	gdprhandler "assura/internal/gdpr/handler"
	gdprmetrics "assura/internal/gdpr/metrics"
	gdprservice "assura/internal/gdpr/service"
	gdprstore "assura/internal/gdpr/store"
	insured "assura/internal/insured/models"
	insuredstore "assura/internal/insured/store"
	jwttoken "assura/internal/jwt_token"
	"assura/internal/platform/health"
	httptransport "assura/internal/transport/http"
	id "assura/pkg/domain"
	"assura/pkg/platform/middleware/metadata"
	"assura/pkg/platform/middleware/request"
)

const (
	signingKey = "e2e-signing-key"
	testKey    = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
	testIV     = "AAECAwQFBgcICQoLDA0ODw=="
)

// TestContext holds state between test steps. Each scenario gets its own
// in-process server on memory stores, which the Given steps populate directly.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	AccessToken      string

	server  *httptest.Server
	jwt     *jwttoken.JWTService
	persons *insuredstore.InMemoryStore
	people  map[string]*insured.Person
}

// NewTestContext creates a new test context
func NewTestContext() (*TestContext, error) {
	tc := &TestContext{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		jwt:        jwttoken.NewJWTService(signingKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience, jwttoken.DefaultTokenTTL),
		people:     make(map[string]*insured.Person),
	}
	if err := tc.startServer(); err != nil {
		return nil, err
	}
	return tc, nil
}

func (tc *TestContext) startServer() error {
	engine, err := encryption.NewEngineFromBase64(testKey, testIV)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	codec := encryption.NewCodec(insured.PersonSchema, engine,
		encryption.WithMetrics(encryption.NewMetrics(reg)))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tc.persons = insuredstore.NewInMemoryStore(codec)
	stores := gdprservice.Stores{
		Persons:  tc.persons,
		Consents: gdprstore.NewInMemoryConsentStore(),
		Audit:    gdprstore.NewInMemoryAuditStore(),
	}
	registry, err := insured.NewRegistry()
	if err != nil {
		return err
	}
	metrics := gdprmetrics.NewWithRegisterer(reg)
	svc := gdprservice.New(stores, gdprservice.NewShardedTx(stores, metrics),
		gdprservice.WithLogger(logger),
		gdprservice.WithMetrics(metrics),
		gdprservice.WithRegistry(registry),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         logger,
		Health:         health.New("test"),
		Validator:      jwttoken.NewJWTServiceAdapter(tc.jwt),
		Metadata:       metadata.NewMiddleware(),
		Metrics:        request.NewMetricsWithRegisterer(reg),
		Gatherer:       reg,
		RequestTimeout: 5 * time.Second,
		Modules:        []httptransport.Registrar{gdprhandler.New(svc, logger)},
	})
	tc.server = httptest.NewServer(router)
	tc.BaseURL = tc.server.URL
	return nil
}

// Close stops the in-process server, if any.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

func (tc *TestContext) signIn(userID id.UserID, role id.Role) error {
	token, err := tc.jwt.GenerateAccessToken(context.Background(), userID, role)
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}
	tc.AccessToken = token
	return nil
}

// Do makes a request with the current bearer token and stores the response.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.AccessToken)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a top-level field from the JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

// ResponseContains checks if the response body contains text.
func (tc *TestContext) ResponseContains(text string) bool {
	return strings.Contains(string(tc.LastResponseBody), text)
}

// personPath substitutes the ID of a named person for {name} in path.
func (tc *TestContext) personPath(path string) (string, error) {
	for name, p := range tc.people {
		path = strings.ReplaceAll(path, "{"+name+"}", p.ID.String())
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("unknown person in path %q", path)
	}
	return path, nil
}

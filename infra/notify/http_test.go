package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afetops/coordcore/auth"
	"github.com/afetops/coordcore/core/model"
	corenotify "github.com/afetops/coordcore/core/notify"
	"github.com/afetops/coordcore/infra/logger"
)

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
}

func TestHTTPDispatcherDelivers(t *testing.T) {
	tokens := tokenServer(t)
	defer tokens.Close()

	var mu sync.Mutex
	var gotAuth string
	var gotBody corenotify.Notification
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer svc.Close()

	d, err := NewHTTPDispatcher(Conf{
		Endpoint: svc.URL,
		Auth:     auth.Conf{ClientID: "id", ClientSecret: "secret", AuthURL: tokens.URL},
	}, logger.NopLogger{})
	require.NoError(t, err)

	n := corenotify.Notification{
		Roles:    []model.Role{model.RoleCoordinator},
		Title:    "Critical request",
		Message:  "a critical help request was submitted",
		Priority: model.LevelCritical,
		Channels: []corenotify.Channel{corenotify.ChannelPush},
	}
	require.NoError(t, d.Enqueue(context.Background(), n))
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer token123", gotAuth)
	assert.Equal(t, n.Title, gotBody.Title)
	assert.Equal(t, n.Roles, gotBody.Roles)
	assert.Equal(t, n.Channels, gotBody.Channels)
}

func TestHTTPDispatcherRetriesUntilSuccess(t *testing.T) {
	tokens := tokenServer(t)
	defer tokens.Close()

	var mu sync.Mutex
	attempts := 0
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer svc.Close()

	d, err := NewHTTPDispatcher(Conf{
		Endpoint:     svc.URL,
		Auth:         auth.Conf{ClientID: "id", ClientSecret: "secret", AuthURL: tokens.URL},
		MaxRetries:   3,
		RetryBackoff: 1,
	}, logger.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, d.Enqueue(context.Background(), corenotify.Notification{Title: "t"}))
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestHTTPDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	tokens := tokenServer(t)
	defer tokens.Close()

	var mu sync.Mutex
	attempts := 0
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer svc.Close()

	d, err := NewHTTPDispatcher(Conf{
		Endpoint:     svc.URL,
		Auth:         auth.Conf{ClientID: "id", ClientSecret: "secret", AuthURL: tokens.URL},
		MaxRetries:   2,
		RetryBackoff: 1,
	}, logger.NopLogger{})
	require.NoError(t, err)

	// Enqueue must not surface delivery failures.
	require.NoError(t, d.Enqueue(context.Background(), corenotify.Notification{Title: "t"}))
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestNewHTTPDispatcherRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPDispatcher(Conf{}, logger.NopLogger{})
	assert.Error(t, err)
}

func TestMemoryRecords(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Enqueue(context.Background(), corenotify.Notification{Title: "a"}))
	require.NoError(t, m.Enqueue(context.Background(), corenotify.Notification{Title: "b"}))
	sent := m.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "a", sent[0].Title)
}

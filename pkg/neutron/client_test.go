package neutron

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		Endpoint:   srv.URL + "/",
		Token:      "secret-token",
		Retries:    3,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{Token: "t"})
	assert.Error(t, err)

	_, err = NewClient(Config{Endpoint: "http://neutron:9696"})
	assert.Error(t, err)

	c, err := NewClient(Config{Endpoint: "http://neutron:9696/", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "http://neutron:9696", c.baseURL)
	assert.Equal(t, uint(1), c.attempts)

	c, err = NewClient(Config{Endpoint: "http://neutron:9696", Token: "t", Retries: DefaultRetries})
	require.NoError(t, err)
	assert.Equal(t, uint(DefaultRetries+1), c.attempts)
}

func TestListRouters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2.0/routers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("X-Auth-Token"))
		if r.URL.Query().Get("marker") == "" {
			fmt.Fprintf(w, `{"routers":[{"id":"r1","name":"edge","status":"ACTIVE","admin_state_up":true}],
				"routers_links":[{"rel":"next","href":"http://%s/v2.0/routers?marker=r1"}]}`, r.Host)
			return
		}
		fmt.Fprint(w, `{"routers":[{"id":"r2","status":"PENDING_CREATE","admin_state_up":false}]}`)
	})

	c := newTestClient(t, mux)
	routers, err := c.ListRouters(context.Background())
	require.NoError(t, err)
	require.Len(t, routers, 2)

	require.NotNil(t, routers[0].ID)
	assert.Equal(t, "r1", *routers[0].ID)
	assert.Equal(t, "edge", routers[0].Name)
	assert.Equal(t, "ACTIVE", routers[0].Status)
	require.NotNil(t, routers[0].AdminStateUp)
	assert.True(t, *routers[0].AdminStateUp)

	assert.Equal(t, "r2", *routers[1].ID)
	assert.False(t, *routers[1].AdminStateUp)
}

func TestListRoutersMissingKey(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"networks":[]}`)
	}))

	_, err := c.ListRouters(context.Background())
	var cpErr *ControlPlaneError
	require.True(t, errors.As(err, &cpErr))
	assert.Equal(t, "list routers", cpErr.Op)
}

func TestListFloatingIPs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2.0/floatingips", r.URL.Path)
		fmt.Fprint(w, `{"floatingips":[
			{"id":"f1","floating_ip_address":"10.0.0.5","router_id":"r1"},
			{"id":"f2","floating_ip_address":"10.0.0.6","router_id":null}]}`)
	}))

	fips, err := c.ListFloatingIPs(context.Background())
	require.NoError(t, err)
	require.Len(t, fips, 2)
	assert.Equal(t, "10.0.0.5", *fips[0].FloatingIPAddress)
	assert.Equal(t, "r1", *fips[0].RouterID)
	assert.Nil(t, fips[1].RouterID)
}

func TestListAgentsHostingRouter(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2.0/routers/r1/l3-agents", r.URL.Path)
		fmt.Fprint(w, `{"agents":[{"id":"a1","host":"net-1","agent_type":"L3 agent","alive":true,"admin_state_up":true}]}`)
	}))

	agents, err := c.ListAgentsHostingRouter(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "net-1", agents[0].Host)
	assert.True(t, agents[0].Alive)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"routers":[]}`)
	}))

	routers, err := c.ListRouters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, routers)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetriesDisabled(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Endpoint: srv.URL, Token: "t", Retries: 0, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	_, err = c.ListRouters(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryCountExcludesFirstCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Endpoint: srv.URL, Token: "t", Retries: 2, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	_, err = c.ListFloatingIPs(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTransportKeepsProxyFromEnvironment(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "https://neutron:9696", Token: "t", InsecureTLS: true})
	require.NoError(t, err)

	transport, ok := c.httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, transport.Proxy)
	assert.NotNil(t, transport.DialContext)
	assert.True(t, transport.ForceAttemptHTTP2)
	require.NotNil(t, transport.TLSClientConfig)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
	assert.NotSame(t, http.DefaultTransport, transport)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"token expired"}`)
	}))

	_, err := c.ListFloatingIPs(context.Background())
	require.Error(t, err)

	var cpErr *ControlPlaneError
	require.True(t, errors.As(err, &cpErr))
	assert.Equal(t, http.StatusUnauthorized, cpErr.StatusCode)
	assert.False(t, cpErr.Temporary())
	assert.Contains(t, err.Error(), "token expired")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c, err := NewClient(Config{Endpoint: endpoint, Token: "t", Retries: 2, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	_, err = c.ListRouters(context.Background())
	var cpErr *ControlPlaneError
	require.True(t, errors.As(err, &cpErr))
	assert.Zero(t, cpErr.StatusCode)
	assert.True(t, cpErr.Temporary())
}

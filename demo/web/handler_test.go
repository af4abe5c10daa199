package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	di "github.com/tkrause/scopekit"
	"github.com/tkrause/scopekit/demo/services"
	"github.com/tkrause/scopekit/demo/web"
)

var uuidPattern = regexp.MustCompile(
	`<code>([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})</code>`)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := zaptest.NewLogger(t)

	c, err := di.NewContainer(
		di.WithService(log),
		di.WithService(services.NewTransientStamp, di.Transient),
		di.WithService(services.NewNotificationService, di.Scoped),
		di.WithService(services.NewNotificationService, di.WithTag(services.SharedTag)),
		di.WithService(services.NewViewService, di.Scoped),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(web.NewRouter(c, log))
	t.Cleanup(func() {
		srv.Close()
		_ = c.Close(context.Background())
	})

	return srv
}

func getBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}

func Test_ShowPage(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)

	body := getBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	// Component, request, shared, and stamp identifiers, in page order
	ids := uuidPattern.FindAllStringSubmatch(body, -1)
	require.Len(t, ids, 4)

	componentID := ids[0][1]
	requestID := ids[1][1]

	// Each scope caches its own instance of the scoped service
	assert.NotEqual(t, componentID, requestID)
	assert.Contains(t, body, "Identifiers differ")

	assert.Contains(t, body, "No notifications yet.")
}

func Test_ShowPage_FreshScopesPerRequest(t *testing.T) {
	srv := newTestServer(t)

	resp1, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body1 := getBody(t, resp1)

	resp2, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body2 := getBody(t, resp2)

	ids1 := uuidPattern.FindAllStringSubmatch(body1, -1)
	ids2 := uuidPattern.FindAllStringSubmatch(body2, -1)
	require.Len(t, ids1, 4)
	require.Len(t, ids2, 4)

	// Request-scoped identifiers change between requests
	assert.NotEqual(t, ids1[1][1], ids2[1][1])

	// The shared singleton identifier does not
	assert.Equal(t, ids1[2][1], ids2[2][1])
}

func Test_NotifyShared(t *testing.T) {
	srv := newTestServer(t)

	// The client follows the 303 back to the page
	resp, err := http.Post(srv.URL+"/notify/shared", "", nil)
	require.NoError(t, err)

	body := getBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Changed at ")
	assert.NotContains(t, body, "No notifications yet.")
}

func Test_NotifyView(t *testing.T) {
	srv := newTestServer(t)

	// The view service routes the notification to the shared singleton,
	// so the message survives into the next request.
	resp, err := http.Post(srv.URL+"/notify/view", "", nil)
	require.NoError(t, err)

	body := getBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Changed at ")
}

func Test_NotifyView_NoRedirectFollow(t *testing.T) {
	srv := newTestServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Post(srv.URL+"/notify/view", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func Test_Healthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)

	body := getBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

package illustraitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient starts a server for handler and returns a client pointed at it
// together with a counter of requests the server received.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	return New(srv.URL, opts...), &hits
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const stylesBody = `{"status":"success","styles":[
	{"id":"creative","name":"Creative","credits_cost":1,"description":"artistic"},
	{"id":"anime","name":"Anime","credits_cost":2,"description":"anime style","demo_image":"https://x/anime.png"}
],"total":2}`

func TestFetchStyles_ReplacesActiveCatalog(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/styles", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, stylesBody)
	})

	assert.True(t, c.Catalog().Fallback)

	catalog, err := c.FetchStyles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, catalog.Fallback)
	assert.Equal(t, []string{"creative", "anime"}, catalog.IDs())

	anime, ok := catalog.Lookup("anime")
	require.True(t, ok)
	assert.Equal(t, 2, anime.CreditsCost)
	assert.Equal(t, "https://x/anime.png", anime.DemoImage)

	assert.Equal(t, catalog.IDs(), c.Catalog().IDs())
	assert.Contains(t, c.Catalog().RawJSON(), `"anime"`)
}

func TestFetchStyles_MalformedResponseReturnsFallback(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"styles": [`)
	})

	catalog, err := c.FetchStyles(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.True(t, catalog.Fallback)
	require.Len(t, catalog.Styles, 1)
	assert.Equal(t, DefaultStyleID, catalog.Styles[0].ID)
}

func TestFetchStyles_EmptyListReturnsFallback(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"styles": []}`)
	})

	catalog, err := c.FetchStyles(context.Background())
	assert.ErrorIs(t, err, ErrParse)
	assert.NotEmpty(t, catalog.Styles)
}

func TestFetchStyles_ServerErrorReturnsFallback(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"detail":"boom"}`)
	})

	catalog, err := c.FetchStyles(context.Background())
	assert.ErrorIs(t, err, ErrServer)
	assert.True(t, catalog.Has(DefaultStyleID))
}

func TestFetchStyles_TimeoutIsDistinguishable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, WithTimeout(50*time.Millisecond))

	catalog, err := c.FetchStyles(context.Background())
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.True(t, catalog.Fallback)
}

func TestFetchStyles_FailureKeepsPreviousCatalog(t *testing.T) {
	var fail atomic.Bool
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			writeJSON(w, http.StatusBadGateway, `oops`)
			return
		}
		writeJSON(w, http.StatusOK, stylesBody)
	})

	_, err := c.FetchStyles(context.Background())
	require.NoError(t, err)

	fail.Store(true)
	catalog, err := c.FetchStyles(context.Background())
	require.Error(t, err)
	assert.True(t, catalog.Fallback)
	assert.True(t, c.Catalog().Has("anime"), "active catalog is only replaced on success")
}

func TestNetworkErrorWhenServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(2*time.Second))
	_, err := c.FetchStyles(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
	assert.False(t, IsTimeout(err))
}

func TestServerError_MessageShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"Insufficient credits"}`, "Insufficient credits"},
		{"detail object", `{"detail":{"status":"error","error":"Unknown style"}}`, "Unknown style"},
		{"detail list", `{"detail":[{"loc":["body","text"],"msg":"field required"}]}`, "field required"},
		{"message", `{"message":"try later"}`, "try later"},
		{"not json", `<html>bad gateway</html>`, "HTTP 502 Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := serverError(http.StatusBadGateway, []byte(tt.body))
			assert.Equal(t, KindServer, e.Kind)
			assert.Equal(t, tt.want, e.Message)
		})
	}
}

func TestNew_TrimsBaseURL(t *testing.T) {
	c := New(" http://127.0.0.1:8000/ ")
	assert.Equal(t, "http://127.0.0.1:8000", c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.Timeout())
}

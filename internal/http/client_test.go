package http

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, opts Options) *Client {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	opts.Logger = logger
	if opts.RetryWait == 0 {
		opts.RetryWait = time.Millisecond
		opts.RetryMaxWait = 5 * time.Millisecond
	}
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func writeGBK(t *testing.T, w http.ResponseWriter, s string) {
	t.Helper()
	b, err := EncodeGBK(s)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "text/html; charset=gbk")
	_, _ = w.Write(b)
}

func TestGetPage_DecodesGBK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeGBK(t, w, "<div class=\"title\">斗罗大陆最新章节</div>")
	}))
	defer server.Close()

	c := testClient(t, Options{})
	page, err := c.GetPage(server.URL+"/html/1/1/", nil)
	require.NoError(t, err)

	assert.Equal(t, "<div class=\"title\">斗罗大陆最新章节</div>", page.Body)
	assert.Equal(t, server.URL+"/html/1/1/", page.URL)
}

func TestGetPage_RetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeGBK(t, w, "ok")
	}))
	defer server.Close()

	c := testClient(t, Options{RetryCount: 2})
	page, err := c.GetPage(server.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, "ok", page.Body)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestGetPage_StatusErrorAfterRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := testClient(t, Options{RetryCount: 1})
	_, err := c.GetPage(server.URL, nil)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestGetPage_NotFoundIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := testClient(t, Options{RetryCount: 3})
	_, err := c.GetPage(server.URL, nil)

	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestPostForm_FollowsRedirect(t *testing.T) {
	var gotBody, gotType, gotReferer string
	mux := http.NewServeMux()
	mux.HandleFunc("/modules/article/search.php", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotReferer = r.Header.Get("Referer")
		http.Redirect(w, r, "/bookinfo/8/8866.html", http.StatusFound)
	})
	mux.HandleFunc("/bookinfo/8/8866.html", func(w http.ResponseWriter, r *http.Request) {
		writeGBK(t, w, "<h1>书</h1>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := testClient(t, Options{})
	page, err := c.PostForm(server.URL+"/modules/article/search.php", "searchkey=%B6%B7", map[string]string{
		"Referer": server.URL + "/modules/article/search.php",
	})
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/bookinfo/8/8866.html", page.URL)
	assert.Equal(t, "<h1>书</h1>", page.Body)
	assert.Equal(t, "searchkey=%B6%B7", gotBody)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)
	assert.Equal(t, server.URL+"/modules/article/search.php", gotReferer)
}

func TestNewClient_UserAgentFromPool(t *testing.T) {
	c := testClient(t, Options{UserAgents: []string{"agent-a"}})
	assert.Equal(t, "agent-a", c.UserAgent())

	c = testClient(t, Options{})
	assert.Contains(t, UserAgents, c.UserAgent())

	c = testClient(t, Options{UserAgent: "fixed"})
	assert.Equal(t, "fixed", c.UserAgent())
}

func TestNewClient_SendsCookies(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("jieqiUserInfo"); err == nil {
			gotCookie = ck.Value
		}
		writeGBK(t, w, "ok")
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"jieqiUserInfo": "abc"}`), 0644))

	c := testClient(t, Options{BaseURL: server.URL, CookiesPath: path})
	_, err := c.GetPage(server.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, "abc", gotCookie)
}

func TestGetBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer server.Close()

	c := testClient(t, Options{})
	b, err := c.GetBytes(server.URL + "/cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, b)
}

func TestQueryEscapeGBK(t *testing.T) {
	escaped, err := QueryEscapeGBK("斗罗 大陆")
	require.NoError(t, err)

	for _, r := range escaped {
		assert.Less(t, r, rune(0x80))
	}

	raw, err := url.QueryUnescape(escaped)
	require.NoError(t, err)
	decoded, err := DecodeGBK([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "斗罗 大陆", decoded)
}

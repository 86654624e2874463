package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetch_UserAgentAndHeaders(t *testing.T) {
	t.Setenv(EnvUserAgent, "test-agent/1.0")
	var gotUA, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("x-apikey")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cl, err := New(Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	b, err := cl.Get(context.Background(), srv.URL, http.Header{"X-Apikey": {"k1"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(b) != "ok" {
		t.Fatalf("body = %q", b)
	}
	if gotUA != "test-agent/1.0" {
		t.Fatalf("user-agent = %q, want %q", gotUA, "test-agent/1.0")
	}
	if gotKey != "k1" {
		t.Fatalf("x-apikey = %q", gotKey)
	}
}

func TestFetch_NoRetryOnStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	}))
	defer srv.Close()

	cl, _ := New(Options{Timeout: 2 * time.Second})
	_, err := cl.Get(context.Background(), srv.URL+"/flights?access_key=secret", nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expect *StatusError, got %v", err)
	}
	if se.Status != http.StatusServiceUnavailable || se.Body != "down" {
		t.Fatalf("unexpected status error: %+v", se)
	}
	if strings.Contains(se.Error(), "secret") {
		t.Fatalf("credential leaked in error: %s", se.Error())
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestFetch_GetJSON_NotJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()
	cl, _ := New(Options{})
	var v map[string]any
	if err := cl.GetJSON(context.Background(), srv.URL, nil, &v); !errors.Is(err, ErrNotJSON) {
		t.Fatalf("expect ErrNotJSON, got %v", err)
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl, _ := New(Options{Timeout: 100 * time.Millisecond})
	_, err := cl.Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetch_BadProxy(t *testing.T) {
	if _, err := New(Options{ProxyHTTP: "://bad"}); err == nil {
		t.Fatal("expect proxy parse error")
	}
}

func TestFetch_RedactsKeyInErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	cl, _ := New(Options{Timeout: time.Second})
	_, err := cl.Get(context.Background(), srv.URL+"/v1/flights?access_key=s3cret&arr_iata=MEX", nil)
	if err == nil || strings.Contains(err.Error(), "s3cret") {
		t.Fatalf("status error leaked key: %v", err)
	}
	srv.Close()

	// 服务已关闭：传输层错误同样不能带出 key
	_, err = cl.Get(context.Background(), srv.URL+"/v1/flights?access_key=s3cret", nil)
	if err == nil || strings.Contains(err.Error(), "s3cret") {
		t.Fatalf("transport error leaked key: %v", err)
	}
}

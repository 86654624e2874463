// 包 fetch 封装 HTTP 客户端（代理/超时/UA/附加请求头），供各数据源适配器共用。
// 一次运行内不做重试：失败交给调度器的下一次调用。
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// EnvUserAgent 可覆盖默认 User-Agent。
const EnvUserAgent = "FLIGHTS_UA"

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"

// maxBody 为单个响应读取上限。
const maxBody = 8 << 20

// ErrNotJSON 表示响应体不是合法 JSON。
var ErrNotJSON = errors.New("response is not json")

// StatusError 表示非 2xx 响应。
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http status %d from %s: %s", e.Status, e.URL, e.Body)
	}
	return fmt.Sprintf("http status %d from %s", e.Status, e.URL)
}

// Client 为共享 HTTP 客户端。
type Client struct {
	http *http.Client
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
}

// New 创建客户端，支持 http/https 代理与基础超时配置。
func New(opts Options) (*Client, error) {
	var httpProxy, httpsProxy *url.URL
	var err error
	if opts.ProxyHTTP != "" {
		if httpProxy, err = url.Parse(opts.ProxyHTTP); err != nil {
			return nil, fmt.Errorf("parse http proxy: %w", err)
		}
	}
	if opts.ProxyHTTPS != "" {
		if httpsProxy, err = url.Parse(opts.ProxyHTTPS); err != nil {
			return nil, fmt.Errorf("parse https proxy: %w", err)
		}
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && httpsProxy != nil {
				return httpsProxy, nil
			}
			if req.URL.Scheme == "http" && httpProxy != nil {
				return httpProxy, nil
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	return &Client{http: &http.Client{Transport: transport, Timeout: opts.Timeout}}, nil
}

// Get 发起一次 GET 请求并返回完整响应体；非 2xx 返回 *StatusError。
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent())
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9,en;q=0.8")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = redact(ue.URL)
		}
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", redact(rawURL), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: redact(rawURL), Status: resp.StatusCode, Body: snippet(b)}
	}
	return b, nil
}

// GetJSON 请求并解码 JSON；响应体无法解析时返回包装了 ErrNotJSON 的错误。
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	b, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotJSON, snippet(b), err)
	}
	return nil
}

// UserAgent 返回请求使用的 User-Agent，无头浏览器也使用同一个值。
func UserAgent() string {
	if ua := strings.TrimSpace(os.Getenv(EnvUserAgent)); ua != "" {
		return ua
	}
	return defaultUA
}

// redact 去掉查询串中的凭据，避免写进日志与降级快照。
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, k := range []string{"access_key", "api_key", "apikey", "key"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 160 {
		s = s[:160] + "..."
	}
	return s
}

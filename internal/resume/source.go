package resume

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrResumeLocation is returned for references outside the configured resume sources.
var ErrResumeLocation = errors.New("resume location not allowed")

type Option func(*Summarizer)

// WithLocalRoot allows plain paths and file:// references, resolved inside dir.
func WithLocalRoot(dir string) Option {
	return func(s *Summarizer) { s.localRoot = dir }
}

// WithAllowedHosts restricts downloads (and redirects) to the given hosts.
// Without it any host is fetched, but only over public addresses.
func WithAllowedHosts(hosts ...string) Option {
	return func(s *Summarizer) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				s.allowedHosts = append(s.allowedHosts, h)
			}
		}
	}
}

func (s *Summarizer) newHTTPClient(timeout time.Duration) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(1)
	if len(s.allowedHosts) > 0 {
		return client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(s.allowedHosts...))
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: publicAddressOnly}
	return client.
		SetTransport(&http.Transport{DialContext: dialer.DialContext}).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(3))
}

// publicAddressOnly runs after DNS resolution, so it also covers redirects and rebinding.
func publicAddressOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrResumeLocation, host)
	}
	return nil
}

func (s *Summarizer) hostAllowed(host string) bool {
	if len(s.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, h := range s.allowedHosts {
		if h == host {
			return true
		}
	}
	return false
}

// fetch downloads http(s) references and reads local ones from inside the resume root.
func (s *Summarizer) fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResumeLocation, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if !s.hostAllowed(u.Hostname()) {
			return nil, fmt.Errorf("%w: host %s", ErrResumeLocation, u.Hostname())
		}
		resp, err := s.http.R().SetContext(ctx).Get(ref)
		if err != nil {
			return nil, fmt.Errorf("download resume: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("download resume: status %d", resp.StatusCode())
		}
		return resp.Body(), nil
	case "", "file":
		path, err := s.localPath(u.Path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read resume: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrResumeLocation, u.Scheme)
	}
}

// localPath resolves p inside the resume root, following symlinks before the check.
func (s *Summarizer) localPath(p string) (string, error) {
	if s.localRoot == "" || p == "" {
		return "", ErrResumeLocation
	}
	root, err := filepath.Abs(s.localRoot)
	if err != nil {
		return "", fmt.Errorf("resume root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	candidate := filepath.FromSlash(p)
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	}

	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s is outside the resume directory", ErrResumeLocation, p)
	}
	return candidate, nil
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"childctl/internal/common/fsutil"
)

var (
	// ErrUnresolvable means neither native resolution nor the registry
	// could map a specifier.
	ErrUnresolvable = errors.New("module specifier not resolvable")
	// ErrUnsupportedScheme is returned by Load for URLs it cannot fetch.
	ErrUnsupportedScheme = errors.New("unsupported loader url scheme")
	// ErrModuleTooLarge is returned by Load for modules over the size bound.
	ErrModuleTooLarge = errors.New("module exceeds size limit")
)

// maxModuleSize bounds what Load reads from a single module URL.
var maxModuleSize int64 = 16 << 20

// readModule reads r up to maxModuleSize. Anything beyond is an error, never
// a silently truncated module.
func readModule(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxModuleSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxModuleSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrModuleTooLarge, maxModuleSize)
	}
	return b, nil
}

// Canonical turns raw into the URL stored in the registry. Bare paths become
// absolute file URLs; anything with a scheme is kept as is.
func Canonical(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("empty loader reference")
	}
	if u, err := url.Parse(raw); err == nil && len(u.Scheme) > 1 {
		return u, nil
	}
	p, err := fsutil.ExpandHome(raw)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	return FileURL(abs), nil
}

// FileURL returns the file URL for an absolute path.
func FileURL(abs string) *url.URL {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: p}
}

// filePath is the inverse of FileURL.
func filePath(u *url.URL) string {
	p := u.Path
	if runtime.GOOS == "windows" && len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// Hook resolves specifiers for the module system. Native resolution wins;
// only what it cannot resolve falls through to the URL registered under Key.
type Hook struct {
	Store *Store
	Key   string
	// Native is the host's own resolution. It should return ErrUnresolvable
	// for specifiers it does not know. Nil means nothing resolves natively.
	Native func(specifier string) (*url.URL, error)
}

// Resolve maps specifier to a module URL.
func (h *Hook) Resolve(specifier string) (*url.URL, error) {
	if h.Native != nil {
		u, err := h.Native(specifier)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, ErrUnresolvable) {
			return nil, err
		}
	}
	if h.Store != nil {
		if u, ok := h.Store.Lookup(h.Key); ok {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnresolvable, specifier)
}

// Load returns the module source behind u.
func Load(ctx context.Context, u *url.URL) ([]byte, error) {
	switch u.Scheme {
	case "file":
		f, err := os.Open(filePath(u))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readModule(f)
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("fetch %s: %s", u, resp.Status)
		}
		return readModule(resp.Body)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// ResolveAndLoad resolves specifier and loads the resulting module.
func (h *Hook) ResolveAndLoad(ctx context.Context, specifier string) (*url.URL, []byte, error) {
	u, err := h.Resolve(specifier)
	if err != nil {
		return nil, nil, err
	}
	src, err := Load(ctx, u)
	if err != nil {
		return u, nil, fmt.Errorf("load %s: %w", u, err)
	}
	return u, src, nil
}

// NativeFiles resolves specifiers that name existing files relative to dir.
// It is the resolution the CLI uses when no host runtime is involved.
func NativeFiles(dir string) func(string) (*url.URL, error) {
	return func(specifier string) (*url.URL, error) {
		p := specifier
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		if !fsutil.PathExists(p) {
			return nil, ErrUnresolvable
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		return FileURL(abs), nil
	}
}

package access

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Kind classifies a rejected request.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindForbidden
	KindNotFound
)

// String returns the client-facing message for the kind.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "Fail to parse URL"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "Not Found"
	default:
		return "Unknown"
	}
}

// Error is a classified rejection. Its message is safe to show to clients.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Kind.String()
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the rejection kind carried by err, or 0 when err is not a
// rejection.
func KindOf(err error) Kind {
	var rejection *Error
	if errors.As(err, &rejection) {
		return rejection.Kind
	}
	return 0
}

// Request is a validated log request.
type Request struct {
	// Raw is the request URI as received.
	Raw string
	// Path is the absolute, cleaned file path.
	Path string
	// Tail reports whether the client asked to follow the file (tail=1).
	Tail bool
}

// Roots is an immutable set of allowed directory prefixes together with the
// base directory request paths are resolved against.
type Roots struct {
	base     string
	prefixes []string
}

// NewRoots builds a root set. Relative entries, including base, are made
// absolute against the process working directory. An empty base means the
// working directory.
func NewRoots(base string, prefixes ...string) (*Roots, error) {
	if base == "" {
		base = "."
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %q: %w", base, err)
	}

	seen := make(map[string]struct{}, len(prefixes))
	abs := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		resolved, err := filepath.Abs(prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve allowed root %q: %w", prefix, err)
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		abs = append(abs, resolved)
	}
	if len(abs) == 0 {
		return nil, fmt.Errorf("at least one allowed root is required")
	}

	return &Roots{base: absBase, prefixes: abs}, nil
}

// Base returns the directory request paths are resolved against.
func (r *Roots) Base() string {
	return r.base
}

// Prefixes returns a copy of the allowed prefixes.
func (r *Roots) Prefixes() []string {
	out := make([]string, len(r.prefixes))
	copy(out, r.prefixes)
	return out
}

// Allowed reports whether an absolute, cleaned path starts with one of the
// allowed prefixes. The comparison is a plain string prefix match, so a root
// of /data also admits /database.
func (r *Roots) Allowed(path string) bool {
	for _, prefix := range r.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Resolve maps a URL path onto the filesystem. The result is cleaned before it
// is returned, so ".." segments never survive to the containment check.
func (r *Roots) Resolve(urlPath string) string {
	return filepath.Join(r.base, filepath.FromSlash("."+urlPath))
}

// Validate parses a request URI and checks that it names a regular file under
// one of the allowed roots. Rejections are returned as *Error; a stat failure
// other than "does not exist" is returned as a plain error.
func (r *Roots) Validate(raw string) (Request, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Request{Raw: raw}, &Error{Kind: KindBadRequest, Err: err}
	}

	// u.Path is percent-decoded, so escaped dot segments are cleaned too.
	path := r.Resolve(u.Path)
	req := Request{
		Raw:  raw,
		Path: path,
		Tail: tailRequested(u.RawQuery),
	}

	if !r.Allowed(path) {
		return req, &Error{Kind: KindForbidden, Path: path}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return req, &Error{Kind: KindNotFound, Path: path, Err: err}
		}
		return req, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return req, &Error{Kind: KindNotFound, Path: path}
	}

	return req, nil
}

// tailRequested reports whether the first "tail" query value is "1". A
// malformed query disables tailing rather than failing the request.
func tailRequested(rawQuery string) bool {
	query, err := url.ParseQuery(rawQuery)
	if err != nil && len(query) == 0 {
		return false
	}
	values := query["tail"]
	return len(values) > 0 && values[0] == "1"
}

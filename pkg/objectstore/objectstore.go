// Package objectstore resolves storage object paths to URLs the video
// provider can fetch.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// URLResolver maps a (bucket, path) pair to a publicly fetchable URL.
type URLResolver interface {
	ResolvePublicURL(ctx context.Context, bucket, path string) (string, error)
}

// Sentinel errors for resolution failures.
var (
	// ErrSourceUnresolvable is the class of every resolution failure.
	ErrSourceUnresolvable = errors.New("source unresolvable")

	// ErrObjectNotFound indicates the object does not exist in the bucket.
	ErrObjectNotFound = errors.New("object not found")

	// ErrPathNotAllowed indicates the path failed the configured policy.
	ErrPathNotAllowed = errors.New("path not allowed")

	// ErrAccessDenied indicates insufficient permissions on the bucket.
	ErrAccessDenied = errors.New("access denied")
)

// SourceUnresolvableError reports a path that could not be turned into a URL.
type SourceUnresolvableError struct {
	Bucket string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *SourceUnresolvableError) Error() string {
	return fmt.Sprintf("resolve %s/%s: %v", e.Bucket, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SourceUnresolvableError) Unwrap() error {
	return e.Err
}

// Is matches ErrSourceUnresolvable.
func (e *SourceUnresolvableError) Is(target error) bool {
	return target == ErrSourceUnresolvable
}

// IsSourceUnresolvable returns true if err is a resolution failure.
func IsSourceUnresolvable(err error) bool {
	return errors.Is(err, ErrSourceUnresolvable)
}

// Unresolvable builds a *SourceUnresolvableError.
func Unresolvable(bucket, path string, err error) error {
	return &SourceUnresolvableError{Bucket: bucket, Path: path, Err: err}
}

// PathPolicy restricts which object paths may be resolved.
//
// Patterns use doublestar syntax (e.g. "*/avatars/**"). An empty policy allows
// any non-empty relative path.
type PathPolicy struct {
	Patterns []string
}

// NewPathPolicy validates every pattern up front.
func NewPathPolicy(patterns []string) (PathPolicy, error) {
	var clean []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return PathPolicy{}, fmt.Errorf("invalid path pattern %q", p)
		}
		clean = append(clean, p)
	}
	return PathPolicy{Patterns: clean}, nil
}

// Check returns nil if path may be resolved.
func (p PathPolicy) Check(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: path is empty", ErrPathNotAllowed)
	}
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: path must be relative", ErrPathNotAllowed)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: path must not contain '..'", ErrPathNotAllowed)
		}
	}
	if len(p.Patterns) == 0 {
		return nil
	}
	for _, pattern := range p.Patterns {
		ok, err := doublestar.Match(pattern, path)
		if err != nil {
			return fmt.Errorf("match %q: %w", pattern, err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s matches no allowed pattern", ErrPathNotAllowed, path)
}

// PublicResolver builds public object URLs of the form
// <BaseURL>/<bucket>/<path> without contacting storage.
type PublicResolver struct {
	BaseURL string
	Policy  PathPolicy
}

var _ URLResolver = (*PublicResolver)(nil)

// NewPublicResolver validates baseURL.
func NewPublicResolver(baseURL string, policy PathPolicy) (*PublicResolver, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("public base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid public base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("public base url must be http or https, got %q", u.Scheme)
	}
	return &PublicResolver{BaseURL: baseURL, Policy: policy}, nil
}

// ResolvePublicURL implements URLResolver.
func (r *PublicResolver) ResolvePublicURL(ctx context.Context, bucket, path string) (string, error) {
	if strings.TrimSpace(bucket) == "" {
		return "", Unresolvable(bucket, path, errors.New("bucket is required"))
	}
	if err := r.Policy.Check(path); err != nil {
		return "", Unresolvable(bucket, path, err)
	}
	return r.BaseURL + "/" + url.PathEscape(bucket) + "/" + EscapePath(path), nil
}

// EscapePath escapes each segment of an object path, keeping separators.
func EscapePath(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Package secrets resolves sm:// configuration values through Google Secret Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
)

// Scheme prefixes values that must be looked up rather than used literally.
const Scheme = "sm://"

var ErrInvalidReference = errors.New("invalid secret reference")

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver turns sm:// references into secret values, caching each one for the process lifetime.
type Resolver struct {
	client  secretManagerClient
	project string
	log     *zap.Logger

	mu    sync.Mutex
	cache map[string]string
}

// IsReference reports whether value must go through a Resolver.
func IsReference(value string) bool {
	return strings.HasPrefix(value, Scheme)
}

// NewResolver connects to Secret Manager. project is used for short references (sm://name).
func NewResolver(ctx context.Context, project string, log *zap.Logger) (*Resolver, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secret manager client: %w", err)
	}
	return newResolver(client, project, log), nil
}

func newResolver(client secretManagerClient, project string, log *zap.Logger) *Resolver {
	return &Resolver{
		client:  client,
		project: project,
		log:     log.With(zap.String("component", "secrets")),
		cache:   map[string]string{},
	}
}

// resourceName accepts sm://projects/p/secrets/s[/versions/v] and sm://s[@v].
func (r *Resolver) resourceName(ref string) (string, error) {
	path := strings.TrimPrefix(ref, Scheme)
	if path == "" {
		return "", ErrInvalidReference
	}

	if strings.HasPrefix(path, "projects/") {
		parts := strings.Split(path, "/")
		switch {
		case len(parts) == 4 && parts[2] == "secrets":
			return path + "/versions/latest", nil
		case len(parts) == 6 && parts[2] == "secrets" && parts[4] == "versions":
			return path, nil
		default:
			return "", fmt.Errorf("%w: %s", ErrInvalidReference, ref)
		}
	}

	if r.project == "" {
		return "", fmt.Errorf("%w: %s needs SECRETS_PROJECT", ErrInvalidReference, ref)
	}
	name, version, found := strings.Cut(path, "@")
	if !found || version == "" {
		version = "latest"
	}
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrInvalidReference, ref)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", r.project, name, version), nil
}

// Resolve returns value unchanged unless it is an sm:// reference.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}

	name, err := r.resourceName(value)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	cached, ok := r.cache[name]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		r.log.Error("Failed to access secret", zap.String("secret", name), zap.Error(err))
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	if resp == nil || resp.Payload == nil {
		return "", fmt.Errorf("secret %s has no payload", name)
	}

	secret := strings.TrimSpace(string(resp.Payload.GetData()))
	r.mu.Lock()
	r.cache[name] = secret
	r.mu.Unlock()

	r.log.Info("Secret resolved", zap.String("secret", name))
	return secret, nil
}

// ResolveAll resolves every pointed-to value in place.
func (r *Resolver) ResolveAll(ctx context.Context, values ...*string) error {
	for _, v := range values {
		resolved, err := r.Resolve(ctx, *v)
		if err != nil {
			return err
		}
		*v = resolved
	}
	return nil
}

func (r *Resolver) Close() error {
	return r.client.Close()
}

package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

type Options struct {
	// PublicBaseURL prefixes signed download links, e.g. https://api.faktugo.com.
	PublicBaseURL string
	SigningSecret string
}

type Storage struct {
	basePath      string
	publicBaseURL string
	secret        []byte
	now           func() time.Time
}

type fileClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

func New(basePath string, opts Options) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"),
		secret:        []byte(opts.SigningSecret),
		now:           time.Now,
	}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.WrapError(domain.ErrNotFound, "open file", err)
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Remove deletes the given keys. Missing files are not an error.
func (s *Storage) Remove(_ context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		fullPath, err := s.resolve(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// SignedURL returns a time-limited download link served by the API under /v1/files/{token}.
func (s *Storage) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("signing secret is not configured")
	}
	if s.publicBaseURL == "" {
		return "", errors.New("public base url is not configured")
	}
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := s.now()
	claims := fileClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign file token: %w", err)
	}
	return s.publicBaseURL + "/v1/files/" + token, nil
}

// OpenSigned validates a download token and opens the file it grants.
// It also returns the file name to offer to the client.
func (s *Storage) OpenSigned(ctx context.Context, token string) (io.ReadCloser, string, error) {
	if len(s.secret) == 0 {
		return nil, "", domain.WrapError(domain.ErrUnauthorized, "open signed file", errors.New("signing disabled"))
	}

	claims := &fileClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.Key == "" {
		if err == nil {
			err = jwt.ErrTokenInvalidClaims
		}
		return nil, "", domain.WrapError(domain.ErrUnauthorized, "open signed file", err)
	}

	rc, err := s.Open(ctx, claims.Key)
	if err != nil {
		return nil, "", err
	}
	return rc, downloadName(claims.Key), nil
}

func (s *Storage) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	if strings.TrimSpace(key) == "" || cleaned == "/" || strings.Contains(key, "..") {
		return "", domain.WrapError(domain.ErrInvalidInput, "storage key", fmt.Errorf("invalid key %q", key))
	}
	return filepath.Join(s.basePath, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

// downloadName strips the "<invoice id>_" prefix that ingestion puts in front of file names.
func downloadName(key string) string {
	base := path.Base(key)
	if i := strings.IndexByte(base, '_'); i > 0 && i < len(base)-1 {
		return base[i+1:]
	}
	return base
}

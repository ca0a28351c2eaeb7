package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SignedUpload describes a V4 signed PUT the browser uses to upload one file.
type SignedUpload struct {
	UploadURL   string            `json:"upload_url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	StoragePath string            `json:"storage_path"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

type signer struct {
	accessID   string
	privateKey []byte
}

// Client signs attachment URLs and removes attachment objects.
type Client struct {
	client         *storage.Client
	bucket         string
	prefix         string
	uploadExpiry   time.Duration
	downloadExpiry time.Duration
	signer         *signer
	now            func() time.Time
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	sc, err := storage.NewClient(ctx, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	s, err := signerFromJSON(gcp.CredentialsJSON)
	if err != nil {
		_ = sc.Close()
		return nil, err
	}

	client := newClient(cfg, s)
	client.client = sc

	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return client, nil
}

func newClient(cfg config.GCSConfig, s *signer) *Client {
	return &Client{
		bucket:         cfg.BucketName,
		prefix:         strings.Trim(cfg.ObjectPrefix, "/"),
		uploadExpiry:   cfg.UploadURLExpiry,
		downloadExpiry: cfg.DownloadURLExpiry,
		signer:         s,
		now:            time.Now,
	}
}

func signerFromJSON(credJSON string) (*signer, error) {
	credJSON = strings.TrimSpace(credJSON)
	if credJSON == "" {
		return nil, nil
	}
	var key struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal([]byte(credJSON), &key); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, errors.New("service account credentials missing client_email or private_key")
	}
	return &signer{
		accessID:   key.ClientEmail,
		privateKey: []byte(strings.ReplaceAll(key.PrivateKey, `\n`, "\n")),
	}, nil
}

// Bucket returns the attachment bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// ObjectName builds a collision-free object key for an uploaded file.
func (c *Client) ObjectName(filename string) string {
	now := c.now().UTC()
	name := SanitizeFilename(filename)
	return path.Join(c.prefix, now.Format("2006"), now.Format("01"), uuid.NewString()+"-"+name)
}

// SanitizeFilename keeps a filename safe for object keys and headers.
func SanitizeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	if len(base) > 120 {
		base = base[len(base)-120:]
	}
	return base
}

// SignedUploadURL returns a V4 signed PUT URL bound to contentType.
func (c *Client) SignedUploadURL(ctx context.Context, objectName, contentType string) (*SignedUpload, error) {
	if strings.TrimSpace(objectName) == "" {
		return nil, errors.New("object name is required")
	}
	expires := c.now().Add(c.uploadExpiry)
	opts := &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      "PUT",
		Expires:     expires,
		ContentType: contentType,
	}
	signed, err := c.sign(objectName, opts)
	if err != nil {
		return nil, err
	}
	return &SignedUpload{
		UploadURL:   signed,
		Method:      opts.Method,
		Headers:     map[string]string{"Content-Type": contentType},
		StoragePath: objectName,
		ExpiresAt:   expires.UTC(),
	}, nil
}

// SignedDownloadURL returns a V4 signed GET URL that downloads the object as
// downloadName.
func (c *Client) SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, error) {
	if strings.TrimSpace(objectName) == "" {
		return "", errors.New("object name is required")
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: c.now().Add(c.downloadExpiry),
	}
	if downloadName != "" {
		opts.QueryParameters = url.Values{
			"response-content-disposition": {fmt.Sprintf(`attachment; filename="%s"`, SanitizeFilename(downloadName))},
		}
	}
	return c.sign(objectName, opts)
}

func (c *Client) sign(objectName string, opts *storage.SignedURLOptions) (string, error) {
	if c.signer != nil {
		opts.GoogleAccessID = c.signer.accessID
		opts.PrivateKey = c.signer.privateKey
		return storage.SignedURL(c.bucket, objectName, opts)
	}
	if c.client == nil {
		return "", errors.New("gcs client not initialized")
	}
	// Without a private key the handle signs through the IAM credentials API.
	return c.client.Bucket(c.bucket).SignedURL(objectName, opts)
}

// DeleteObject removes an object. Missing objects are not an error.
func (c *Client) DeleteObject(ctx context.Context, objectName string) error {
	if c == nil || c.client == nil {
		return errors.New("gcs client not initialized")
	}
	err := c.client.Bucket(c.bucket).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", objectName, err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("gcs client not initialized")
	}
	if c.bucket == "" {
		return errors.New("gcs bucket not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	it := c.client.Bucket(c.bucket).Objects(ctx, &storage.Query{Prefix: c.prefix})
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("gcs object check failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/pkg/storage"
	"github.com/sirupsen/logrus"
)

const (
	otaPrefix        = "ota/"
	otaManifestKey   = "ota/manifest.json"
	maxFirmwareBytes = 16 << 20
)

var (
	ErrOTADisabled        = errors.New("ota disabled: no object storage configured")
	ErrManifestNotFound   = errors.New("no manifest found")
	ErrFirmwareNotFound   = errors.New("firmware not found")
	ErrInvalidFirmwareKey = errors.New("firmware key must be under ota/")
	ErrVersionRequired    = errors.New("version is required")
	ErrInvalidVersion     = errors.New("version may only contain letters, digits, '.', '_' and '-'")
	ErrFirmwareRequired   = errors.New("firmware file required")
	ErrFirmwareTooLarge   = fmt.Errorf("firmware exceeds %d bytes", maxFirmwareBytes)
)

var versionPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ObjectStore is the firmware bucket
type ObjectStore interface {
	Get(ctx context.Context, key string) (*storage.Object, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// OTAService publishes firmware images and the manifest scanners poll
type OTAService struct {
	store  ObjectStore
	logger *logrus.Logger
	now    func() time.Time
}

// NewOTAService creates a new OTA service. A nil store disables every operation with ErrOTADisabled.
func NewOTAService(store ObjectStore, logger *logrus.Logger) *OTAService {
	return &OTAService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// DownloadURL is the public path serving the firmware stored under key
func DownloadURL(key string) string {
	return "/api/ota/download?key=" + url.QueryEscape(key)
}

// Manifest returns the current manifest with a download URL filled in
func (s *OTAService) Manifest(ctx context.Context) (*models.OTAManifest, error) {
	manifest, err := s.readManifest(ctx)
	if err != nil {
		return nil, err
	}
	if manifest.DownloadURL == "" && manifest.Key != "" {
		manifest.DownloadURL = DownloadURL(manifest.Key)
	}
	return manifest, nil
}

func (s *OTAService) readManifest(ctx context.Context) (*models.OTAManifest, error) {
	if s.store == nil {
		return nil, ErrOTADisabled
	}

	obj, err := s.store.Get(ctx, otaManifestKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrManifestNotFound
	}
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()

	var manifest models.OTAManifest
	if err := json.NewDecoder(obj.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &manifest, nil
}

// Open returns the firmware stored under key, or the manifest's firmware when key is empty.
// Keys outside the ota/ prefix are rejected.
func (s *OTAService) Open(ctx context.Context, key string) (*storage.Object, error) {
	if s.store == nil {
		return nil, ErrOTADisabled
	}

	if key == "" {
		manifest, err := s.readManifest(ctx)
		if err != nil {
			return nil, err
		}
		key = manifest.Key
	}
	if !strings.HasPrefix(key, otaPrefix) || strings.Contains(key, "..") {
		return nil, ErrInvalidFirmwareKey
	}

	obj, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrFirmwareNotFound
	}
	return obj, err
}

// Upload stores a firmware image and makes it the current manifest
func (s *OTAService) Upload(ctx context.Context, version string, firmware io.Reader) (*models.OTAManifest, error) {
	if s.store == nil {
		return nil, ErrOTADisabled
	}

	version = strings.TrimSpace(version)
	if version == "" {
		return nil, ErrVersionRequired
	}
	if !versionPattern.MatchString(version) {
		return nil, ErrInvalidVersion
	}
	if firmware == nil {
		return nil, ErrFirmwareRequired
	}

	body, err := io.ReadAll(io.LimitReader(firmware, maxFirmwareBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrFirmwareRequired
	}
	if len(body) > maxFirmwareBytes {
		return nil, ErrFirmwareTooLarge
	}

	sum := sha256.Sum256(body)
	key := fmt.Sprintf("%sfirmware-%s.bin", otaPrefix, version)

	if err := s.store.Put(ctx, key, body, "application/octet-stream"); err != nil {
		return nil, err
	}

	manifest := models.OTAManifest{
		Version:    version,
		Key:        key,
		Size:       int64(len(body)),
		SHA256:     hex.EncodeToString(sum[:]),
		UploadedAt: s.now().UTC().Format(recordedAtLayout),
	}

	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := s.store.Put(ctx, otaManifestKey, encoded, "application/json"); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"version": version,
		"key":     key,
		"size":    manifest.Size,
		"sha256":  manifest.SHA256,
	}).Info("Published firmware")

	return &manifest, nil
}

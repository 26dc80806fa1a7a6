package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/dmitrijs2005/checkpost/internal/client/client"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/client/store"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/netx"
)

// ErrNotSynced is returned when a photo is attached to a passage the server
// has not acknowledged yet.
var ErrNotSynced = errors.New("passage not synced yet")

// photoContentType must match the content type the server presigns.
const photoContentType = "image/jpeg"

// PhotoService uploads passage photos straight to object storage through
// presigned URLs and records the resulting key.
type PhotoService struct {
	client     client.Client
	db         *sql.DB
	rm         repomanager.RepositoryManager
	hub        *store.Hub
	httpClient *http.Client
	log        logging.Logger
}

func NewPhotoService(c client.Client, db *sql.DB, rm repomanager.RepositoryManager, hub *store.Hub,
	httpClient *http.Client, log logging.Logger) *PhotoService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PhotoService{client: c, db: db, rm: rm, hub: hub, httpClient: httpClient, log: log.With("module", "photo")}
}

// Attach uploads the JPEG at path as the photo of passage clientID. When
// path is empty the photo captured with the passage is used.
func (s *PhotoService) Attach(ctx context.Context, clientID, path string) (string, error) {
	passagesRepo := s.rm.Passages(s.db)

	p, err := passagesRepo.GetByClientID(ctx, clientID)
	if err != nil {
		return "", err
	}
	if !p.Synced() {
		return "", ErrNotSynced
	}
	if path == "" {
		path = p.PhotoPath
	}
	if path == "" {
		return "", fmt.Errorf("no photo for passage %s", clientID)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	key, url, err := s.client.PhotoUploadURL(ctx, clientID)
	if err != nil {
		return "", err
	}
	if err := netx.PutPresigned(ctx, s.httpClient, url, photoContentType, f); err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	if err := s.client.AttachPhoto(ctx, clientID, key); err != nil {
		return "", err
	}
	if err := passagesRepo.SetPhoto(ctx, clientID, path, key); err != nil {
		return "", err
	}

	s.hub.Publish(store.TopicPassages)
	s.log.Info(ctx, "photo attached", "client_id", clientID, "key", key)
	return key, nil
}

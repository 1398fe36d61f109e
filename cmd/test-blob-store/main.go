package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/boswellbenjamin/migrainauts/internal/azure"
	"github.com/boswellbenjamin/migrainauts/internal/repository"
	"github.com/boswellbenjamin/migrainauts/internal/security"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"go.uber.org/zap"
)

// test-blob-store round-trips notification state through a real Azure
// Blob Storage container, first in plain form and then encrypted.
func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	connectionString := os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	accountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
	accountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")
	container := os.Getenv("AZURE_STORAGE_CONTAINER")
	if container == "" {
		container = "migrainauts-smoke"
	}

	var store *azure.BlobKeyValueStore
	switch {
	case connectionString != "":
		store, err = azure.NewBlobKeyValueStoreFromConnectionString(connectionString, container, logger)
	case accountName != "" && accountKey != "":
		store, err = azure.NewBlobKeyValueStore(accountName, accountKey, container, logger)
	default:
		logger.Fatal("missing Azure Storage credentials, set AZURE_STORAGE_CONNECTION_STRING or AZURE_STORAGE_ACCOUNT_NAME and AZURE_STORAGE_ACCOUNT_KEY")
	}
	if err != nil {
		logger.Fatal("failed to create blob store", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := store.EnsureContainer(ctx); err != nil {
		logger.Fatal("failed to ensure container", zap.Error(err))
	}

	logger.Info("testing plain blob store", zap.String("container", container))
	if err := roundTrip(ctx, store, logger); err != nil {
		logger.Fatal("plain blob store test failed", zap.Error(err))
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		logger.Fatal("failed to generate key", zap.Error(err))
	}
	enc, err := security.NewEncryptor(key)
	if err != nil {
		logger.Fatal("failed to create encryptor", zap.Error(err))
	}

	logger.Info("testing encrypted blob store")
	if err := roundTrip(ctx, security.NewEncryptedStore(store, enc), logger); err != nil {
		logger.Fatal("encrypted blob store test failed", zap.Error(err))
	}

	logger.Info("all blob store tests passed")
}

// roundTrip saves, reloads and clears a notification collection
func roundTrip(ctx context.Context, store repository.KeyValueStore, logger *zap.Logger) error {
	repo := repository.NewNotificationRepository(store, logger)

	sent := time.Now().UTC().Truncate(time.Second)
	want := []model.NotificationRecord{{
		ID:       fmt.Sprintf("smoke-%d", sent.Unix()),
		Type:     model.NotificationCheckIn,
		Priority: model.PriorityLow,
		Title:    "Blob store smoke test",
		Body:     "If you can read this, the round trip worked",
		SentTime: &sent,
	}}

	if err := repo.SaveAll(ctx, want); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	got, err := repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	if len(got) != 1 || got[0].ID != want[0].ID || got[0].Title != want[0].Title {
		return fmt.Errorf("loaded notifications do not match saved ones: %+v", got)
	}
	logger.Info("notifications round-tripped", zap.String("id", got[0].ID))

	if err := store.Delete(ctx, "migrainauts/notifications"); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if _, err := store.Get(ctx, "migrainauts/notifications"); !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("expected not found after delete, got %v", err)
	}

	return nil
}

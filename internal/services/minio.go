package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"vendora_back_end/internal/database"
)

// BucketName retourne le bucket images configuré
func BucketName() string {
	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "vendora-images"
	}
	return bucket
}

// UploadFile envoie un fichier multipart dans MinIO et retourne l'URL publique.
// Le nom d'objet est préfixé d'un UUID pour éviter les collisions entre vendeurs.
func UploadFile(bucket string, file *multipart.FileHeader) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	objectName := uuid.NewString() + filepath.Ext(file.Filename)

	_, err = database.MinIO.PutObject(context.Background(), bucket, objectName, f, file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")})
	if err != nil {
		return "", err
	}

	publicURL := fmt.Sprintf("http://%s/%s/%s", os.Getenv("MINIO_ENDPOINT"), bucket, objectName)
	log.Println("🪣 Image envoyée sur MinIO :", objectName)
	return publicURL, nil
}

// DeleteFile supprime un objet du bucket à partir de son URL publique
func DeleteFile(bucket, objectURL string) error {
	if database.MinIO == nil {
		return fmt.Errorf("MinIO non initialisé")
	}
	key := objectKeyFromURL(bucket, objectURL)
	return database.MinIO.RemoveObject(context.Background(), bucket, key, minio.RemoveObjectOptions{})
}

// GenerateSignedURL génère une URL présignée avec expiration pour un objet du
// bucket images. objectPath peut être une URL publique complète ou une clé.
func GenerateSignedURL(ctx context.Context, objectPath string, duration time.Duration) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	bucket := BucketName()
	key := objectKeyFromURL(bucket, objectPath)

	presignedURL, err := database.MinIO.PresignedGetObject(ctx, bucket, key, duration, make(url.Values))
	if err != nil {
		return "", err
	}

	return presignedURL.String(), nil
}

// objectKeyFromURL réduit une URL publique "http://host/bucket/key" à la clé
func objectKeyFromURL(bucket, objectPath string) string {
	prefix := fmt.Sprintf("http://%s/%s/", os.Getenv("MINIO_ENDPOINT"), bucket)
	return strings.TrimPrefix(objectPath, prefix)
}

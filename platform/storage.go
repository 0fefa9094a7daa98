package platform

import (
	"bytes"
	"os"

	storage_go "github.com/supabase-community/storage-go"
)

const defaultBucket = "custom-gemini-chat-storage"

// SupabaseStorage implements the blob-store capability on a Supabase
// Storage bucket.
type SupabaseStorage struct {
	client *storage_go.Client
	bucket string
}

func NewSupabaseStorage(url, key, bucket string) *SupabaseStorage {
	if bucket == "" {
		bucket = defaultBucket
	}
	return &SupabaseStorage{
		client: storage_go.NewClient(url, key, nil),
		bucket: bucket,
	}
}

func NewSupabaseStorageFromEnv() *SupabaseStorage {
	return NewSupabaseStorage(
		os.Getenv("SUPABASE_URL")+"/storage/v1",
		os.Getenv("SUPABASE_ANON_KEY"),
		os.Getenv("STORAGE_BUCKET"),
	)
}

func (s *SupabaseStorage) Put(path string, data []byte, contentType string) error {
	upsert := false
	_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	return err
}

func (s *SupabaseStorage) SignedURL(path string, ttlSeconds int) (string, error) {
	resp, err := s.client.CreateSignedUrl(s.bucket, path, ttlSeconds)
	if err != nil {
		return "", err
	}
	return resp.SignedURL, nil
}

func (s *SupabaseStorage) PublicURL(path string) string {
	return s.client.GetPublicUrl(s.bucket, path).SignedURL
}

func (s *SupabaseStorage) Get(path string) ([]byte, error) {
	return s.client.DownloadFile(s.bucket, path)
}

func (s *SupabaseStorage) Remove(paths []string) error {
	_, err := s.client.RemoveFile(s.bucket, paths)
	return err
}

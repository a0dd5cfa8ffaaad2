// Command vitrine-assets uploads the product images in a local directory to
// the configured S3 bucket.
package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"os"

	"github.com/52poke/vitrine/internal/assets"
	"github.com/52poke/vitrine/internal/config"
	"github.com/52poke/vitrine/internal/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	dir := flag.String("dir", cfg.AssetsDir, "directory holding the images to upload")
	flag.Parse()

	logger, err := logging.New(true, "", cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if !cfg.S3Configured() {
		logger.Fatal("VITRINE_S3_BUCKET is not set")
	}

	ctx := context.Background()
	client, err := assets.NewS3Client(ctx, cfg)
	if err != nil {
		logger.Fatal("configure s3", zap.Error(err))
	}
	store := assets.NewS3Store(cfg.S3Bucket, cfg.S3Prefix, client)

	uploaded, err := upload(ctx, store, os.DirFS(*dir), logger)
	if err != nil {
		logger.Fatal("upload assets", zap.String("dir", *dir), zap.Error(err))
	}
	logger.Info("assets uploaded", zap.Int("count", uploaded), zap.String("bucket", cfg.S3Bucket))
}

type putter interface {
	Put(ctx context.Context, name string, body []byte) error
}

func upload(ctx context.Context, store putter, fsys fs.FS, logger *zap.Logger) (int, error) {
	count := 0
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		body, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		if err := store.Put(ctx, path, body); err != nil {
			return err
		}
		logger.Debug("uploaded asset", zap.String("name", path), zap.Int("bytes", len(body)))
		count++
		return nil
	})
	return count, err
}

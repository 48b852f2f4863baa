package repository

import (
	"context"

	"github.com/coursekit/course-service/internal/domain"
)

// AssetRepository persists uploaded image metadata.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	ListByCourse(ctx context.Context, courseID string) ([]domain.Asset, error)
}

type assetRepository struct {
	db DBTX
}

// NewAssetRepository constructs repository.
func NewAssetRepository(db DBTX) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	const query = `
        INSERT INTO course_assets (course_id, storage_key, public_url, file_name, mime_type, size_bytes, uploaded_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		asset.CourseID,
		asset.StorageKey,
		asset.PublicURL,
		asset.FileName,
		asset.MimeType,
		asset.SizeBytes,
		nullableString(asset.UploadedBy),
	).Scan(&asset.ID, &asset.CreatedAt)
}

func (r *assetRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Asset, error) {
	const query = `
        SELECT id, course_id, storage_key, public_url, file_name, mime_type, size_bytes,
            COALESCE(uploaded_by::text, ''), created_at
        FROM course_assets WHERE course_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(
			&asset.ID,
			&asset.CourseID,
			&asset.StorageKey,
			&asset.PublicURL,
			&asset.FileName,
			&asset.MimeType,
			&asset.SizeBytes,
			&asset.UploadedBy,
			&asset.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	return result, rows.Err()
}

package service

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/repository"
	"github.com/coursekit/course-service/internal/storage"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

// AssetService stores course cover images.
type AssetService struct {
	deps     Dependencies
	uploader storage.Uploader
	maxBytes int64
}

// NewAssetService constructs the service.
func NewAssetService(deps Dependencies, uploader storage.Uploader, maxBytes int64) *AssetService {
	return &AssetService{deps: deps.withDefaults(), uploader: uploader, maxBytes: maxBytes}
}

// UploadCourseImage sniffs data, uploads it and points the course at the
// stored image. The object is uploaded before the course row is locked.
func (s *AssetService) UploadCourseImage(ctx context.Context, actorID, courseID, fileName string, data []byte) (*domain.Asset, error) {
	if s.uploader == nil {
		return nil, storage.ErrStorageUnavailable
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("image is empty", map[string]any{"image": "required"})
	}
	mimeType, ext, err := storage.DetectImage(data, s.maxBytes)
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Store.Repos().Courses.GetByID(ctx, courseID); err != nil {
		return nil, notFoundAs(err, enrollment.ErrCourseNotFound)
	}

	key := path.Join("courses", courseID, uuid.NewString()+ext)
	obj, err := s.uploader.Put(ctx, key, data, mimeType)
	if err != nil {
		return nil, err
	}

	asset := &domain.Asset{
		CourseID:   courseID,
		StorageKey: obj.Key,
		PublicURL:  obj.PublicURL,
		FileName:   sanitizeFileName(fileName),
		MimeType:   mimeType,
		SizeBytes:  obj.Size,
		UploadedBy: actorID,
	}
	err = s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		course, err := repos.Courses.GetByIDForUpdate(ctx, courseID)
		if err != nil {
			return notFoundAs(err, enrollment.ErrCourseNotFound)
		}
		course.ImageURL = obj.PublicURL
		if err := repos.Courses.Update(ctx, course); err != nil {
			return err
		}
		if err := repos.Assets.Create(ctx, asset); err != nil {
			return err
		}
		return repos.History.Create(ctx, historyEntry(courseID, actorID, "", domain.ChangeTypeImageUploaded, map[string]any{
			"url":       obj.PublicURL,
			"mime_type": mimeType,
		}))
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// ListCourseImages returns uploaded images for courseID, newest first.
func (s *AssetService) ListCourseImages(ctx context.Context, courseID string) ([]domain.Asset, error) {
	assets, err := s.deps.Store.Repos().Assets.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if assets == nil {
		assets = []domain.Asset{}
	}
	return assets, nil
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}

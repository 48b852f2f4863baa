package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/coursekit/course-service/internal/api/dto"
	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/service"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

// Catalog manages courses.
type Catalog interface {
	Create(ctx context.Context, actorID string, input service.CourseInput) (*domain.Course, error)
	Update(ctx context.Context, actorID, courseID string, input service.CourseInput) (*domain.Course, error)
	Get(ctx context.Context, courseID string) (*domain.Course, error)
	List(ctx context.Context, limit, offset int) ([]domain.Course, error)
	History(ctx context.Context, courseID string) ([]domain.CourseHistory, error)
}

// Images stores course images.
type Images interface {
	UploadCourseImage(ctx context.Context, actorID, courseID, fileName string, data []byte) (*domain.Asset, error)
	ListCourseImages(ctx context.Context, courseID string) ([]domain.Asset, error)
}

// CourseHandler exposes the course catalog.
type CourseHandler struct {
	catalog Catalog
	images  Images
}

// NewCourseHandler constructs handler.
func NewCourseHandler(catalog Catalog, images Images) *CourseHandler {
	return &CourseHandler{catalog: catalog, images: images}
}

// Create POST /courses.
func (h *CourseHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CourseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	course, err := h.catalog.Create(c.UserContext(), p.UserID(), courseInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": courseResponse(course, true)})
}

// Update PUT /courses/:id.
func (h *CourseHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CourseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := courseID(c)
	if err != nil {
		return err
	}
	course, err := h.catalog.Update(c.UserContext(), p.UserID(), id, courseInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": courseResponse(course, true)})
}

// List GET /courses.
func (h *CourseHandler) List(c *fiber.Ctx) error {
	limit := parseIntQuery(c, "limit", 0)
	offset := parseIntQuery(c, "offset", 0)
	courses, err := h.catalog.List(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	admin := isAdmin(c)
	items := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		items = append(items, courseResponse(&courses[i], admin))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /courses/:id.
func (h *CourseHandler) Get(c *fiber.Ctx) error {
	id, err := courseID(c)
	if err != nil {
		return err
	}
	course, err := h.catalog.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": courseResponse(course, isAdmin(c))})
}

// History GET /courses/:id/history.
func (h *CourseHandler) History(c *fiber.Ctx) error {
	id, err := courseID(c)
	if err != nil {
		return err
	}
	history, err := h.catalog.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(history))
	for _, entry := range history {
		items = append(items, dto.HistoryResponse{
			ID:         entry.ID,
			ChangeType: string(entry.ChangeType),
			ActorID:    entry.ActorID,
			SubjectID:  entry.SubjectID,
			Details:    entry.Details,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// UploadImage POST /courses/:id/image with a multipart "image" part.
func (h *CourseHandler) UploadImage(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("image")
	if err != nil {
		return apperrors.NewValidationError("image file required", map[string]any{"image": "required"})
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable image", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return apperrors.NewValidationError("unreadable image", nil)
	}

	id, err := courseID(c)
	if err != nil {
		return err
	}
	asset, err := h.images.UploadCourseImage(c.UserContext(), p.UserID(), id, header.Filename, data)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": assetResponse(asset)})
}

// ListImages GET /courses/:id/images.
func (h *CourseHandler) ListImages(c *fiber.Ctx) error {
	id, err := courseID(c)
	if err != nil {
		return err
	}
	assets, err := h.images.ListCourseImages(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.AssetResponse, 0, len(assets))
	for i := range assets {
		items = append(items, assetResponse(&assets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func isAdmin(c *fiber.Ctx) bool {
	p, err := principal(c)
	return err == nil && p.Role == domain.RoleAdmin
}

func courseInput(req dto.CourseRequest) service.CourseInput {
	return service.CourseInput{
		Name:             req.Name,
		Description:      req.Description,
		Location:         req.Location,
		PriceCents:       req.PriceCents,
		Currency:         req.Currency,
		EnrollmentLimit:  req.EnrollmentLimit,
		CourseDate:       req.CourseDate,
		Hours:            req.Hours,
		ApplicationStart: req.ApplicationPeriod.StartDate,
		ApplicationEnd:   req.ApplicationPeriod.EndDate,
	}
}

func courseResponse(course *domain.Course, withLedger bool) dto.CourseResponse {
	resp := dto.CourseResponse{
		ID:                course.ID,
		Name:              course.Name,
		Description:       course.Description,
		Location:          course.Location,
		ImageURL:          course.ImageURL,
		PriceCents:        course.PriceCents,
		Currency:          course.Currency,
		EnrollmentLimit:   course.EnrollmentLimit,
		CurrentEnrollment: course.CurrentEnrollment,
		CourseDate:        course.CourseDate,
		Hours:             course.Hours,
		ApplicationPeriod: course.ApplicationPeriod,
		CreatedAt:         course.CreatedAt,
		UpdatedAt:         course.UpdatedAt,
	}
	if withLedger {
		resp.RegisteredUsers = course.RegisteredUsers
		resp.WaitingList = course.WaitingList
	}
	return resp
}

func assetResponse(asset *domain.Asset) dto.AssetResponse {
	return dto.AssetResponse{
		ID:        asset.ID,
		URL:       asset.PublicURL,
		FileName:  asset.FileName,
		MimeType:  asset.MimeType,
		SizeBytes: asset.SizeBytes,
		CreatedAt: asset.CreatedAt,
	}
}

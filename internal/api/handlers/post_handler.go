package handlers

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/dmflow/internal/service"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

type PostHandler struct {
	s         service.PostService
	uploadDir string
}

// NewPostHandler serves the schedule endpoints. Files sent as multipart are
// stored under uploadDir before scheduling.
func NewPostHandler(service service.PostService, uploadDir string) *PostHandler {
	return &PostHandler{s: service, uploadDir: uploadDir}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var input transfer.PostCreation

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		refs, err := h.saveFiles(c)
		if err != nil {
			slog.Error(err.Error())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse form",
			})
		}
		input = transfer.PostCreation{
			FileRefs:     append(splitRefs(c.FormValue("file_refs")), refs...),
			Caption:      c.FormValue("caption"),
			MediaType:    c.FormValue("media_type"),
			PublishAt:    c.FormValue("publish_at"),
			LinkedFlowID: c.FormValue("linked_flow_id"),
		}
	} else if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if len(input.FileRefs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files selected",
		})
	}

	post, err := h.s.Schedule(c.Context(), &input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) saveFiles(c *fiber.Ctx) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	files := form.File["files"]
	if len(files) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(files))
	for _, file := range files {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(h.uploadDir, id+strings.ToLower(filepath.Ext(file.Filename)))
		if err := c.SaveFile(file, path); err != nil {
			return nil, err
		}
		refs = append(refs, path)
	}
	return refs, nil
}

func splitRefs(value string) []string {
	var refs []string
	for _, ref := range strings.Split(value, ",") {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	var input transfer.PostUpdate
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if err := h.s.Update(c.Context(), &input); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return missingID(c)
	}

	if err := h.s.Remove(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

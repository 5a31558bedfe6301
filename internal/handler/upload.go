package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/model"
	"github.com/coverledger/internal/trust"
)

// maxUploadBytes caps avatar uploads at 2 MB.
const maxUploadBytes = 2 << 20

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

type UploadHandler struct {
	BaseHandler
	store identity.Store
	dir   string
}

func NewUploadHandler(logger *slog.Logger, store identity.Store, dir string) *UploadHandler {
	return &UploadHandler{BaseHandler: BaseHandler{Logger: logger}, store: store, dir: dir}
}

// Avatar stores an uploaded profile image under a random filename and
// records its serving path on the caller's account.
func (h *UploadHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	p := trust.PrincipalFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "upload must be multipart and at most 2MB")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "missing avatar file field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		h.errorResponse(w, r, http.StatusBadRequest, "unsupported image type")
		return
	}

	name := uuid.NewString() + ext
	if err := h.saveFile(file, name); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	avatarURL := "/uploads/" + name
	rec, err := h.store.Mutate(r.Context(), p.Email,
		func(ctx context.Context, _ identity.View, rec *model.Identity) error {
			rec.AvatarURL = avatarURL
			return nil
		})
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"user": rec}, nil)
}

func (h *UploadHandler) saveFile(src io.Reader, name string) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return err
	}
	return dst.Close()
}

// ServeUploads exposes the upload directory read-only.
func ServeUploads(dir string) http.Handler {
	return http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir)))
}

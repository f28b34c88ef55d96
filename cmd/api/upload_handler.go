package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"godsendjoseph.dev/gaushala-api/internal/auth"
	"godsendjoseph.dev/gaushala-api/internal/models"
	"godsendjoseph.dev/gaushala-api/internal/storage"
	"godsendjoseph.dev/gaushala-api/internal/store"
	"godsendjoseph.dev/gaushala-api/internal/upload"
	"godsendjoseph.dev/gaushala-api/internal/utils"
)

type uploadForm struct {
	Path                  string `form:"path" validate:"omitempty,max=512,safepath"`
	UseFilesystemFallback bool   `form:"useFilesystemFallback"`
}

type uploadResponse struct {
	Success     bool     `json:"success"`
	PhotoURL    string   `json:"photoUrl,omitempty"`
	UploadID    string   `json:"uploadId,omitempty"`
	Error       string   `json:"error,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

func (app *application) uploadPhotoHandler(writer http.ResponseWriter, request *http.Request) {
	tooLargeErr := fmt.Errorf("file exceeds the %s limit", units.HumanSize(float64(app.config.uploadMaxSize)))
	if request.ContentLength > app.config.uploadMaxSize {
		app.uploadErrorResponse(writer, request, http.StatusRequestEntityTooLarge, tooLargeErr)
		return
	}

	var form uploadForm
	files, err := readFormData(writer, request, &form, app.config.uploadMaxSize)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			app.uploadErrorResponse(writer, request, http.StatusRequestEntityTooLarge, tooLargeErr)
			return
		}
		app.uploadErrorResponse(writer, request, http.StatusBadRequest, err)
		return
	}

	if err := Validate.Struct(form); err != nil {
		app.uploadErrorResponse(writer, request, http.StatusBadRequest, fmt.Errorf("invalid form: %v", validationErrors(err)))
		return
	}

	fileHeaders := files["file"]
	if len(fileHeaders) == 0 {
		app.uploadErrorResponse(writer, request, http.StatusBadRequest, errors.New("no file provided"))
		return
	}

	body, err := readUploadedFile(fileHeaders[0])
	if err != nil {
		app.internalServerError(writer, request, err)
		return
	}
	if len(body) == 0 {
		app.uploadErrorResponse(writer, request, http.StatusBadRequest, upload.ErrEmptyBody)
		return
	}

	fileName := fileHeaders[0].Filename
	contentType := storage.DetectContentType(fileHeaders[0].Header.Get("Content-Type"), fileName, body)
	if allowed := app.config.storage.allowedMimeTypes; len(allowed) > 0 && !slices.Contains(allowed, contentType) {
		app.uploadErrorResponse(writer, request, http.StatusUnsupportedMediaType, fmt.Errorf("file type %s is not allowed", contentType))
		return
	}

	req := upload.Request{
		Body:           body,
		FileName:       fileName,
		ContentType:    contentType,
		Path:           form.Path,
		FilesystemOnly: form.UseFilesystemFallback,
	}

	result, storeErr := app.uploader.Store(request.Context(), req)
	uploadID := app.recordUpload(request.Context(), req, result)

	response := uploadResponse{Success: result.Success, UploadID: uploadID, PhotoURL: result.PublicURL}
	if app.config.env != "production" {
		response.Diagnostics = result.Diagnostics
	}

	if storeErr != nil {
		var allFailed *upload.AllStrategiesFailedError
		if !errors.As(storeErr, &allFailed) {
			app.uploadErrorResponse(writer, request, http.StatusBadRequest, storeErr)
			return
		}

		app.logger.Errorw("photo upload failed", "file", fileName, "diagnostics", result.Diagnostics)
		_ = app.slackNotifier.NotifyUploadFailure(fileName, result.Diagnostics, request)

		response.Error = "upload failed: " + strings.Join(result.Diagnostics, "; ")
		_ = writeJSONBody(writer, http.StatusInternalServerError, response)
		return
	}

	app.logger.Infow("photo uploaded", "file", fileName, "strategy", result.StrategyUsed, "url", result.PublicURL, "user", subjectFrom(request.Context()))
	if err := writeJSONBody(writer, http.StatusOK, response); err != nil {
		app.internalServerError(writer, request, err)
	}
}

func (app *application) uploadErrorResponse(writer http.ResponseWriter, request *http.Request, status int, err error) {
	app.logger.Warnw("upload rejected", "method", request.Method, "path", request.URL.Path, "status", status, "error", err.Error())
	_ = writeJSONBody(writer, status, uploadResponse{Success: false, Error: err.Error()})
}

func readUploadedFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// recordUpload writes the activity log row. It never fails the upload.
func (app *application) recordUpload(ctx context.Context, req upload.Request, result *upload.Result) string {
	if app.store.Uploads == nil {
		return ""
	}

	entry := &models.UploadLog{
		UploadID:    uuid.NewString(),
		FileName:    req.FileName,
		Path:        result.Path,
		PublicURL:   result.PublicURL,
		Strategy:    string(result.StrategyUsed),
		ContentType: result.ContentType,
		SizeBytes:   int64(len(req.Body)),
		Success:     result.Success,
		Diagnostics: utils.StringSlice(result.Diagnostics),
	}

	if err := app.store.Uploads.Create(ctx, entry); err != nil {
		app.logger.Warnw("failed to record upload", "path", result.Path, "error", err)
		return ""
	}
	return entry.UploadID
}

func (app *application) getUploadHandler(writer http.ResponseWriter, request *http.Request) {
	uploadID := chi.URLParam(request, "uploadID")
	if _, err := uuid.Parse(uploadID); err != nil {
		app.badRequestResponse(writer, request, errors.New("invalid upload id"), map[string]string{"uploadID": "uuid"})
		return
	}

	if app.store.Uploads == nil {
		app.serviceUnavailableResponse(writer, request, errors.New("activity log is disabled"))
		return
	}

	entry, err := app.getUpload(request.Context(), uploadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			app.notFoundResponse(writer, request, err)
			return
		}
		app.internalServerError(writer, request, err)
		return
	}

	if err := writeJSON(writer, http.StatusOK, "upload found", entry); err != nil {
		app.internalServerError(writer, request, err)
	}
}

func (app *application) listUploadsHandler(writer http.ResponseWriter, request *http.Request) {
	if app.store.Uploads == nil {
		app.serviceUnavailableResponse(writer, request, errors.New("activity log is disabled"))
		return
	}

	limit := 20
	if raw := request.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			app.badRequestResponse(writer, request, errors.New("invalid limit"), map[string]string{"limit": "gt=0"})
			return
		}
		limit = parsed
	}

	entries, err := app.store.Uploads.ListRecent(request.Context(), limit)
	if err != nil {
		app.internalServerError(writer, request, err)
		return
	}

	if err := writeJSON(writer, http.StatusOK, "recent uploads", entries); err != nil {
		app.internalServerError(writer, request, err)
	}
}

// getUpload reads through the cache when redis is enabled.
func (app *application) getUpload(ctx context.Context, uploadID string) (*models.UploadLog, error) {
	if !app.config.redisCfg.enabled {
		return app.store.Uploads.GetByUploadID(ctx, uploadID)
	}

	entry, err := app.cacheStorage.Uploads.Get(ctx, uploadID)
	if err != nil {
		app.logger.Warnw("cache read failed", "key", "upload", "uploadID", uploadID, "error", err)
	}
	if entry != nil {
		app.logger.Infow("cache hit", "key", "upload", "uploadID", uploadID)
		return entry, nil
	}

	entry, err = app.store.Uploads.GetByUploadID(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	if err := app.cacheStorage.Uploads.Set(ctx, entry); err != nil {
		app.logger.Warnw("cache write failed", "key", "upload", "uploadID", uploadID, "error", err)
	}

	return entry, nil
}

func subjectFrom(ctx context.Context) string {
	claims, ok := ctx.Value(claimsCtx).(*auth.PlatformClaims)
	if !ok {
		return ""
	}
	return claims.Subject
}

package main

import (
	"net/http"
	"slices"
)

func (app *application) internalServerError(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Errorw("internal server error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	_ = app.slackNotifier.NotifyServerError(err, request)
	_ = writeJSONError(writer, http.StatusInternalServerError, "the server encountered a problem and could not process your request", nil)
}

func (app *application) badRequestResponse(writer http.ResponseWriter, request *http.Request, err error, errorsMap map[string]string) {
	app.logger.Warnw("bad request error", "method", request.Method, "path", request.URL.Path, "error", err.Error(), "errors", errorsMap)
	_ = writeJSONError(writer, http.StatusBadRequest, err.Error(), errorsMap)
}

func (app *application) methodNotAllowedResponse(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Warnw("method not allowed error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	_ = writeJSONError(writer, http.StatusMethodNotAllowed, "method not allowed", nil)
}

func (app *application) notFoundResponse(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Warnw("not found error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	if app.isCriticalResource(request.URL.Path) {
		_ = app.slackNotifier.NotifyNotFound(err, request)
	}

	_ = writeJSONError(writer, http.StatusNotFound, "not found", nil)
}

func (app *application) serviceUnavailableResponse(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Warnw("service unavailable", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	_ = writeJSONError(writer, http.StatusServiceUnavailable, err.Error(), nil)
}

func (app *application) forbiddenResponseError(writer http.ResponseWriter, request *http.Request) {
	app.logger.Warnw("forbidden error", "method", request.Method, "path", request.URL.Path)
	_ = app.slackNotifier.NotifyForbidden(request)
	_ = writeJSONError(writer, http.StatusForbidden, "request is forbidden", nil)
}

func (app *application) unauthorizedErrorResponse(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	_ = writeJSONError(writer, http.StatusUnauthorized, "unauthorized", nil)
}

func (app *application) rateLimitExceededResponse(writer http.ResponseWriter, request *http.Request, retryAfter string) {
	app.logger.Warnw("rate limit error", "method", request.Method, "path", request.URL.Path, "error", retryAfter)
	_ = app.slackNotifier.NotifyRateLimitExceeded(request, retryAfter)
	writer.Header().Set("Retry-After", retryAfter)
	_ = writeJSONError(writer, http.StatusTooManyRequests, "rate limit exceeded", nil)
}

func (app *application) isCriticalResource(path string) bool {
	criticalUrls := []string{
		"/v1/health",
		"/v1/uploads",
		"/v1/storage/fix",
		"/v1/storage/verify",
	}

	return slices.Contains(criticalUrls, path)
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

type fixStorageResponse struct {
	Success  bool     `json:"success"`
	Messages []string `json:"messages"`
}

type verifyStorageResponse struct {
	Success bool   `json:"success"`
	TestURL string `json:"testUrl,omitempty"`
	Error   string `json:"error,omitempty"`
}

// fixStorageHandler runs every repair step and reports each one.
// Provisioning warnings are reported but do not fail the repair.
func (app *application) fixStorageHandler(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	response := fixStorageResponse{Success: true, Messages: []string{}}

	fail := func(format string, args ...any) {
		response.Success = false
		response.Messages = append(response.Messages, fmt.Sprintf(format, args...))
	}

	if err := app.filesystem.EnsureDir(); err != nil {
		fail("uploads directory: %v", err)
	} else {
		response.Messages = append(response.Messages, "uploads directory ready: "+app.filesystem.Dir())
	}

	if app.provisioner == nil {
		response.Messages = append(response.Messages, "remote storage not configured, skipped provisioning")
	} else {
		container := app.config.storage.container()
		report, err := app.provisioner.Ensure(ctx, container)
		switch {
		case err != nil:
			fail("provision %s: %v", container.Name, err)
		case report.Created:
			response.Messages = append(response.Messages, "created container "+container.Name)
		case report.Updated:
			response.Messages = append(response.Messages, "updated container "+container.Name)
		default:
			response.Messages = append(response.Messages, "container "+container.Name+" already exists")
		}
		if report != nil {
			for _, warning := range report.Warnings {
				response.Messages = append(response.Messages, "warning: "+warning)
			}
			if err == nil {
				response.Messages = append(response.Messages, "access policies asserted")
			}
		}
	}

	if err := app.filesystem.SelfTest(ctx); err != nil {
		fail("filesystem self test: %v", err)
	} else {
		response.Messages = append(response.Messages, "filesystem self test passed")
	}

	status := http.StatusOK
	if !response.Success {
		status = http.StatusInternalServerError
		app.logger.Errorw("storage repair incomplete", "messages", response.Messages)
	}

	if err := writeJSONBody(writer, status, response); err != nil {
		app.internalServerError(writer, request, err)
	}
}

// verifyStorageHandler round-trips a probe object through the remote store.
func (app *application) verifyStorageHandler(writer http.ResponseWriter, request *http.Request) {
	if app.storageClient == nil {
		app.serviceUnavailableResponse(writer, request, errors.New("remote storage not configured"))
		return
	}

	ctx := request.Context()
	container := app.config.storage.bucket

	respond := func(status int, response verifyStorageResponse) {
		if err := writeJSONBody(writer, status, response); err != nil {
			app.internalServerError(writer, request, err)
		}
	}

	containers, err := app.storageClient.ListContainers(ctx)
	if err != nil {
		respond(http.StatusBadGateway, verifyStorageResponse{Error: "list containers: " + err.Error()})
		return
	}

	found := false
	for _, c := range containers {
		if c.Name == container {
			found = true
			break
		}
	}
	if !found {
		respond(http.StatusNotFound, verifyStorageResponse{Error: fmt.Sprintf("container %q does not exist, run POST /v1/storage/fix", container)})
		return
	}

	key := "verify-" + uuid.NewString() + ".txt"
	probe := []byte("storage verification probe")
	result, err := app.storageClient.UploadObject(ctx, container, key, bytes.NewReader(probe), int64(len(probe)), "text/plain")
	if err != nil {
		respond(http.StatusBadGateway, verifyStorageResponse{Error: "upload probe: " + err.Error()})
		return
	}

	testURL := result.URL
	if testURL == "" {
		testURL = app.storageClient.GetPublicURL(container, key)
	}

	if err := app.storageClient.DeleteObject(ctx, container, key); err != nil {
		app.logger.Warnw("failed to delete verification probe", "container", container, "key", key, "error", err)
	}

	respond(http.StatusOK, verifyStorageResponse{Success: true, TestURL: testURL})
}

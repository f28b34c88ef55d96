package main

import (
	"net/http"
)

func (app *application) healthCheckHandler(writer http.ResponseWriter, request *http.Request) {
	storageProvider := app.config.storage.provider
	if app.storageClient == nil {
		storageProvider = providerNone
	}

	data := map[string]any{
		"env":       app.config.env,
		"versions":  version,
		"storage":   storageProvider,
		"container": app.config.storage.bucket,
	}

	if err := writeJSON(writer, http.StatusOK, "API is healthy running in "+app.config.env+" mode", data); err != nil {
		app.internalServerError(writer, request, err)
	}
}

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (app *application) registerRoutes(router *chi.Mux) {
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/v1/health", http.StatusSeeOther)
	})

	router.Route("/v1", func(route chi.Router) {
		route.Get("/health", app.healthCheckHandler)

		// cow photos
		route.Route("/uploads", func(route chi.Router) {
			route.Use(app.AuthTokenMiddleware)
			route.Post("/", app.uploadPhotoHandler)
			route.Get("/", app.listUploadsHandler)
			route.Get("/{uploadID}", app.getUploadHandler)
		})

		// storage maintenance
		route.Route("/storage", func(route chi.Router) {
			route.Use(app.AuthTokenMiddleware)
			route.Post("/fix", app.fixStorageHandler)
			route.Get("/verify", app.verifyStorageHandler)
		})
	})
}

package server

import (
	"context"
	"net/http"

	"foodgram/internal/handlers"
	applog "foodgram/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")

	mux.HandleFunc("/healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")

	mux.HandleFunc("/api/auth/signup", handlers.Signup)
	mux.HandleFunc("/api/auth/login", handlers.Login)
	mux.Handle("/api/auth/logout", handlers.RequireAuthentication(http.HandlerFunc(handlers.Logout)))
	applog.Debug(context.Background(), "route registered", "path", "/api/auth/")

	mux.Handle("/api/users/set_password", handlers.RequireAuthentication(http.HandlerFunc(handlers.SetPassword)))

	resources := []struct {
		path    string
		handler http.HandlerFunc
	}{
		{"/api/users", handlers.UserResource},
		{"/api/recipes", handlers.RecipeResource},
		{"/api/ingredients", handlers.IngredientResource},
		{"/api/tags", handlers.TagResource},
		{"/api/measurement_units", handlers.MeasurementUnitResource},
	}
	for _, resource := range resources {
		mux.HandleFunc(resource.path, resource.handler)
		mux.HandleFunc(resource.path+"/", resource.handler)
		applog.Debug(context.Background(), "route registered", "path", resource.path)
	}

	return mux
}

/* Copyright 2025 Leaf Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/leafnotes/leaf/pkg/server/app"
	mw "github.com/leafnotes/leaf/pkg/server/middleware"
	"github.com/pkg/errors"
)

// Route represents a single route
type Route struct {
	Method    string
	Pattern   string
	Handler   http.HandlerFunc
	RateLimit bool
}

// RouteConfig is the configuration for routes
type RouteConfig struct {
	Controllers *Controllers
	APIRoutes   []Route
}

// NewAPIRoutes returns a new api routes
func NewAPIRoutes(a *app.App, c *Controllers) []Route {
	ret := []Route{
		{"POST", "/v1/signin", c.Users.Login, true},
		{"POST", "/v1/signout", c.Users.Logout, true},
		{"OPTIONS", "/v1/signout", c.Users.logoutOptions, true},

		{"POST", "/v1/reset-token", c.Users.CreateResetToken, true},
		{"PATCH", "/v1/reset-password", c.Users.ResetPassword, true},

		{"GET", "/v1/sync/state", mw.Auth(a.DB, c.Sync.GetSyncState), false},
		{"GET", "/v1/sync/fragment", mw.Auth(a.DB, c.Sync.GetSyncFragment), false},

		{"POST", "/v1/pages", mw.Auth(a.DB, c.Pages.Create), true},
		{"PATCH", "/v1/pages/{pageUUID}", mw.Auth(a.DB, c.Pages.Update), true},
		{"DELETE", "/v1/pages/{pageUUID}", mw.Auth(a.DB, c.Pages.Delete), true},

		{"GET", "/v1/folders", mw.Auth(a.DB, c.Folders.Index), true},
		{"POST", "/v1/folders", mw.Auth(a.DB, c.Folders.Create), true},
		{"PATCH", "/v1/folders/{folderUUID}", mw.Auth(a.DB, c.Folders.Update), true},
		{"DELETE", "/v1/folders/{folderUUID}", mw.Auth(a.DB, c.Folders.Delete), true},

		{"POST", "/v1/alarms", mw.Auth(a.DB, c.Alarms.Create), true},
		{"PATCH", "/v1/alarms/{alarmUUID}", mw.Auth(a.DB, c.Alarms.Update), true},
		{"DELETE", "/v1/alarms/{alarmUUID}", mw.Auth(a.DB, c.Alarms.Delete), true},

		{"GET", "/job/alarm-check", c.Job.AlarmCheck, true},
	}

	if !a.DisableRegistration {
		ret = append(ret, Route{"POST", "/v1/register", c.Users.Register, true})
	}

	return ret
}

func registerRoutes(router *mux.Router, wrapper mw.Middleware, app *app.App, routes []Route) {
	for _, route := range routes {
		wrappedHandler := wrapper(route.Handler, app, route.RateLimit)

		router.
			Handle(route.Pattern, wrappedHandler).
			Methods(route.Method)
	}
}

// NewRouter creates and returns a new router
func NewRouter(app *app.App, rc RouteConfig) (http.Handler, error) {
	if err := app.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating the app parameters")
	}

	router := mux.NewRouter().StrictSlash(true)

	apiRouter := router.PathPrefix("/api").Subrouter()
	registerRoutes(apiRouter, mw.APIMw, app, rc.APIRoutes)

	router.HandleFunc("/health", rc.Controllers.Health.Index).Methods("GET")

	// retired api versions
	router.PathPrefix("/api/v0").Handler(mw.ApplyLimit(mw.NotSupported, true))

	return mw.Global(router), nil
}

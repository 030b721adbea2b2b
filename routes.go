package main

import (
	"net/http"

	"salesboard/auth"
	"salesboard/automation"
	"salesboard/loader"
)

func SetupRoutes(mux *http.ServeMux, s *server) {
	login := func(h http.HandlerFunc) http.Handler { return auth.RequireLogin(h) }
	admin := func(h http.HandlerFunc) http.Handler { return auth.RequireAdmin(h) }

	mux.HandleFunc("/login", s.loginHandler)
	mux.HandleFunc("/logout", s.logoutHandler)
	mux.Handle("/", login(s.dashboardHandler))

	mux.Handle("/api/kpis", login(KPIHandler(s.db)))
	mux.Handle("/api/top-products", login(TopProductsHandler(s.db)))
	mux.Handle("/api/top-customers", login(TopCustomersHandler(s.db)))
	mux.Handle("/api/monthly", login(MonthlyHandler(s.db)))
	mux.Handle("/api/rows", login(RowsHandler(s.db)))
	mux.Handle("/api/pivot", login(PivotHandler(s.db)))
	mux.Handle("/api/export", login(ExportHandler(s.db)))
	mux.Handle("/api/report.pdf", login(automation.ReportPDFHandler(s.db)))

	mux.Handle("/api/import", admin(loader.ImportTransactionsHandler(s.db)))
	mux.Handle("/api/users", admin(ListUsersHandler(s.users)))
	mux.Handle("/api/users/create", admin(CreateUserHandler(s.users)))
	mux.Handle("/api/users/delete/", admin(DeleteUserHandler(s.users)))

	mux.Handle("/api/config", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			GetConfigHandler()(w, r)
		case http.MethodPost:
			SaveConfigHandler()(w, r)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}))
}

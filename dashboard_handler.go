package main

import (
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"salesboard/aggregation"
	"salesboard/analysis"
	"salesboard/auth"
	"salesboard/config"
	"salesboard/database"
	"salesboard/model"
	"salesboard/render"
)

type loginPage struct {
	Username string
	Error    string
}

type card struct {
	Label string
	Value string
}

type productOption struct {
	Name     string
	Selected bool
}

type dashboardPage struct {
	Session      *auth.Session
	Page         string
	Error        string
	Dropped      int
	Cards        []card
	Charts       []template.HTML
	Products     []productOption
	MinRevenue   string
	Filter       []string
	ExportLink   template.URL
	BaseCurrency string
	SalesTable   template.HTML
	Users        []model.UserSummary
}

func (s *server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		config.GetLogger().WithError(err).Errorf("Error executing template %s", name)
	}
}

func (s *server) loginHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if sess := auth.SessionFromContext(r.Context()); sess != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.render(w, http.StatusOK, "login.html", loginPage{})
	case http.MethodPost:
		username := r.PostFormValue("username")
		res, err := s.users.Verify(r.Context(), username, r.PostFormValue("password"))
		if err != nil {
			config.LogError(config.GetLogger(), "main", "loginHandler", "credential check failed", nil, err)
			s.render(w, http.StatusServiceUnavailable, "login.html", loginPage{Username: username, Error: "Service d'authentification indisponible."})
			return
		}
		if !res.Authenticated {
			s.render(w, http.StatusUnauthorized, "login.html", loginPage{Username: username, Error: "Identifiants incorrects"})
			return
		}
		if _, err := s.sessions.Login(w, username, res); err != nil {
			config.LogError(config.GetLogger(), "main", "loginHandler", "session issue failed", nil, err)
			s.render(w, http.StatusInternalServerError, "login.html", loginPage{Username: username, Error: "Connexion impossible."})
			return
		}
		config.GetLogger().WithField("username", username).Info("login")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sessions.Logout(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	sess := auth.SessionFromContext(r.Context())
	q := r.URL.Query()
	page := dashboardPage{Session: sess, Page: q.Get("page"), MinRevenue: q.Get("minRevenue")}
	cfg := config.GetConfig()
	page.BaseCurrency = cfg.BaseCurrency

	if sess.IsAdmin() {
		users, err := s.users.List(r.Context())
		if err != nil {
			config.GetLogger().WithError(err).Warn("Error listing users for dashboard")
		}
		page.Users = users
	}

	filter, err := filterFromQuery(q)
	if err != nil {
		page.Error = err.Error()
		s.render(w, http.StatusBadRequest, "dashboard.html", page)
		return
	}
	page.Filter = filter.Products
	page.ExportLink = exportLink(filter.Products, page.MinRevenue)
	if page.Page == "export" {
		s.render(w, http.StatusOK, "dashboard.html", page)
		return
	}
	res, err := analysis.Run(r.Context(), s.db, cfg, model.RowFilter{}, time.Now())
	if err != nil {
		config.LogError(config.GetLogger(), "main", "dashboardHandler", "analysis failed", nil, err)
		page.Error = "Erreur de chargement des ventes: " + err.Error()
		s.render(w, http.StatusInternalServerError, "dashboard.html", page)
		return
	}

	rep, conv := res.Report, res.Converter
	bestSeller := rep.BestSeller
	if bestSeller == "" {
		bestSeller = "-"
	}
	page.Dropped = rep.DroppedRows
	page.Cards = []card{
		{"CA total", conv.FormatLocal(rep.Summary.TotalRevenue)},
		{"Panier moyen", conv.FormatLocal(rep.Summary.AverageBasket)},
		{"Nombre de ventes", conv.Number(decimal.NewFromInt(int64(rep.Summary.TransactionCount)), 0)},
		{"Produit phare", bestSeller},
	}
	page.Charts = []template.HTML{
		template.HTML(render.RevenueByProductChart(rep.AllProducts, conv)),
		template.HTML(render.ShareChart(rep.AllProducts, conv)),
		template.HTML(render.MonthlyTrendChart(rep.MonthlyTrend, conv)),
		template.HTML(render.TopCustomersChart(rep.TopCustomers, conv)),
	}

	products, err := database.GetAllProducts(r.Context(), s.db)
	if err != nil {
		config.GetLogger().WithError(err).Warn("Error listing products for filter")
	}
	selected := make(map[string]bool, len(filter.Products))
	for _, p := range filter.Products {
		selected[p] = true
	}
	for _, p := range products {
		page.Products = append(page.Products, productOption{Name: p.Name, Selected: len(selected) == 0 || selected[p.Name]})
	}
	page.SalesTable = template.HTML(render.SalesTableHTML(aggregation.Filter(res.Rows, filter), conv))

	s.render(w, http.StatusOK, "dashboard.html", page)
}

// exportLink keeps the table filter when moving to the export page.
func exportLink(products []string, minRevenue string) template.URL {
	v := url.Values{"page": {"export"}}
	for _, p := range products {
		v.Add("product", p)
	}
	if minRevenue != "" {
		v.Set("minRevenue", minRevenue)
	}
	return template.URL("/?" + v.Encode())
}

package app

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"lensbyexample/internal/content"
)

// Server wires handlers, templates, and the content cache together.
type Server struct {
	cfg       Config
	cache     *content.Cache
	log       *zap.Logger
	templates map[string]*template.Template
	mux       *http.ServeMux
}

type site struct {
	Title          string
	DonationURL    string
	MailingListURL string
}

// pageData is shared by every page template; each page reads the fields it needs.
type pageData struct {
	Site     site
	Title    string
	Refresh  bool
	Sections []sectionView
	Content  template.HTML
	Slug     string
	Path     string
	Message  string
}

type sectionView struct {
	Name     string
	Anchor   string
	Articles []content.Article
}

// NewServer constructs an HTTP handler ready to serve the site.
func NewServer(cache *content.Cache, cfg Config, log *zap.Logger) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	srv := &Server{
		cfg:       cfg,
		cache:     cache,
		log:       log,
		templates: tmpl,
		mux:       http.NewServeMux(),
	}

	srv.mux.HandleFunc("GET /{$}", srv.handleListing)
	// section is part of the public URL shape but plays no part in the lookup
	srv.mux.HandleFunc("GET /articles/{section}/{slug}", srv.handleArticle)
	srv.mux.Handle("GET /static/", http.FileServerFS(staticFS))
	srv.mux.HandleFunc("/", srv.handleNotFound)

	return srv, nil
}

// ServeHTTP satisfies http.Handler and logs every request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Info("Request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	articles, ready, err := s.cache.Collection(r.Context())
	if err != nil {
		s.renderFetchError(w, r, err, "articles")
		return
	}
	if !ready {
		s.renderLoading(w, r)
		return
	}

	groups := content.GroupBySection(articles)
	sections := make([]sectionView, 0, len(groups))
	for _, g := range groups {
		sections = append(sections, sectionView{
			Name:     g.Name,
			Anchor:   "section-" + slug.Make(g.Name),
			Articles: g.Articles,
		})
	}

	data := s.page()
	data.Sections = sections
	s.render(w, r, http.StatusOK, "listing", data)
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	requested := r.PathValue("slug")
	key, err := content.CleanSlug(requested)
	if err != nil {
		s.renderArticleNotFound(w, r, requested)
		return
	}

	article, ready, err := s.cache.Article(r.Context(), key)
	if err != nil {
		s.renderFetchError(w, r, err, "article")
		return
	}
	if !ready {
		s.renderLoading(w, r)
		return
	}
	if article == nil || !article.Valid() {
		s.renderArticleNotFound(w, r, key)
		return
	}

	data := s.page()
	data.Title = article.Title
	data.Slug = article.Slug
	// Article HTML is authored in the content store and rendered as-is.
	data.Content = template.HTML(article.Content)
	s.render(w, r, http.StatusOK, "article", data)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	data := s.page()
	data.Title = "Not found"
	data.Path = r.URL.Path
	s.render(w, r, http.StatusNotFound, "notfound", data)
}

func (s *Server) renderArticleNotFound(w http.ResponseWriter, r *http.Request, requested string) {
	data := s.page()
	data.Title = "Not found"
	data.Slug = requested
	s.render(w, r, http.StatusNotFound, "notfound", data)
}

func (s *Server) renderLoading(w http.ResponseWriter, r *http.Request) {
	data := s.page()
	data.Refresh = true
	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, http.StatusOK, "loading", data)
}

// renderFetchError reports a failed store read; what names the missing data.
func (s *Server) renderFetchError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// client went away
		return
	}
	s.log.Error("Unable to serve page", zap.String("path", r.URL.Path), zap.Error(err))

	data := s.page()
	data.Message = what
	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, http.StatusBadGateway, "error", data)
}

func (s *Server) page() pageData {
	return pageData{
		Site: site{
			Title:          s.cfg.SiteTitle,
			DonationURL:    s.cfg.DonationURL,
			MailingListURL: s.cfg.MailingListURL,
		},
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error("Unable to render page", zap.String("template", name), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Debug("Unable to write response", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

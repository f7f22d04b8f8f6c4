// Package sample is a small blog application that speaks the embedded-form
// fragment protocol. It backs the `embedform sample` command and the
// end-to-end tests.
package sample

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-embedform/pkg/transport"
)

const maxUploadBytes = 8 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCSRFToken requires every POST to carry token, either in the
// X-CSRFToken header or in the csrfmiddlewaretoken field.
func WithCSRFToken(token string) Option {
	return func(s *Server) {
		s.csrfToken = strings.TrimSpace(token)
	}
}

// WithTemplates overrides the embedded templates.
func WithTemplates(t *Templates) Option {
	return func(s *Server) {
		if t != nil {
			s.templates = t
		}
	}
}

// Server renders blog and post fragments.
type Server struct {
	store     *Store
	templates *Templates
	validator *Validator
	csrfToken string
	logger    zerolog.Logger
	router    chi.Router
}

// New builds the router over store.
func New(ctx context.Context, store *Store, options ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("sample: store is nil")
	}
	s := &Server{store: store, logger: zerolog.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.templates == nil {
		t, err := NewTemplates(nil)
		if err != nil {
			return nil, err
		}
		s.templates = t
	}
	v, err := NewValidator(ctx, nil)
	if err != nil {
		return nil, err
	}
	s.validator = v
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("sample server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.checkCSRF)

	r.Get("/", s.index)
	r.Route("/blogs/{blogID}", func(r chi.Router) {
		r.Get("/", s.blogForm)
		r.Post("/", s.saveBlog)
		r.Get("/posts/", s.postList)
	})
	r.Get("/posts/new/", s.newPost)
	r.Post("/posts/", s.createPost)
	r.Route("/posts/{postID}", func(r chi.Router) {
		r.Get("/", s.postDetail)
		r.Post("/", s.updatePost)
		r.Get("/edit/", s.editPost)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Bool("fragment", r.Header.Get(transport.HeaderRequest) != "").
			Msg("http request")
	})
}

func (s *Server) checkCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.csrfToken == "" || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		token := r.Header.Get("X-CSRFToken")
		if token == "" {
			if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			token = r.FormValue("csrfmiddlewaretoken")
		}
		if token != s.csrfToken {
			http.Error(w, "csrf token mismatch", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	blog, err := s.store.Seed(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	posts, err := s.store.Posts(r.Context(), blog.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "index", pongo2.Context{
		"blog":   blogContext(blog),
		"values": pongo2.Context{"title": blog.Title},
		"posts":  postContexts(posts),
	})
}

func (s *Server) blogForm(w http.ResponseWriter, r *http.Request) {
	blog, ok := s.loadBlog(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "blog_form", pongo2.Context{
		"blog":   blogContext(blog),
		"values": pongo2.Context{"title": blog.Title},
	})
}

func (s *Server) saveBlog(w http.ResponseWriter, r *http.Request) {
	blog, ok := s.loadBlog(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	mapping, err := s.validator.Validate("Blog", map[string]any{"title": title})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !mapping.Empty() {
		s.invalid(w, r, "blog_form", mapping, pongo2.Context{
			"blog":   blogContext(blog),
			"values": pongo2.Context{"title": title},
		})
		return
	}

	blog, err = s.store.UpdateBlog(r.Context(), blog.ID, title)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "blog_form", pongo2.Context{
		"blog":   blogContext(blog),
		"values": pongo2.Context{"title": blog.Title},
	})
}

func (s *Server) postList(w http.ResponseWriter, r *http.Request) {
	blog, ok := s.loadBlog(w, r)
	if !ok {
		return
	}
	posts, err := s.store.Posts(r.Context(), blog.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "posts", pongo2.Context{
		"blog":  blogContext(blog),
		"posts": postContexts(posts),
	})
}

func (s *Server) newPost(w http.ResponseWriter, r *http.Request) {
	blogID, err := strconv.ParseInt(r.URL.Query().Get("blog"), 10, 64)
	if err != nil {
		http.Error(w, "blog query parameter required", http.StatusBadRequest)
		return
	}
	if _, err := s.store.Blog(r.Context(), blogID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "post_form", pongo2.Context{
		"action": fmt.Sprintf("/posts/?blog=%d", blogID),
		"post":   pongo2.Context{},
		"values": pongo2.Context{"publish": true},
	})
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	blogID, err := strconv.ParseInt(r.URL.Query().Get("blog"), 10, 64)
	if err != nil {
		http.Error(w, "blog query parameter required", http.StatusBadRequest)
		return
	}
	post, mapping, ok := s.readPost(w, r)
	if !ok {
		return
	}
	if !mapping.Empty() {
		s.invalid(w, r, "post_form", mapping, pongo2.Context{
			"action": fmt.Sprintf("/posts/?blog=%d", blogID),
			"post":   pongo2.Context{},
			"values": postValues(post),
		})
		return
	}
	post.BlogID = blogID
	created, err := s.store.CreatePost(r.Context(), post)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "post_detail", pongo2.Context{"post": postContext(created)})
}

func (s *Server) editPost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadPost(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "post_form", pongo2.Context{
		"action": fmt.Sprintf("/posts/%d/", post.ID),
		"post":   postContext(post),
		"values": postValues(post),
	})
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	current, ok := s.loadPost(w, r)
	if !ok {
		return
	}
	post, mapping, ok := s.readPost(w, r)
	if !ok {
		return
	}
	if !mapping.Empty() {
		s.invalid(w, r, "post_form", mapping, pongo2.Context{
			"action": fmt.Sprintf("/posts/%d/", current.ID),
			"post":   postContext(current),
			"values": postValues(post),
		})
		return
	}
	post.ID = current.ID
	updated, err := s.store.UpdatePost(r.Context(), post)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "post_detail", pongo2.Context{"post": postContext(updated)})
}

func (s *Server) postDetail(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadPost(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "post_detail", pongo2.Context{"post": postContext(post)})
}

// readPost parses the multipart body into a post and validates it.
func (s *Server) readPost(w http.ResponseWriter, r *http.Request) (Post, ErrorMapping, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "bad request", http.StatusBadRequest)
		return Post{}, ErrorMapping{}, false
	}
	post := Post{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Body:    r.FormValue("body"),
		Publish: r.FormValue("publish") == "on",
	}
	if file, header, err := r.FormFile("cover"); err == nil {
		n, copyErr := io.Copy(io.Discard, file)
		_ = file.Close()
		if copyErr != nil {
			http.Error(w, "bad upload", http.StatusBadRequest)
			return Post{}, ErrorMapping{}, false
		}
		post.CoverName, post.CoverSize = header.Filename, n
	}

	mapping, err := s.validator.Validate("Post", map[string]any{
		"title":   post.Title,
		"body":    post.Body,
		"publish": post.Publish,
	})
	if err != nil {
		s.fail(w, r, err)
		return Post{}, ErrorMapping{}, false
	}
	return post, mapping, true
}

func (s *Server) loadBlog(w http.ResponseWriter, r *http.Request) (Blog, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "blogID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return Blog{}, false
	}
	blog, err := s.store.Blog(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return Blog{}, false
	}
	return blog, true
}

func (s *Server) loadPost(w http.ResponseWriter, r *http.Request) (Post, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return Post{}, false
	}
	post, err := s.store.Post(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return Post{}, false
	}
	return post, true
}

// invalid answers a rejected submission: 422, the explicit outcome header
// and the re-rendered form carrying the legacy error marker.
func (s *Server) invalid(w http.ResponseWriter, r *http.Request, name string, mapping ErrorMapping, data pongo2.Context) {
	form := mapping.Form
	if len(form) == 0 {
		form = []string{"Please correct the errors below."}
	}
	errs := pongo2.Context{}
	for field, messages := range mapping.Fields {
		errs[field] = messages
	}
	data["form_errors"] = form
	data["errors"] = errs
	w.Header().Set(transport.HeaderOutcome, transport.OutcomeInvalidValue)
	s.render(w, r, http.StatusUnprocessableEntity, name, data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pongo2.Context) {
	var buf bytes.Buffer
	if err := s.templates.Render(&buf, name, data); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	s.logger.Error().Err(err).Str("path", r.URL.Path).Str("request_id", middleware.GetReqID(r.Context())).Msg("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func postContexts(posts []Post) []pongo2.Context {
	out := make([]pongo2.Context, 0, len(posts))
	for _, p := range posts {
		out = append(out, postContext(p))
	}
	return out
}

func postValues(p Post) pongo2.Context {
	return pongo2.Context{"title": p.Title, "body": p.Body, "publish": p.Publish}
}

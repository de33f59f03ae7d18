package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/John-Robertt/cinelist/internal/app/query"
	"github.com/John-Robertt/cinelist/internal/domain"
)

// RequestIDHeader 是请求 ID 的传递头；调用方提供时沿用，否则生成新的 UUID。
const RequestIDHeader = "X-Request-ID"

// Service 是 HTTP 层唯一依赖的业务接口（*query.Service 实现它）。
type Service interface {
	Languages() []domain.Language
	List(ctx context.Context, req query.ListRequest) (domain.ListingResult, error)
	Search(ctx context.Context, req query.SearchRequest) (domain.SearchResult, error)
	Watch(ctx context.Context, req query.WatchRequest) (domain.DetailResult, error)
}

// ErrorBody 是错误响应体。
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type handler struct {
	svc Service
	log *slog.Logger
}

// NewRouter 构造路由。HTTP 层只做参数映射与序列化，不含业务判断。
func NewRouter(svc Service, log *slog.Logger) *mux.Router {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{svc: svc, log: log.With("component", "httpapi")}

	r := mux.NewRouter()
	r.Use(h.requestID, h.accessLog)

	// 路由全部挂在根路由上：子路由里的方法不匹配会被报告为 404 而不是 405。
	r.HandleFunc("/", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/languages", h.languages).Methods(http.MethodGet)
	r.HandleFunc("/api/movies/{language}", h.movies).Methods(http.MethodGet)
	r.HandleFunc("/api/search", h.search).Methods(http.MethodGet)
	r.HandleFunc("/api/watch", h.watch).Methods(http.MethodGet)
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Languages())
}

func (h *handler) movies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 0
	if s := strings.TrimSpace(q.Get("page")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.writeError(w, r, domain.InvalidInput("page 必须是整数，实际是 %q", s))
			return
		}
		page = n
	}
	res, err := h.svc.List(r.Context(), query.ListRequest{
		Language: mux.Vars(r)["language"],
		Category: q.Get("category"),
		Page:     page,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.Search(r.Context(), query.SearchRequest{Language: q.Get("lang"), Query: q.Get("q")})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) watch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.Watch(r.Context(), query.WatchRequest{URL: q.Get("url"), Title: q.Get("title")})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StatusFor 把 error_code 映射为 HTTP 状态码。
func StatusFor(code string) int {
	switch code {
	case domain.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case domain.ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := StatusFor(code)
	if code == "" {
		code = "internal"
	}
	if status >= 500 {
		h.log.Error("request failed", "request_id", RequestID(r.Context()), "code", code, "err", err)
	}
	writeJSON(w, status, ErrorBody{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type ctxKey struct{}

// RequestID 返回中间件写入 ctx 的请求 ID（没有时为空串）。
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (h *handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Info("request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

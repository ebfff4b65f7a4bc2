package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// endpoints is the valid route set, enumerated in the unknown-route reply.
var endpoints = []string{
	"/health", "/tabs", "/type", "/click", "/eval",
	"/dom", "/axtree", "/agent", "/find",
}

// Server is the HTTP facade. Every response is HTTP 200 with an ok/error
// discriminator in the body; callers inspect the body, not the status code.
type Server struct {
	cfg    Config
	bridge BridgeAPI
	ai     Capability
}

func NewServer(cfg Config, bridge BridgeAPI, ai Capability) *Server {
	return &Server{cfg: cfg, bridge: bridge, ai: ai}
}

type routeKey struct {
	method string
	path   string
}

// Handler builds the fixed (method, path) routing table. Anything not in
// the table answers 200 with the valid endpoint set.
func (s *Server) Handler() http.Handler {
	routes := map[routeKey]http.HandlerFunc{
		{"GET", "/health"}:  s.handleHealth,
		{"GET", "/tabs"}:    s.handleTabs,
		{"POST", "/type"}:   s.handleType,
		{"POST", "/click"}:  s.handleClick,
		{"POST", "/eval"}:   s.handleEval,
		{"GET", "/dom"}:     s.handleDOM,
		{"POST", "/dom"}:    s.handleDOM,
		{"GET", "/axtree"}:  s.handleAXTree,
		{"POST", "/axtree"}: s.handleAXTree,
		{"POST", "/agent"}:  s.handleAgent,
		{"POST", "/find"}:   s.handleFind,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("handler panic", "path", r.URL.Path, "panic", rec)
				jsonResp(w, 200, map[string]any{"error": "internal error"})
			}
		}()

		if fn, ok := routes[routeKey{r.Method, r.URL.Path}]; ok {
			fn(w, r)
			return
		}
		jsonResp(w, 200, map[string]any{
			"error":     "Unknown: " + r.Method + " " + r.URL.Path,
			"endpoints": endpoints,
		})
	})
}

// decodeBody parses a JSON POST body into dst. Malformed or absent bodies
// degrade to the zero value rather than failing the request; required
// fields are validated afterwards by each handler.
func decodeBody(r *http.Request, dst any) {
	if r.Body == nil {
		return
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		slog.Debug("body decode", "path", r.URL.Path, "err", err)
	}
}

type malformedRequestError struct{ msg string }

func (e *malformedRequestError) Error() string { return e.msg }

// ── GET /health ────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]any{"cdp": s.cfg.CDPBase})
}

// ── GET /tabs ──────────────────────────────────────────────

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := s.bridge.Tabs(r.Context())
	if err != nil {
		jsonErrBody(w, err)
		return
	}
	jsonOK(w, map[string]any{"tabs": tabs})
}

// ── POST /type ─────────────────────────────────────────────

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		TabURL   string `json:"tabUrl"`
		Selector string `json:"selector"`
		Clear    bool   `json:"clear"`
	}
	decodeBody(r, &req)
	if req.Text == "" {
		jsonErrBody(w, &malformedRequestError{"text required"})
		return
	}

	// Shell callers send literal backslash-n for newlines.
	text := strings.ReplaceAll(req.Text, `\n`, "\n")

	res, err := s.bridge.Type(r.Context(), TypeRequest{
		Text:      text,
		TabFilter: req.TabURL,
		Selector:  req.Selector,
		Clear:     req.Clear,
	})
	if err != nil {
		jsonErrBody(w, err)
		return
	}
	jsonOK(w, map[string]any{"chars": res.Chars, "tab": res.Tab})
}

// ── POST /click ────────────────────────────────────────────

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X      *float64 `json:"x"`
		Y      *float64 `json:"y"`
		TabURL string   `json:"tabUrl"`
	}
	decodeBody(r, &req)
	if req.X == nil || req.Y == nil {
		jsonErrBody(w, &malformedRequestError{"numeric x and y required"})
		return
	}

	if err := s.bridge.Click(r.Context(), *req.X, *req.Y, req.TabURL); err != nil {
		jsonErrBody(w, err)
		return
	}
	jsonOK(w, map[string]any{"x": *req.X, "y": *req.Y})
}

// ── POST /eval ─────────────────────────────────────────────

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expression string `json:"expression"`
		TabURL     string `json:"tabUrl"`
	}
	decodeBody(r, &req)
	if req.Expression == "" {
		jsonErrBody(w, &malformedRequestError{"expression required"})
		return
	}

	result, err := s.bridge.Eval(r.Context(), req.Expression, req.TabURL)
	if err != nil {
		jsonErrBody(w, err)
		return
	}
	jsonOK(w, map[string]any{"result": result})
}

// ── GET/POST /dom ──────────────────────────────────────────

func (s *Server) handleDOM(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TabURL string `json:"tabUrl"`
	}
	if r.Method == http.MethodPost {
		decodeBody(r, &req)
	}

	result, err := s.bridge.DOM(r.Context(), req.TabURL)
	if err != nil {
		jsonErrBody(w, err)
		return
	}
	jsonOK(w, map[string]any{"dom": result})
}

// ── GET/POST /axtree ───────────────────────────────────────

func (s *Server) handleAXTree(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TabURL      string `json:"tabUrl"`
		Interactive bool   `json:"interactive"`
	}
	if r.Method == http.MethodPost {
		decodeBody(r, &req)
	}

	nodes, err := s.bridge.AXTree(r.Context(), req.TabURL, req.Interactive)
	if err != nil {
		jsonErrBody(w, err)
		return
	}
	jsonOK(w, map[string]any{"nodes": nodes, "count": len(nodes)})
}

// ── POST /agent ────────────────────────────────────────────

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task   string `json:"task"`
		TabURL string `json:"tabUrl"`
	}
	decodeBody(r, &req)
	if req.Task == "" {
		jsonErrBody(w, &malformedRequestError{"task required"})
		return
	}
	if s.ai == nil {
		jsonErrBody(w, errAINotConfigured)
		return
	}

	result, err := s.ai.RunTask(r.Context(), req.Task, req.TabURL)
	if err != nil {
		jsonErrBody(w, err)
		return
	}
	jsonOK(w, result)
}

// ── POST /find ─────────────────────────────────────────────

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
		TabURL string `json:"tabUrl"`
	}
	decodeBody(r, &req)
	if req.Prompt == "" {
		jsonErrBody(w, &malformedRequestError{"prompt required"})
		return
	}
	if s.ai == nil {
		jsonErrBody(w, errAINotConfigured)
		return
	}

	result, err := s.ai.FindElement(r.Context(), req.Prompt, req.TabURL)
	if err != nil {
		jsonErrBody(w, err)
		return
	}
	jsonOK(w, result)
}

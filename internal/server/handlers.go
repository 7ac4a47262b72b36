package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ezachrisen/gavel"
	"github.com/ezachrisen/gavel/internal/record"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

// Error codes returned in the "error" field of a failed request.
const (
	CodeSyntaxError          = "syntax_error"
	CodeUnsupportedConstruct = "unsupported_construct"
	CodeMissingField         = "missing_field"
	CodeTypeMismatch         = "type_mismatch"
	CodeNoActiveRule         = "no_active_rule"
	CodeBadRequest           = "bad_request"
	CodeInternal             = "internal_error"
)

type ruleResponse struct {
	ID        string    `json:"id"`
	Rule      string    `json:"rule"`
	Canonical string    `json:"canonical"`
	Fields    []string  `json:"fields"`
	Compiled  time.Time `json:"compiled"`
	Age       string    `json:"age"`
}

type evaluateResponse struct {
	Result bool   `json:"result"`
	Report string `json:"report,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

var errBadRequest = errors.New("bad request")

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.renderPage(w, http.StatusOK, pageView{})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rule, ok := s.vault.Get()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: CodeNoActiveRule, Message: "No rule created yet."})
		return
	}
	writeJSON(w, http.StatusOK, s.describe(rule))
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	text, err := s.ruleText(w, r)
	if err != nil {
		s.fail(w, r, err, pageView{})
		return
	}

	rule, err := s.Compile(text, "http "+r.RemoteAddr)
	if err != nil {
		s.fail(w, r, err, pageView{RuleText: text})
		return
	}

	if wantsHTML(r) {
		s.renderPage(w, http.StatusOK, pageView{Message: "Rule created", RuleText: text})
		return
	}
	writeJSON(w, http.StatusOK, s.describe(rule))
}

func (s *Server) handleEvaluateRule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw, data, err := s.record(w, r)
	if err != nil {
		s.fail(w, r, err, pageView{JSONData: raw})
		return
	}

	explain, _ := strconv.ParseBool(r.URL.Query().Get("explain"))

	start := time.Now()
	var resp evaluateResponse
	if explain {
		var rule *gavel.Rule
		var d *gavel.Diagnostics
		rule, resp.Result, d, err = s.vault.Explain(data)
		if d != nil && rule != nil {
			resp.Report = d.AsString(rule.Text, data)
		}
	} else {
		resp.Result, err = s.vault.Evaluate(data)
	}
	elapsed := time.Since(start)

	result := "fail"
	switch {
	case err != nil:
		result = errorCode(err)
	case resp.Result:
		result = "pass"
	}
	s.metrics.ObserveEvaluation(result, elapsed)
	s.log.WithFields(logrus.Fields{
		"result":   result,
		"remote":   r.RemoteAddr,
		"duration": elapsed,
	}).Debug("rule evaluated")

	if err != nil {
		s.fail(w, r, err, pageView{JSONData: raw, Report: resp.Report})
		return
	}

	if wantsHTML(r) {
		s.renderPage(w, http.StatusOK, pageView{JSONData: raw, Result: strconv.FormatBool(resp.Result), Report: resp.Report})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ruleText reads the rule from a JSON body {"rule_string": "..."} or the
// rule_string form field.
func (s *Server) ruleText(w http.ResponseWriter, r *http.Request) (string, error) {
	if isJSON(r) {
		body, err := s.body(w, r)
		if err != nil {
			return "", err
		}
		p := s.parsers.Get()
		defer s.parsers.Put(p)
		v, err := p.ParseBytes(body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", errBadRequest, err)
		}
		rs := v.Get("rule_string")
		if rs == nil {
			return "", fmt.Errorf("%w: missing rule_string", errBadRequest)
		}
		b, err := rs.StringBytes()
		if err != nil {
			return "", fmt.Errorf("%w: rule_string must be a string", errBadRequest)
		}
		return string(b), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if _, ok := r.PostForm["rule_string"]; !ok {
		return "", fmt.Errorf("%w: missing form field rule_string", errBadRequest)
	}
	return r.PostForm.Get("rule_string"), nil
}

// record reads the record from a JSON body or the json_data form field. raw is
// the text the record was decoded from, for redisplay.
func (s *Server) record(w http.ResponseWriter, r *http.Request) (raw string, data map[string]any, err error) {
	if isJSON(r) {
		body, berr := s.body(w, r)
		if berr != nil {
			return "", nil, berr
		}
		data, err = s.records.DecodeRequest(body)
		return string(body), data, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return "", nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if _, ok := r.PostForm["json_data"]; !ok {
		return "", nil, fmt.Errorf("%w: missing form field json_data", errBadRequest)
	}
	raw = r.PostForm.Get("json_data")
	data, err = s.records.Decode([]byte(raw))
	return raw, data, err
}

func (s *Server) body(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return body, nil
}

func (s *Server) describe(r *gavel.Rule) ruleResponse {
	return ruleResponse{
		ID:        r.ID,
		Rule:      r.Text,
		Canonical: r.Canonical(),
		Fields:    r.Fields(),
		Compiled:  r.Compiled,
		Age:       humanize.RelTime(r.Compiled, s.now(), "ago", "from now"),
	}
}

// fail writes the error as JSON, or as the page if the client asked for HTML.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, view pageView) {
	code := errorCode(err)
	status := http.StatusBadRequest
	if code == CodeInternal {
		status = http.StatusInternalServerError
		s.log.WithError(err).Error("request failed")
	}

	resp := errorResponse{Error: code, Message: err.Error()}
	var ce *gavel.CompileError
	var mf *gavel.MissingFieldError
	var tm *gavel.TypeMismatchError
	var fe *record.FieldError
	switch {
	case errors.As(err, &ce):
		resp.Line, resp.Column = ce.Line, ce.Column
	case errors.As(err, &mf):
		resp.Field = mf.Field
	case errors.As(err, &tm):
		resp.Field = tm.Field
	case errors.As(err, &fe):
		resp.Field = fe.Field
	}
	if code == CodeNoActiveRule {
		resp.Message = "No rule created yet."
	}

	if wantsHTML(r) {
		view.Message = resp.Message
		view.Failed = true
		s.renderPage(w, status, view)
		return
	}
	writeJSON(w, status, resp)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, gavel.ErrSyntax):
		return CodeSyntaxError
	case errors.Is(err, gavel.ErrUnsupported):
		return CodeUnsupportedConstruct
	case errors.Is(err, gavel.ErrMissingField):
		return CodeMissingField
	case errors.Is(err, gavel.ErrTypeMismatch):
		return CodeTypeMismatch
	case errors.Is(err, gavel.ErrNoActiveRule):
		return CodeNoActiveRule
	case errors.Is(err, record.ErrInvalid), errors.Is(err, errBadRequest):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// wantsHTML reports whether a form submission came from a browser.
func wantsHTML(r *http.Request) bool {
	return !isJSON(r) && strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

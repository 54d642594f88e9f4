package middleware

import (
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// Logger logs one line per request with method, path, status and latency.
func Logger(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()

	chain.ProcessFilter(req, resp)

	log.Info().
		Str("method", req.Request.Method).
		Str("path", req.Request.URL.Path).
		Int("status", resp.StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("request handled")
}

// RecoverPanic converts a handler panic into a 500 instead of killing the
// server.
func RecoverPanic(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("path", req.Request.URL.Path).
				Msg("handler panicked")
			HandleError(resp, nil, http.StatusInternalServerError)
		}
	}()

	chain.ProcessFilter(req, resp)
}

func HandleError(resp *restful.Response, err error, code int) {
	message := http.StatusText(code)
	if err != nil {
		message = err.Error()
	}

	resp.WriteHeaderAndEntity(code, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

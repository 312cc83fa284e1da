package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/adapters/http/respond"
)

// NewRecoverer converte panics no corpo de erro genérico. O detalhe só é
// exposto com DEBUG ligado.
func NewRecoverer(logger logrus.FieldLogger, exposeDetail bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"panic": rec,
					"stack": string(debug.Stack()),
				}).Error("unhandled panic")

				body := respond.ErrorBody{Status: "error", Message: "Internal server error"}
				if exposeDetail {
					body.Detail = fmt.Sprint(rec)
				}
				respond.JSON(w, http.StatusInternalServerError, body)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

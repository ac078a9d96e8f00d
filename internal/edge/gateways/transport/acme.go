package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/cloakedge/cloakedge/internal/edge/common/log"
	"github.com/cloakedge/cloakedge/internal/edge/domain"
)

// ACMEChallengePrefix is the well-known path answered by the challenge
// handler instead of being proxied.
const ACMEChallengePrefix = "/.well-known/acme-challenge/"

// ChallengeSolver looks up the key authorization for an ACME challenge token.
// Implementations return domain.ErrUnknownChallenge for unknown tokens.
type ChallengeSolver interface {
	Challenge(ctx context.Context, token string) (string, error)
}

// ACMEHandler answers ACME HTTP-01 challenge requests from a static token
// table loaded at startup, falling back to a remote solver when configured.
type ACMEHandler struct {
	static map[string]string
	solver ChallengeSolver
	logger log.Logger
}

// NewACMEHandler constructs the challenge handler. Both the static table and
// the solver are optional; with neither, every token is unknown.
func NewACMEHandler(static map[string]string, solver ChallengeSolver, logger log.Logger) *ACMEHandler {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &ACMEHandler{static: static, solver: solver, logger: logger}
}

func (h *ACMEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	token := strings.TrimPrefix(r.URL.Path, ACMEChallengePrefix)
	if token == "" || strings.Contains(token, "/") {
		http.NotFound(w, r)
		return
	}

	// validators probe with HEAD before fetching
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	value, ok := h.static[token]
	if !ok && h.solver != nil {
		var err error
		value, err = h.solver.Challenge(r.Context(), token)
		if err != nil {
			if !errors.Is(err, domain.ErrUnknownChallenge) {
				h.logger.Warn(map[string]any{
					"token": token,
					"error": err.Error(),
				}, "ACME challenge lookup failed")
			}
			http.NotFound(w, r)
			return
		}
		ok = true
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, value)
}

// LoadStaticChallenges reads a JSON token-to-value table from path.
func LoadStaticChallenges(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge file %s: %w", path, err)
	}
	var table map[string]string
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse challenge file %s: %w", path, err)
	}
	return table, nil
}

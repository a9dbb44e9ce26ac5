package enrich

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

var (
	// ErrSourceUnavailable means the adapter has no credentials or the
	// provider rejected them. No network call is made for missing keys.
	ErrSourceUnavailable = eris.New("enrich: source unavailable")
	// ErrQuotaExceeded means the provider rate limited or billed out the call.
	ErrQuotaExceeded = eris.New("enrich: quota exceeded")
	// ErrMalformedUpstream means the provider answered with an unparseable body.
	ErrMalformedUpstream = eris.New("enrich: malformed upstream response")
)

// IsUnavailable reports whether err means the source could not contribute
// for an expected reason (no credentials, quota, bad payload).
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrMalformedUpstream) ||
		errors.Is(err, resilience.ErrCircuitOpen)
}

// classifyStatus maps a provider HTTP failure onto the enrich taxonomy.
// Transient statuses are marked for retry; quota responses never are.
func classifyStatus(err error, status int, rateLimited bool) error {
	switch {
	case rateLimited:
		return eris.Wrapf(ErrQuotaExceeded, "status %d", status)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return eris.Wrapf(ErrSourceUnavailable, "status %d", status)
	case resilience.IsTransientHTTPStatus(status):
		return resilience.NewTransientError(err, status)
	default:
		return err
	}
}

// classifyDecode maps JSON decoding failures to ErrMalformedUpstream and
// returns any other error unchanged.
func classifyDecode(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return eris.Wrap(ErrMalformedUpstream, err.Error())
	}
	return err
}

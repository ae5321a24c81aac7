package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// DecodeJSON decodes a single JSON value from the request body into dst,
// rejecting trailing data after it.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return domain.ErrIllegalParameter("invalid JSON body: " + err.Error())
	}

	if err := dec.Decode(&struct{}{}); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.ErrIllegalParameter("invalid JSON body: multiple values")
	}
	return domain.ErrIllegalParameter("invalid JSON body: multiple values")
}

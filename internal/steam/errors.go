// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package steam

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoData means the storefront answered the request but carried no usable
// record for the item (success=false or item omitted). Not retryable.
var ErrNoData = errors.New("storefront returned no data for item")

// StatusError is a non-success HTTP response from the storefront.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("storefront %s returned status %d", e.Endpoint, e.Code)
}

// IsThrottled reports whether err is a storefront throttling response.
// The upstream signals rate limiting with both 429 and, unusually, 403.
func IsThrottled(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusTooManyRequests || se.Code == http.StatusForbidden
}

package graphauth

import "net/url"

// Callback is the provider redirect payload handed over by the login layer.
type Callback struct {
	// Code is the single-use authorization code.
	Code string

	// State is the anti-CSRF state parameter echoed by the provider.
	State string
}

// ParseCallback extracts the authorization code and state from the provider's
// redirect query parameters. When the provider reports an error, its
// error_description is surfaced unmodified so the caller can render the
// provider's own diagnostics.
func ParseCallback(query url.Values) (*Callback, error) {
	if providerErr := query.Get("error"); providerErr != "" {
		description := query.Get("error_description")
		if description == "" {
			description = providerErr
		}
		return nil, &Error{
			Kind:        KindTokenExchangeFailed,
			Description: description,
		}
	}

	return &Callback{
		Code:  query.Get("code"),
		State: query.Get("state"),
	}, nil
}

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Profile contains the authenticated user's basic profile from the resource
// API, used to validate a freshly minted token.
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email returns the profile's email address, falling back to the principal
// name when mail is not set.
func (p *Profile) Email() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

// Me fetches the profile of the user the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	resp, err := c.do(ctx, accessToken, true, http.MethodGet,
		"/me?$select=id,displayName,mail,userPrincipalName", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request failed with status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.Unmarshal(resp.Body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// ValidateToken implements graphauth.ProfileValidator: a best-effort
// "who am I" call proving the token is honored by the resource API.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) error {
	_, err := c.Me(ctx, accessToken)
	return err
}

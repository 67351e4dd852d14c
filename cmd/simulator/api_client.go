package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient handles HTTP communication with the identity service
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

type Token struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	TokenType string `json:"token_type"`
}

type AuthResponse struct {
	User    User   `json:"user"`
	Token   Token  `json:"token"`
	Message string `json:"message"`
}

type UserResponse struct {
	User    User   `json:"user"`
	Message string `json:"message"`
}

type UsersListResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

// StatusError carries the status of a non-2xx response so callers can count
// expected rejections such as 409.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// Register creates a new user account
func (c *APIClient) Register(email, name, password string) (*AuthResponse, error) {
	body := map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/auth/register", body, "", http.StatusCreated, &result); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &result, nil
}

// Login exchanges credentials for a token
func (c *APIClient) Login(email, password string) (*AuthResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/auth/login", body, "", http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &result, nil
}

// Me fetches the caller's own record
func (c *APIClient) Me(token string) (*User, error) {
	var result UserResponse
	if err := c.do(http.MethodGet, "/auth/me", nil, token, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return &result.User, nil
}

// UpdateEmail moves a user to a new email
func (c *APIClient) UpdateEmail(token, userID, email string) (*User, error) {
	body := map[string]string{"email": email}

	var result UserResponse
	if err := c.do(http.MethodPatch, "/users/"+userID, body, token, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("update email: %w", err)
	}
	return &result.User, nil
}

// ForgotPassword requests a reset token; the token itself only appears in
// the server log.
func (c *APIClient) ForgotPassword(email string) error {
	body := map[string]string{"email": email}
	if err := c.do(http.MethodPost, "/auth/forgot-password", body, "", http.StatusOK, nil); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// ResetPassword spends a reset token
func (c *APIClient) ResetPassword(token, newPassword string) error {
	body := map[string]string{
		"token":        token,
		"new_password": newPassword,
	}
	if err := c.do(http.MethodPost, "/auth/reset-password", body, "", http.StatusOK, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// ListUsers lists every user; requires an admin token
func (c *APIClient) ListUsers(token string) ([]User, error) {
	var result UsersListResponse
	if err := c.do(http.MethodGet, "/users", nil, token, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return result.Users, nil
}

func (c *APIClient) do(method, path string, body interface{}, token string, want int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &StatusError{Status: resp.StatusCode, Body: string(bodyBytes)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

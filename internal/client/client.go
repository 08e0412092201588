// Package client provides a Go client for the Inkwell API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/inkwell-press/inkwell/internal/model"
)

// Client talks to an Inkwell server. After Login it carries the bearer
// token on every request.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Register creates a user account and returns its id.
func (c *Client) Register(email, passwd, username, displayName string) (int64, error) {
	var resp struct {
		UserID int64  `json:"userId"`
		Error  string `json:"error"`
	}
	err := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":       email,
		"password":    passwd,
		"username":    username,
		"displayName": displayName,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.UserID, nil
}

// Login exchanges credentials for a bearer token and remembers it.
func (c *Client) Login(email, passwd string) (model.Identity, error) {
	var resp struct {
		Token string         `json:"token"`
		User  model.Identity `json:"user"`
		Error string         `json:"error"`
	}
	err := c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": passwd,
	}, &resp)
	if err != nil {
		return model.Identity{}, err
	}
	c.Token = resp.Token
	return resp.User, nil
}

func (c *Client) Logout() error {
	if err := c.do(http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

func (c *Client) Me() (model.Identity, error) {
	var resp struct {
		User model.Identity `json:"user"`
	}
	err := c.do(http.MethodGet, "/api/auth/me", nil, &resp)
	return resp.User, err
}

// PostFields carries the body of a post creation request.
type PostFields struct {
	Title       string  `json:"title"`
	Slug        string  `json:"slug,omitempty"`
	Content     string  `json:"content"`
	Excerpt     string  `json:"excerpt,omitempty"`
	CoverImage  string  `json:"coverImage,omitempty"`
	Status      string  `json:"status,omitempty"`
	CategoryIDs []int64 `json:"categoryIds,omitempty"`
	TagIDs      []int64 `json:"tagIds,omitempty"`
}

func (c *Client) CreatePost(fields PostFields) (int64, error) {
	var resp struct {
		PostID int64 `json:"postId"`
	}
	err := c.do(http.MethodPost, "/api/posts", fields, &resp)
	return resp.PostID, err
}

// ListOpts narrows a post listing. Zero values use the server defaults.
type ListOpts struct {
	Page     int
	Limit    int
	Category string
	Tag      string
	Status   string
}

func (c *Client) ListPosts(opts ListOpts) ([]model.Post, model.Pagination, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Tag != "" {
		q.Set("tag", opts.Tag)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	path := "/api/posts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Posts      []model.Post     `json:"posts"`
		Pagination model.Pagination `json:"pagination"`
	}
	err := c.do(http.MethodGet, path, nil, &resp)
	return resp.Posts, resp.Pagination, err
}

func (c *Client) GetPost(id int64) (model.Post, error) {
	var resp struct {
		Post model.Post `json:"post"`
	}
	err := c.do(http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil, &resp)
	return resp.Post, err
}

// UpdatePost sends a partial update; only non-nil entries change.
func (c *Client) UpdatePost(id int64, fields map[string]any) error {
	return c.do(http.MethodPut, fmt.Sprintf("/api/posts/%d", id), fields, nil)
}

func (c *Client) DeletePost(id int64) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, nil)
}

func (c *Client) CreateComment(postID int64, content string, parentID *int64) (int64, error) {
	body := map[string]any{
		"postId":  postID,
		"content": content,
	}
	if parentID != nil {
		body["parentId"] = *parentID
	}
	var resp struct {
		CommentID int64 `json:"commentId"`
	}
	err := c.do(http.MethodPost, "/api/comments", body, &resp)
	return resp.CommentID, err
}

func (c *Client) Comments(postID int64) ([]model.Comment, error) {
	var resp struct {
		Comments []model.Comment `json:"comments"`
	}
	err := c.do(http.MethodGet, fmt.Sprintf("/api/comments?postId=%d", postID), nil, &resp)
	return resp.Comments, err
}

func (c *Client) DeleteComment(id int64) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", id), nil, nil)
}

func (c *Client) Categories() ([]model.Category, error) {
	var resp struct {
		Categories []model.Category `json:"categories"`
	}
	err := c.do(http.MethodGet, "/api/categories", nil, &resp)
	return resp.Categories, err
}

func (c *Client) Tags() ([]model.Tag, error) {
	var resp struct {
		Tags []model.Tag `json:"tags"`
	}
	err := c.do(http.MethodGet, "/api/tags", nil, &resp)
	return resp.Tags, err
}

func (c *Client) Search(query string) ([]model.Post, error) {
	var resp struct {
		Results []model.Post `json:"results"`
	}
	err := c.do(http.MethodGet, "/api/search?q="+url.QueryEscape(query), nil, &resp)
	return resp.Results, err
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(method, path string, body, dest any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: "request failed"}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// StatusCode extracts the HTTP status behind err, or 0 when err is not an
// APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

package azdevops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
	"github.com/yaegashi/resourceprovisioner/internal/naming"
)

const (
	typeKeyPullRequestExists = "GitPullRequestExistsException"
	mergeCommitMessage       = "Auto-merged by ResourceProvisioner"

	DefaultAPIVersion  = "7.1"
	DefaultMaxAttempts = 5
	DefaultDelay       = time.Second
)

// BranchTipper resolves the commit a completed pull request must merge.
type BranchTipper interface {
	BranchTip(ctx context.Context, acronym string) (string, error)
}

// AttemptRecorder observes each auto-approve attempt. result is one of
// "completed", "incomplete" or "failed".
type AttemptRecorder interface {
	ObserveAutoApproveAttempt(acronym, result string)
}

// Config configures a Client.
type Config struct {
	// PullRequestURL is the REST collection, e.g.
	// https://dev.azure.com/org/project/_apis/git/repositories/infra/pullrequests
	PullRequestURL string
	// BrowserURL prefixes the pull request id in returned links.
	BrowserURL  string
	APIVersion  string
	MainBranch  string
	MaxAttempts int
	Delay       time.Duration
	Credentials model.TokenProvider
	HTTPClient  *http.Client
	Attempts    AttemptRecorder
}

// Client implements model.ReviewRequestPort against the Azure DevOps pull
// request API.
type Client struct {
	cfg  Config
	tips BranchTipper
}

// New returns a Client. tips supplies the local branch tip for completion.
func New(cfg Config, tips BranchTipper) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.MainBranch == "" {
		cfg.MainBranch = "main"
	}
	if cfg.BrowserURL == "" {
		cfg.BrowserURL = cfg.PullRequestURL
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Delay < 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{cfg: cfg, tips: tips}
}

type pullRequest struct {
	PullRequestID int             `json:"pullRequestId,omitempty"`
	SourceRefName string          `json:"sourceRefName,omitempty"`
	Status        string          `json:"status,omitempty"`
	ClosedBy      json.RawMessage `json:"closedBy,omitempty"`
	TypeKey       string          `json:"typeKey,omitempty"`
	Message       string          `json:"message,omitempty"`
}

type pullRequestList struct {
	Value []pullRequest `json:"value"`
	Count int           `json:"count"`
}

type createBody struct {
	SourceRefName string `json:"sourceRefName"`
	TargetRefName string `json:"targetRefName"`
	Title         string `json:"title"`
	Description   string `json:"description"`
}

type commitRef struct {
	CommitID string `json:"commitId"`
}

type completionOptions struct {
	DeleteSourceBranch bool   `json:"deleteSourceBranch"`
	MergeCommitMessage string `json:"mergeCommitMessage"`
}

type completeBody struct {
	Status                string            `json:"status"`
	LastMergeSourceCommit commitRef         `json:"lastMergeSourceCommit"`
	CompletionOptions     completionOptions `json:"completionOptions"`
}

// CreateOrReuse opens a pull request from the workspace branch into the main
// branch, or returns the active one when it already exists.
func (c *Client) CreateOrReuse(ctx context.Context, acronym, user string) (rr *model.ReviewRequest, err error) {
	ctx, end := logging.Span(ctx, "ADO", "CreateOrReuse", "workspace", acronym)
	defer func() { end(err) }()
	logger := logging.FromContext(ctx)

	title := fmt.Sprintf("[%s] Infrastructure changes", acronym)
	body := createBody{
		SourceRefName: naming.BranchRef(acronym),
		TargetRefName: naming.BranchRef(c.cfg.MainBranch),
		Title:         title,
		Description:   title,
	}
	logger.Info(ctx, "creating pull request", "user", user, "source", body.SourceRefName, "target", body.TargetRefName)

	var created pullRequest
	if _, err := c.do(ctx, http.MethodPost, c.collectionURL(nil), body, &created); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrReviewRequestCreationFailed, err)
	}

	id := created.PullRequestID
	switch {
	case id > 0:
	case created.TypeKey == typeKeyPullRequestExists:
		logger.Info(ctx, "pull request already exists, fetching its id")
		if id, err = c.findActive(ctx, acronym); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrReviewRequestCreationFailed, err)
		}
	default:
		return nil, fmt.Errorf("%w: could not get pull request id for %s: %s", model.ErrReviewRequestCreationFailed, acronym, created.Message)
	}

	rr = &model.ReviewRequest{
		WorkspaceAcronym: acronym,
		URL:              strings.TrimSuffix(c.cfg.BrowserURL, "/") + "/" + strconv.Itoa(id),
		ID:               id,
	}
	logger.Info(ctx, "pull request ready", "id", id, "url", rr.URL)
	return rr, nil
}

func (c *Client) findActive(ctx context.Context, acronym string) (int, error) {
	ref := naming.BranchRef(acronym)
	q := url.Values{}
	q.Set("searchCriteria.status", "active")
	q.Set("searchCriteria.sourceRefName", ref)
	var list pullRequestList
	if _, err := c.do(ctx, http.MethodGet, c.collectionURL(q), nil, &list); err != nil {
		return 0, err
	}
	for _, pr := range list.Value {
		if pr.SourceRefName == ref && pr.PullRequestID > 0 {
			return pr.PullRequestID, nil
		}
	}
	return 0, fmt.Errorf("could not get existing pull request id for workspace %s", acronym)
}

// AutoApprove completes pull request id at the current workspace branch tip.
// A response without closedBy is retried with a constant delay up to
// MaxAttempts attempts in total; a non-2xx response is not retried.
func (c *Client) AutoApprove(ctx context.Context, id int, acronym string) (err error) {
	ctx, end := logging.Span(ctx, "ADO", "AutoApprove", "workspace", acronym, "pullRequest", id)
	defer func() { end(err) }()
	logger := logging.FromContext(ctx)

	tip, err := c.tips.BranchTip(ctx, acronym)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrAutoApproveFailed, err)
	}
	body := completeBody{
		Status:                "completed",
		LastMergeSourceCommit: commitRef{CommitID: tip},
		CompletionOptions: completionOptions{
			DeleteSourceBranch: false,
			MergeCommitMessage: mergeCommitMessage,
		},
	}
	target := c.itemURL(id)

	attempt := 0
	operation := func() error {
		attempt++
		logger.Info(ctx, "completing pull request", "attempt", attempt, "commit", tip)
		var pr pullRequest
		status, err := c.do(ctx, http.MethodPatch, target, body, &pr)
		if err != nil {
			c.observe(acronym, "failed")
			if status == 0 && ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return backoff.Permanent(fmt.Errorf("%w: pull request %d: %w", model.ErrAutoApproveFailed, id, err))
		}
		if len(pr.ClosedBy) == 0 || string(pr.ClosedBy) == "null" {
			c.observe(acronym, "incomplete")
			return fmt.Errorf("%w: pull request %d was not closed", model.ErrAutoApproveIncomplete, id)
		}
		c.observe(acronym, "completed")
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.Delay), uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		logger.Warn(ctx, "auto-approve pull request incomplete, retrying", "attempt", attempt, "next", next, "err", err)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return err
	}
	logger.Info(ctx, "pull request completed", "attempts", attempt)
	return nil
}

func (c *Client) observe(acronym, result string) {
	if c.cfg.Attempts != nil {
		c.cfg.Attempts.ObserveAutoApproveAttempt(acronym, result)
	}
}

func (c *Client) collectionURL(q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api-version", c.cfg.APIVersion)
	return c.cfg.PullRequestURL + "?" + q.Encode()
}

func (c *Client) itemURL(id int) string {
	return fmt.Sprintf("%s/%d?api-version=%s", strings.TrimSuffix(c.cfg.PullRequestURL, "/"), id, url.QueryEscape(c.cfg.APIVersion))
}

// do sends a JSON request and decodes the JSON response into out. Non-2xx
// responses are decoded too (Azure DevOps reports typeKey in error bodies)
// but POST is the only caller that tolerates them.
func (c *Client) do(ctx context.Context, method, target string, in, out any) (int, error) {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Credentials != nil {
		token, err := c.cfg.Credentials.AccessToken(ctx)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, err
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && method != http.MethodPost {
		return resp.StatusCode, &StatusError{Method: method, StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if ok {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, &StatusError{Method: method, StatusCode: resp.StatusCode}
	}
	if err := json.Unmarshal(data, out); err != nil {
		if !ok {
			return resp.StatusCode, &StatusError{Method: method, StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
		}
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", method, err)
	}
	return resp.StatusCode, nil
}

// StatusError is a non-2xx response from the review API.
type StatusError struct {
	Method     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Method, e.StatusCode, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsStatus reports whether err carries a review API response with code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

var _ model.ReviewRequestPort = (*Client)(nil)

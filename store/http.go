package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/jobs"
)

// HTTPAdapter talks to the platform's job/contractor API. Transport failures
// and 5xx responses surface as ErrStoreUnavailable so the engine skips the
// tick; a 409 on assignment surfaces as ErrVersionConflict.
//
// The client carries no global timeout: OfferJob long-polls for the offer
// window and is bounded by its context deadline instead.
type HTTPAdapter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAdapter creates an adapter for the platform API at baseURL.
func NewHTTPAdapter(baseURL string) *HTTPAdapter {
	return &HTTPAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (a *HTTPAdapter) ListOpenJobs(ctx context.Context) ([]*jobs.Job, error) {
	var list []*jobs.Job
	if err := a.do(ctx, http.MethodGet, "/jobs?status=open", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (a *HTTPAdapter) GetCandidates(ctx context.Context, jobID string) ([]*jobs.ContractorCandidate, error) {
	var list []*jobs.ContractorCandidate
	path := fmt.Sprintf("/jobs/%s/candidates", jobID)
	if err := a.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (a *HTTPAdapter) OfferJob(ctx context.Context, jobID, contractorID string, expiresAt time.Time) (jobs.OfferStatus, error) {
	body := map[string]interface{}{
		"contractor_id": contractorID,
		"expires_at":    expiresAt.UTC().Format(time.RFC3339),
	}
	var resp struct {
		Status jobs.OfferStatus `json:"status"`
	}
	path := fmt.Sprintf("/jobs/%s/offers", jobID)
	if err := a.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return jobs.OfferPending, err
	}
	return resp.Status, nil
}

func (a *HTTPAdapter) RecordRejection(ctx context.Context, jobID, contractorID string) error {
	body := map[string]string{"contractor_id": contractorID}
	return a.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%s/rejections", jobID), body, nil)
}

func (a *HTTPAdapter) AssignJob(ctx context.Context, jobID, contractorID string, expectedVersion int64) error {
	body := map[string]interface{}{
		"contractor_id":    contractorID,
		"expected_version": expectedVersion,
	}
	return a.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%s/assignment", jobID), body, nil)
}

func (a *HTTPAdapter) EscalateManually(ctx context.Context, jobID string) error {
	return a.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%s/escalation", jobID), nil, nil)
}

// do executes one API request and decodes the response into out (when
// non-nil), mapping status codes onto the adapter error contract.
func (a *HTTPAdapter) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errors.Wrapf(errors.ErrStoreUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return errors.Wrapf(errors.ErrVersionConflict, "%s %s", method, path)
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(errors.ErrNotFound, "%s %s", method, path)
	case resp.StatusCode >= 500:
		return errors.Wrapf(errors.ErrStoreUnavailable, "%s %s returned %d", method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("%s %s returned %d: %s", method, path, resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "failed to decode response from %s %s", method, path)
		}
	}
	return nil
}

var _ Adapter = (*HTTPAdapter)(nil)

package bookalope

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// execute performs one authenticated request and classifies the outcome.
// Bodies are decoded by the callers; execute only guarantees that a returned
// response carries a success status.
func (c *Client) execute(ctx context.Context, method, path string, query map[string]string, body any) (*resty.Response, error) {
	if !IsToken(c.token) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedToken, c.token)
	}

	req := c.restyClient.R().
		SetContext(ctx).
		SetBasicAuth(c.token, "")

	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, &APIError{Kind: KindConnection, Message: "unable to connect to server", err: err}
	}

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// classifyStatus maps a response status onto the error taxonomy. 2xx is
// success; 1xx and 3xx never happen on purpose and are surfaced as
// unexpected; 4xx carries a structured error body when the server managed to
// produce one.
func classifyStatus(resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return nil
	case code < http.StatusBadRequest:
		return &APIError{
			Kind:       KindUnexpected,
			StatusCode: code,
			Message:    fmt.Sprintf("unexpected server response: %s", resp.Status()),
		}
	case code < http.StatusInternalServerError:
		return &APIError{
			Kind:       KindClient,
			StatusCode: code,
			Message:    clientErrorMessage(resp.Body(), resp.Status()),
		}
	default:
		return &APIError{
			Kind:       KindServer,
			StatusCode: code,
			Message:    fmt.Sprintf("server error: %s", resp.Status()),
		}
	}
}

// clientErrorMessage extracts the description from a structured
// {"errors":[{"description":...}]} body. A failed authorization is known to
// come back as HTML, in which case the status line is all there is.
func clientErrorMessage(body []byte, status string) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		if desc := payload.Errors[0].Description; desc != "" {
			return desc
		}
	}
	return status
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := c.execute(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp.Body(), out)
}

// getBinary downloads a binary payload such as a converted document or an
// image blob.
func (c *Client) getBinary(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	resp, err := c.execute(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if body == nil {
		body = map[string]string{}
	}
	resp, err := c.execute(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return decodeJSON(resp.Body(), out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	_, err := c.execute(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// decodeJSON unmarshals a success body into out, failing fast with a
// malformed-response error instead of letting a bad shape surface later as a
// missing field.
func decodeJSON(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{
			Kind:    KindMalformed,
			Message: "malformed data returned from bookalope",
			err:     err,
		}
	}
	return nil
}

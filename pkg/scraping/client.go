package scraping

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ZinoKader/reqcheck/model"
)

const userAgent = "reqcheck (+https://github.com/ZinoKader/reqcheck)"

type Client struct {
	HTTP      *http.Client
	UserAgent string
	// Token is sent as a bearer token when set; only used for the GitHub API.
	Token string
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTP: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
	}
}

func (c *Client) CreateRequest(ctx context.Context, URL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	return req, nil
}

// fetch returns the body of a 200 response. A 404, or the 422 GitHub
// answers for a malformed commit, is reported as found == false.
// Transport failures and other statuses are *model.ConnectionError.
func (c *Client) fetch(req *http.Request) (body []byte, found bool, err error) {
	URL := req.URL.String()
	response, err := c.HTTP.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		return nil, false, &model.ConnectionError{URL: URL, Err: err}
	}
	defer response.Body.Close()

	log.WithFields(log.Fields{"url": URL, "status": response.StatusCode}).Debug("fetched")

	switch {
	case response.StatusCode == http.StatusNotFound, response.StatusCode == http.StatusUnprocessableEntity:
		return nil, false, nil
	case response.StatusCode != http.StatusOK:
		return nil, false, &model.ConnectionError{URL: URL, Err: fmt.Errorf("unexpected status %s", response.Status)}
	}

	body, err = ioutil.ReadAll(response.Body)
	if err != nil {
		return nil, false, &model.ConnectionError{URL: URL, Err: err}
	}
	return body, true, nil
}

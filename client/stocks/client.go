package stocks

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-http-utils/headers"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"bitbucket.org/novatechnologies/stocks/domain"
)

const (
	uriPathStock   = "/stocks/{ticker}"
	uriPathPopular = "/popular-stocks"
	uriPathSum     = "/sum-stocks"
	uriPathState   = "/stocks-state"
)

// Client is a typed client of the stocks HTTP API.
type Client interface {
	GetPrice(ctx context.Context, ticker string) (domain.Quote, error)
	Popular(ctx context.Context) ([]string, error)
	Sum(ctx context.Context) (int64, error)
	States(ctx context.Context) (map[string]domain.InstrumentState, error)
}

type Config struct {
	ServerURL        string
	Timeout          *time.Duration
	RetryCount       *int
	RetryWaitTime    *time.Duration
	RetryMaxWaitTime *time.Duration
}

type client struct {
	cli *resty.Client
}

func New(config Config) (Client, error) {
	parsedServerURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse server url")
	}
	if parsedServerURL.Scheme == "" || parsedServerURL.Host == "" {
		return nil, errors.Errorf("server url %q must be absolute", config.ServerURL)
	}

	cli := resty.New()
	cli.SetBaseURL(parsedServerURL.Scheme + "://" + parsedServerURL.Host + parsedServerURL.Path)
	cli.SetHeader(headers.Accept, "application/json")
	if config.Timeout != nil {
		cli.SetTimeout(*config.Timeout)
	}
	if config.RetryCount != nil {
		cli.SetRetryCount(*config.RetryCount)
		// only transient failures of the service are worth another attempt
		cli.AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusServiceUnavailable
		})
	}
	if config.RetryWaitTime != nil {
		cli.SetRetryWaitTime(*config.RetryWaitTime)
	}
	if config.RetryMaxWaitTime != nil {
		cli.SetRetryMaxWaitTime(*config.RetryMaxWaitTime)
	}

	return &client{cli: cli}, nil
}

func (c *client) GetPrice(ctx context.Context, ticker string) (domain.Quote, error) {
	var quote domain.Quote
	resp, err := c.cli.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetResult(&quote).
		Get(uriPathStock)
	if err := checkResponse(resp, err, "GetPrice"); err != nil {
		return domain.Quote{}, err
	}
	return quote, nil
}

func (c *client) Popular(ctx context.Context) ([]string, error) {
	var popular []string
	resp, err := c.cli.R().
		SetContext(ctx).
		SetResult(&popular).
		Get(uriPathPopular)
	if err := checkResponse(resp, err, "Popular"); err != nil {
		return nil, err
	}
	return popular, nil
}

func (c *client) Sum(ctx context.Context) (int64, error) {
	var sum struct {
		Sum int64 `json:"sum"`
	}
	resp, err := c.cli.R().
		SetContext(ctx).
		SetResult(&sum).
		Get(uriPathSum)
	if err := checkResponse(resp, err, "Sum"); err != nil {
		return 0, err
	}
	return sum.Sum, nil
}

func (c *client) States(ctx context.Context) (map[string]domain.InstrumentState, error) {
	states := map[string]domain.InstrumentState{}
	resp, err := c.cli.R().
		SetContext(ctx).
		SetResult(&states).
		Get(uriPathState)
	if err := checkResponse(resp, err, "States"); err != nil {
		return nil, err
	}
	return states, nil
}

// checkResponse maps transport failures and status codes back onto the
// domain errors the service started from.
func checkResponse(resp *resty.Response, err error, op string) error {
	if err != nil {
		return errors.Wrapf(err, "can't do %s request", op)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return errors.Wrap(domain.ErrNotFound, resp.Request.URL)
	case http.StatusServiceUnavailable:
		return errors.Wrap(domain.ErrCancelled, resp.Request.URL)
	default:
		return errors.Errorf("%s: unexpected status %s", op, resp.Status())
	}
}

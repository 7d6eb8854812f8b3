package messenger

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mejooo/fb_messenger/pkg/metrics"
)

const (
	DefaultGraphURL     = "https://graph.facebook.com"
	DefaultGraphVersion = "v2.6"
	DefaultGraphTimeout = 10 * time.Second
)

// DefaultProfileFields are requested by UserProfile when GraphConfig.ProfileFields is empty.
var DefaultProfileFields = []string{"first_name", "last_name", "profile_pic", "locale", "timezone", "gender"}

// Doer performs one HTTP exchange. *fasthttp.Client satisfies it.
type Doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

type GraphConfig struct {
	BaseURL       string
	Version       string
	Timeout       time.Duration
	ProfileFields []string
}

// GraphClient talks to the two Graph API endpoints the webhook flow needs:
// the user profile lookup and the Send API.
type GraphClient struct {
	base    string
	fields  string
	timeout time.Duration
	doer    Doer
	log     *logrus.Logger
}

// DefaultGraph is used by Events parsed without WithGraph.
var DefaultGraph = NewGraphClient(GraphConfig{}, nil, nil)

func NewGraphClient(cfg GraphConfig, doer Doer, log *logrus.Logger) *GraphClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGraphURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultGraphVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGraphTimeout
	}
	if len(cfg.ProfileFields) == 0 {
		cfg.ProfileFields = DefaultProfileFields
	}
	if doer == nil {
		doer = &fasthttp.Client{Name: "fb_messenger"}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GraphClient{
		base:    strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.Version, "/"),
		fields:  strings.Join(cfg.ProfileFields, ","),
		timeout: cfg.Timeout,
		doer:    doer,
		log:     log,
	}
}

// UserProfile returns the profile of psid as decoded JSON.
func (g *GraphClient) UserProfile(ctx context.Context, psid, pageToken string) (map[string]any, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(g.base + "/" + url.PathEscape(psid))
	q := req.URI().QueryArgs()
	q.Add("fields", g.fields)
	q.Add("access_token", pageToken)

	body, err := g.do(ctx, "user_profile", req)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("messenger: decode user profile: %w", err)
	}
	return out, nil
}

// SendMessage posts {"recipient":{"id":psid},"message":msg} to /me/messages.
func (g *GraphClient) SendMessage(ctx context.Context, psid, pageToken string, msg any) error {
	m, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("messenger: encode message: %w", err)
	}
	payload, err := sjson.SetBytes([]byte(`{}`), "recipient.id", psid)
	if err != nil {
		return fmt.Errorf("messenger: build send request: %w", err)
	}
	if payload, err = sjson.SetRawBytes(payload, "message", m); err != nil {
		return fmt.Errorf("messenger: build send request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetRequestURI(g.base + "/me/messages")
	req.URI().QueryArgs().Add("access_token", pageToken)
	req.SetBodyRaw(payload)

	_, err = g.do(ctx, "send_message", req)
	return err
}

func (g *GraphClient) do(ctx context.Context, endpoint string, req *fasthttp.Request) ([]byte, error) {
	_, span := otel.Tracer("messenger").Start(ctx, "graph."+endpoint)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", string(req.Header.Method())))

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	start := time.Now()
	err := g.doer.DoTimeout(req, resp, g.timeout)
	metrics.GraphLatencyMS.WithLabelValues(endpoint).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.GraphRequests.WithLabelValues(endpoint, "transport_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.log.WithError(err).WithField("endpoint", endpoint).Warn("graph request failed")
		return nil, fmt.Errorf("messenger: graph %s: %w", endpoint, err)
	}

	status := resp.StatusCode()
	body := append([]byte(nil), resp.Body()...)
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status/100 != 2 {
		metrics.GraphRequests.WithLabelValues(endpoint, "status_error").Inc()
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		g.log.WithFields(logrus.Fields{"endpoint": endpoint, "status": status}).Warn("graph request rejected")
		return nil, &GraphError{Endpoint: endpoint, Status: status, Body: body}
	}
	metrics.GraphRequests.WithLabelValues(endpoint, "ok").Inc()
	return body, nil
}

package infopoint

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"infopoint-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/infopoint")

const (
	loginPath = "default.php"
	dataPath  = "getdata.php"

	// the portal rejects sessions whose requests don't identify as a
	// browser, this exact value is confirmed against the live portal
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateExpired
)

func (s SessionState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	username string
	password string

	// guards state transitions so concurrent expiry detections
	// cannot trigger redundant re-logins
	mu            sync.Mutex
	state         SessionState
	establishedAt time.Time
}

type ClientOptions struct {
	BaseUrl  string
	Username string
	Password string
	// defaults to 30s, network calls never hang unbounded
	Timeout time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	base := opts.BaseUrl
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseUrl, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if baseUrl.Scheme != "http" && baseUrl.Scheme != "https" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url is not well-formed: %s", opts.BaseUrl)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}

	client := resty.New()
	client.SetBaseURL(base)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "scrapers/infopoint/http")

	return &Client{
		BaseUrl:  baseUrl,
		Http:     client,
		username: opts.Username,
		password: opts.Password,
	}, nil
}

func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EstablishedAt reports when the current session was logged in, zero
// when there is none.
func (c *Client) EstablishedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAuthenticated {
		return time.Time{}
	}
	return c.establishedAt
}

// the portal marks a logged-in page with its logout button
func isLoggedInPage(body []byte) bool {
	return bytes.Contains(body, []byte("Abmelden")) || bytes.Contains(body, []byte("Logout"))
}

// Login performs the form handshake against default.php: fetch the
// login form, fill the username/password inputs by name heuristics,
// submit to the form action. Callers must hold c.mu.
func (c *Client) login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(loginPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		c.state = StateUnauthenticated
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page")
		c.state = StateUnauthenticated
		return err
	}

	form := doc.Find("form").First()
	if form.Length() == 0 {
		span.SetStatus(codes.Error, "could not find login form")
		c.state = StateUnauthenticated
		return fmt.Errorf("could not find login form")
	}

	postUrl := c.resolveFormAction(form.AttrOr("action", ""))
	values := c.fillLoginForm(form)

	res, err = c.Http.R().
		SetContext(ctx).
		SetBody(values.Encode()).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("Referer", c.BaseUrl.JoinPath(loginPath).String()).
		Post(postUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post login request")
		c.state = StateUnauthenticated
		return err
	}

	if isLoggedInPage(res.Body()) {
		c.state = StateAuthenticated
		c.establishedAt = time.Now()
		return nil
	}

	body := strings.ToLower(string(res.Body()))
	finalUrl := res.RawResponse.Request.URL.Query()
	if strings.Contains(body, "fehler") ||
		strings.Contains(body, "falsch") ||
		strings.Contains(body, "nicht erfolgreich") ||
		finalUrl.Get("err") != "" ||
		finalUrl.Get("error") != "" {
		span.SetStatus(codes.Error, InvalidCredentials.Error())
		c.state = StateUnauthenticated
		return InvalidCredentials
	}

	// no explicit verdict on the post response, probe the landing page
	loggedIn, err := c.checkLoggedIn(ctx)
	if err != nil {
		c.state = StateUnauthenticated
		return err
	}
	if !loggedIn {
		span.SetStatus(codes.Error, InvalidCredentials.Error())
		c.state = StateUnauthenticated
		return InvalidCredentials
	}

	c.state = StateAuthenticated
	c.establishedAt = time.Now()
	return nil
}

// resolveFormAction resolves the scraped form action against the base
// url. Root-absolute actions keep their own path even when the portal
// lives under a subpath.
func (c *Client) resolveFormAction(action string) string {
	if action == "" {
		return c.BaseUrl.JoinPath(loginPath).String()
	}
	ref, err := url.Parse(action)
	if err != nil {
		return c.BaseUrl.JoinPath(loginPath).String()
	}
	return c.BaseUrl.ResolveReference(ref).String()
}

// fillLoginForm carries over every input of the scraped form, swapping
// the credential fields in by name heuristics and keeping submit
// button values so the server sees the form it rendered.
func (c *Client) fillLoginForm(form *goquery.Selection) url.Values {
	values := url.Values{}
	sawUser := false
	sawPass := false

	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		inputType := strings.ToLower(input.AttrOr("type", ""))
		value := input.AttrOr("value", "")
		lower := strings.ToLower(name)

		switch {
		case inputType == "submit":
			values.Set(name, value)
		case (strings.Contains(lower, "user") || strings.Contains(lower, "login")) &&
			!strings.Contains(lower, "pass"):
			values.Set(name, c.username)
			sawUser = true
		case strings.Contains(lower, "pass"):
			values.Set(name, c.password)
			sawPass = true
		default:
			values.Set(name, value)
		}
	})

	// fallbacks in case the heuristics matched nothing
	if !sawUser {
		values.Set("username", c.username)
	}
	if !sawPass {
		values.Set("password", c.password)
	}
	if values.Get("login") == "" {
		values.Set("login", "Anmelden")
	}
	return values
}

func (c *Client) checkLoggedIn(ctx context.Context) (bool, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(loginPath)
	if err != nil {
		return false, err
	}
	return isLoggedInPage(res.Body()), nil
}

// EnsureAuthenticated is idempotent and safe to call before every
// fetch. It logs in when there is no session and retries the login
// exactly once when an established session turns out to be expired,
// never more.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:EnsureAuthenticated")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateAuthenticated:
		loggedIn, err := c.checkLoggedIn(ctx)
		if err != nil {
			return err
		}
		if loggedIn {
			return nil
		}
		c.state = StateExpired
		fallthrough
	case StateExpired:
		err := c.login(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "re-login after expiry failed")
			return fmt.Errorf("re-login after expiry: %w", err)
		}
		return nil
	default:
		return c.login(ctx)
	}
}

// markExpired transitions an authenticated session to expired, used
// when a data fetch comes back as a logged-out page.
func (c *Client) markExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAuthenticated {
		c.state = StateExpired
	}
}

// relogin performs the single silent re-login a fetch cycle is allowed.
func (c *Client) relogin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.login(ctx)
}

// Logout drops the session client-side.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateUnauthenticated
	c.establishedAt = time.Time{}
	jar, err := cookiejar.New(nil)
	if err == nil {
		c.Http.SetCookieJar(jar)
	}
}

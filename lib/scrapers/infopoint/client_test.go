package infopoint

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"infopoint-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

// fakePortal mimics the stateful login flow of the live portal: a
// form on default.php, a session cookie, a logout marker on every
// authenticated page and getdata.php serving the dashboard.
type fakePortal struct {
	t        *testing.T
	username string
	password string

	mu            sync.Mutex
	loginAttempts int
	rejectLogins  bool
	expireOnce    bool
	sessions      map[string]bool
	nextSession   int
}

func newFakePortal(t *testing.T) *fakePortal {
	return &fakePortal{
		t:        t,
		username: "student",
		password: "geheim",
		sessions: map[string]bool{},
	}
}

const loginFormPage = `<html><body>
<form action="login.php" method="post">
	<input type="text" name="user" value="">
	<input type="password" name="pass" value="">
	<input type="hidden" name="token" value="abc123">
	<input type="submit" name="login" value="Anmelden">
</form>
</body></html>`

func (p *fakePortal) loggedIn(r *http.Request) bool {
	cookie, err := r.Cookie("PHPSESSID")
	if err != nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[cookie.Value]
}

func (p *fakePortal) dropSessions() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = map[string]bool{}
}

func (p *fakePortal) setRejectLogins(reject bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectLogins = reject
}

// expire the current session the next time getdata.php is hit
func (p *fakePortal) setExpireOnce() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expireOnce = true
}

func (p *fakePortal) attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginAttempts
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.UserAgent() == "" {
		// the live portal rejects clients without browser identification
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	switch r.URL.Path {
	case "/default.php":
		if p.loggedIn(r) {
			fmt.Fprint(w, `<html><body><a href="logout.php">Abmelden</a></body></html>`)
			return
		}
		fmt.Fprint(w, loginFormPage)

	case "/login.php":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// hidden inputs must be carried over from the rendered form
		require.Equal(p.t, "abc123", r.PostFormValue("token"))

		p.mu.Lock()
		p.loginAttempts++
		reject := p.rejectLogins
		p.mu.Unlock()

		if reject ||
			r.PostFormValue("user") != p.username ||
			r.PostFormValue("pass") != p.password {
			fmt.Fprint(w, `<html><body>Anmeldung nicht erfolgreich</body></html>`)
			return
		}

		p.mu.Lock()
		p.nextSession++
		session := fmt.Sprintf("session-%d", p.nextSession)
		p.sessions[session] = true
		p.mu.Unlock()

		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: session, Path: "/"})
		fmt.Fprint(w, `<html><body><a href="logout.php">Abmelden</a></body></html>`)

	case "/getdata.php":
		p.mu.Lock()
		expire := p.expireOnce
		p.expireOnce = false
		p.mu.Unlock()
		if expire {
			p.dropSessions()
		}

		if !p.loggedIn(r) {
			fmt.Fprint(w, loginFormPage)
			return
		}
		body, err := os.ReadFile("testdata/dashboard.html")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write(body)

	default:
		http.NotFound(w, r)
	}
}

func setupPortal(t *testing.T) (*fakePortal, *Client) {
	portal := newFakePortal(t)
	server := httptest.NewServer(portal)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		BaseUrl:  server.URL,
		Username: portal.username,
		Password: portal.password,
		Timeout:  time.Second * 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	return portal, client
}

func TestClientLogin(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	portal, client := setupPortal(t)
	ctx := context.Background()

	require.Equal(t, StateUnauthenticated, client.State())
	err := client.EnsureAuthenticated(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, StateAuthenticated, client.State())
	require.Equal(t, 1, portal.attempts())

	// idempotent, an intact session is reused
	err = client.EnsureAuthenticated(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, portal.attempts())
}

func TestClientLoginBadCredentials(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	portal := newFakePortal(t)
	server := httptest.NewServer(portal)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		BaseUrl:  server.URL,
		Username: "student",
		Password: "falsch",
		Timeout:  time.Second * 5,
	})
	if err != nil {
		t.Fatal(err)
	}

	err = client.EnsureAuthenticated(context.Background())
	require.ErrorIs(t, err, InvalidCredentials)
	require.Equal(t, StateUnauthenticated, client.State())
}

func TestResolveFormAction(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	client, err := NewClient(ClientOptions{
		BaseUrl:  "https://school.example/portal",
		Username: "a",
		Password: "b",
	})
	if err != nil {
		t.Fatal(err)
	}

	// relative actions resolve under the portal subpath,
	// root-absolute ones do not get re-rooted beneath it
	require.Equal(t, "https://school.example/portal/login.php", client.resolveFormAction("login.php"))
	require.Equal(t, "https://school.example/login.php", client.resolveFormAction("/login.php"))
	require.Equal(t, "https://school.example/portal/default.php", client.resolveFormAction(""))
	require.Equal(t, "https://other.example/login.php", client.resolveFormAction("https://other.example/login.php"))
}

func TestClientMalformedBaseUrl(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	_, err := NewClient(ClientOptions{BaseUrl: "not a url", Username: "a", Password: "b"})
	require.Error(t, err)
}

func TestClientFetchSnapshot(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	_, client := setupPortal(t)

	snapshot, err := client.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, snapshot.Subjects, 2)
	require.Equal(t, 5, snapshot.Absences.TotalDays)
	require.False(t, snapshot.FetchedAt.IsZero())
}

func TestClientReloginAfterExpiry(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	portal, client := setupPortal(t)
	ctx := context.Background()

	err := client.EnsureAuthenticated(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, portal.attempts())

	// the session dies between the auth probe and the data fetch,
	// the cycle must re-login exactly once and still succeed
	portal.setExpireOnce()
	snapshot, err := client.FetchSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, portal.attempts())
	require.Len(t, snapshot.Subjects, 2)
	require.Equal(t, StateAuthenticated, client.State())
}

func TestClientReloginFailure(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	portal, client := setupPortal(t)
	ctx := context.Background()

	err := client.EnsureAuthenticated(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, portal.attempts())

	portal.dropSessions()
	portal.setRejectLogins(true)

	_, err = client.FetchSnapshot(ctx)
	require.ErrorIs(t, err, InvalidCredentials)
	// exactly one re-login attempt per cycle, no retry loop
	require.Equal(t, 2, portal.attempts())
}

func TestClientLogout(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	_, client := setupPortal(t)
	ctx := context.Background()

	err := client.EnsureAuthenticated(ctx)
	if err != nil {
		t.Fatal(err)
	}
	client.Logout()
	require.Equal(t, StateUnauthenticated, client.State())
	require.True(t, client.EstablishedAt().IsZero())
}

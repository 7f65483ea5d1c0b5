package infopoint

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"infopoint-backend/lib/gradestore"
	"infopoint-backend/lib/restyutil"
	scraper "infopoint-backend/lib/scrapers/infopoint"
	"infopoint-backend/lib/timezone"
	"infopoint-backend/services/infopoint/db"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/infopoint")

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// recipient of grade-change notifications, notifications are
	// disabled when empty
	NotifyAddress string `json:"notify_address"`
}

type Options struct {
	Smtp SmtpConfig
	// wall-clock time of the daily scheduled refresh
	RefreshHour   int
	RefreshMinute int
	// bounded timeout for every portal request, defaults to 30s
	FetchTimeout time.Duration
}

type Account struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	BaseUrl   string    `json:"base_url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// accountRuntime holds the session client and the atomically published
// snapshot of one account. refreshMu serializes refresh cycles so two
// concurrent expiry detections cannot both re-login.
type accountRuntime struct {
	account Account
	client  *scraper.Client

	refreshMu sync.Mutex
	snapshot  atomic.Pointer[scraper.Snapshot]

	statusMu    sync.Mutex
	lastSuccess time.Time
	lastError   string
	lastErrorAt time.Time
}

type Service struct {
	db      *sql.DB
	qry     *db.Queries
	store   gradestore.Store
	options Options

	mu       sync.Mutex
	accounts map[string]*accountRuntime
}

func NewService(ctx context.Context, database *sql.DB, store gradestore.Store, options Options) (*Service, error) {
	if options.FetchTimeout == 0 {
		options.FetchTimeout = time.Second * 30
	}

	s := &Service{
		db:       database,
		qry:      db.New(database),
		store:    store,
		options:  options,
		accounts: map[string]*accountRuntime{},
	}
	err := s.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}

	go s.refreshDaemon(ctx)

	return s, nil
}

func (s *Service) newRuntime(row db.Account) (*accountRuntime, error) {
	client, err := scraper.NewClient(scraper.ClientOptions{
		BaseUrl:  row.BaseUrl,
		Username: row.Username,
		Password: row.Password,
		Timeout:  s.options.FetchTimeout,
	})
	if err != nil {
		return nil, err
	}
	restyutil.InstrumentClient(client.Http, restyInstrumentOutput)

	return &accountRuntime{
		account: Account{
			Id:        row.ID,
			Name:      row.Name,
			BaseUrl:   row.BaseUrl,
			Username:  row.Username,
			CreatedAt: time.Unix(row.CreatedAt, 0).In(timezone.Location),
		},
		client: client,
	}, nil
}

func (s *Service) loadAccounts(ctx context.Context) error {
	rows, err := s.qry.GetAllAccounts(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		runtime, err := s.newRuntime(row)
		if err != nil {
			slog.WarnContext(ctx, "skipping stored account", "account", row.ID, "err", err)
			continue
		}
		s.accounts[row.ID] = runtime
	}
	return nil
}

type RegisterAccountRequest struct {
	Name     string `json:"name"`
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterAccount validates the credentials with a real login before
// persisting them, bad credentials never make it into the database.
func (s *Service) RegisterAccount(ctx context.Context, req RegisterAccountRequest) (Account, error) {
	ctx, span := tracer.Start(ctx, "RegisterAccount")
	defer span.End()

	id, err := random.String(16)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate account id")
		return Account{}, err
	}
	span.SetAttributes(attribute.String("account", id))

	row := db.Account{
		ID:        id,
		Name:      req.Name,
		BaseUrl:   req.BaseUrl,
		Username:  req.Username,
		Password:  req.Password,
		CreatedAt: timezone.Now().Unix(),
	}
	runtime, err := s.newRuntime(row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create portal client")
		return Account{}, err
	}

	err = runtime.client.EnsureAuthenticated(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential validation failed")
		return Account{}, fmt.Errorf("credential validation: %w", err)
	}

	err = s.qry.CreateAccount(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist account")
		return Account{}, err
	}

	s.mu.Lock()
	s.accounts[id] = runtime
	s.mu.Unlock()

	return runtime.account, nil
}

func (s *Service) RemoveAccount(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "RemoveAccount")
	defer span.End()

	err := s.qry.DeleteAccount(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete account")
		return err
	}

	s.mu.Lock()
	delete(s.accounts, id)
	s.mu.Unlock()
	return nil
}

func (s *Service) Accounts() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Account, 0, len(s.accounts))
	for _, runtime := range s.accounts {
		out = append(out, runtime.account)
	}
	return out
}

var ErrAccountNotFound = fmt.Errorf("account not found")

func (s *Service) runtime(id string) (*accountRuntime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runtime, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return runtime, nil
}

// Refresh runs one fetch cycle for an account. A failed cycle records
// the error and leaves the previously published snapshot untouched.
func (s *Service) Refresh(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("account", id))

	runtime, err := s.runtime(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	runtime.refreshMu.Lock()
	defer runtime.refreshMu.Unlock()

	snapshot, err := runtime.client.FetchSnapshot(ctx)
	if err != nil {
		runtime.statusMu.Lock()
		runtime.lastError = err.Error()
		runtime.lastErrorAt = timezone.Now()
		runtime.statusMu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return err
	}

	previous := runtime.snapshot.Swap(&snapshot)

	runtime.statusMu.Lock()
	runtime.lastSuccess = snapshot.FetchedAt
	runtime.lastError = ""
	runtime.statusMu.Unlock()

	err = s.pushAverages(ctx, id, &snapshot)
	if err != nil {
		slog.WarnContext(ctx, "failed to push averages", "account", id, "err", err)
	}

	s.notifyNewGrades(ctx, runtime.account, previous, &snapshot)

	return nil
}

func (s *Service) pushAverages(ctx context.Context, id string, snapshot *scraper.Snapshot) error {
	var subjects []gradestore.SubjectAverage
	for _, name := range snapshot.SubjectOrder {
		subject := snapshot.Subjects[name]
		if subject.Average == nil {
			continue
		}
		subjects = append(subjects, gradestore.SubjectAverage{
			Subject: name,
			Value:   *subject.Average,
		})
	}
	if len(subjects) == 0 {
		return nil
	}

	return s.store.Push(ctx, gradestore.PushRequest{
		Time:     snapshot.FetchedAt,
		Account:  id,
		Subjects: subjects,
	})
}

// RefreshAll refreshes accounts in serial, a failing account does not
// stop the others.
func (s *Service) RefreshAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		err := s.Refresh(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "scheduled refresh failed", "account", id, "err", err)
		}
	}
}

// SnapshotStatus is the envelope the read API serves: the last good
// snapshot (possibly stale) plus the outcome of the latest cycle.
type SnapshotStatus struct {
	Account     Account           `json:"account"`
	Snapshot    *scraper.Snapshot `json:"snapshot"`
	LastSuccess time.Time         `json:"last_success"`
	LastError   string            `json:"last_error,omitempty"`
	LastErrorAt time.Time         `json:"last_error_at,omitempty"`
}

func (s *Service) Snapshot(id string) (SnapshotStatus, error) {
	runtime, err := s.runtime(id)
	if err != nil {
		return SnapshotStatus{}, err
	}

	runtime.statusMu.Lock()
	defer runtime.statusMu.Unlock()
	return SnapshotStatus{
		Account:     runtime.account,
		Snapshot:    runtime.snapshot.Load(),
		LastSuccess: runtime.lastSuccess,
		LastError:   runtime.lastError,
		LastErrorAt: runtime.lastErrorAt,
	}, nil
}

func (s *Service) Averages(ctx context.Context, id string) ([]gradestore.SubjectSeries, error) {
	_, err := s.runtime(id)
	if err != nil {
		return nil, err
	}
	return s.store.Pull(ctx, id)
}

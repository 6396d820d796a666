package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/scool/internal/adapters/http/api"
	"github.com/okian/scool/internal/adapters/repository"
	"github.com/okian/scool/internal/domain/model"
	"github.com/okian/scool/internal/domain/ranking"
	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies backs the leaderboard with a real ranking service over the
// treap store; everything else is canned.
type mockDependencies struct {
	ranking   *ranking.Service
	submitErr error
	subjects  []types.Subject
	users     map[string]types.User
	password  string
	health    types.Health
	counts    types.Counts
	search    []types.SearchResult
	lastLimit int
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		ranking:  ranking.New(repository.NewTreapStore()),
		users:    make(map[string]types.User),
		password: "secret1",
		health:   types.Health{Status: "ok", Database: "connected", Backend: "memory"},
		counts:   types.Counts{Leaderboard: 3, Subjects: 7, Users: 1},
	}
}

func (m *mockDependencies) SubmitScore(ctx context.Context, username, name string, score int64) (types.Entry, error) {
	if m.submitErr != nil {
		return types.Entry{}, m.submitErr
	}
	return m.ranking.Submit(ctx, username, name, score)
}

func (m *mockDependencies) Standings(ctx context.Context, limit int) ([]types.Entry, error) {
	m.lastLimit = limit
	return m.ranking.Standings(ctx, limit)
}

func (m *mockDependencies) Top10(ctx context.Context) ([]types.Entry, error) {
	return m.ranking.Standings(ctx, 10)
}

func (m *mockDependencies) Rank(ctx context.Context, username string) (types.Entry, error) {
	return m.ranking.Rank(ctx, username)
}

func (m *mockDependencies) Subjects(ctx context.Context, class int) ([]types.Subject, error) {
	return m.subjects, nil
}

func (m *mockDependencies) SaveSubjectProgress(ctx context.Context, name string, class, progress int) (types.Subject, error) {
	return types.Subject{ID: 1, Name: name, Class: class, Progress: progress}, nil
}

func (m *mockDependencies) Register(ctx context.Context, reg model.Registration) (types.User, error) {
	if _, taken := m.users[reg.Email]; taken {
		return types.User{}, fmt.Errorf("register: %w", types.ErrConflict)
	}
	u := types.User{ID: int64(len(m.users) + 1), Username: reg.DerivedUsername(), Email: reg.Email, FullName: reg.FullName, Class: reg.ClassNumber}
	m.users[reg.Email] = u
	return u, nil
}

func (m *mockDependencies) Login(ctx context.Context, creds model.Credentials) (types.User, string, error) {
	u, ok := m.users[creds.Email]
	if !ok || creds.Password != m.password {
		return types.User{}, "", types.ErrUnauthorized
	}
	return u, "token-123", nil
}

func (m *mockDependencies) User(ctx context.Context, id int64) (types.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, fmt.Errorf("user %d: %w", id, types.ErrNotFound)
}

func (m *mockDependencies) Search(ctx context.Context, q string) ([]types.SearchResult, error) {
	return m.search, nil
}

func (m *mockDependencies) Health(ctx context.Context) types.Health { return m.health }

func (m *mockDependencies) DBCheck(ctx context.Context) (types.Counts, error) { return m.counts, nil }

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func newMux(deps *mockDependencies, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"participants": 3}}, opts...).
		Register(context.Background(), mux)
	return mux
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestScoreEndpoint(t *testing.T) {
	Convey("Given the score endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When alice, bob and carol submit", func() {
			a := do(mux, http.MethodPost, "/api/score", `{"username":"alice","name":"Alice","score":100}`)
			b := do(mux, http.MethodPost, "/api/score", `{"username":"bob","name":"Bob","score":200}`)
			c := do(mux, http.MethodPost, "/api/score", `{"username":"carol","name":"Carol","score":150}`)

			Convey("Then each response carries the committed rank and score", func() {
				So(a.Code, ShouldEqual, http.StatusOK)
				So(decode(a)["success"], ShouldEqual, true)
				So(decode(a)["rank"], ShouldEqual, float64(1))
				So(decode(b)["rank"], ShouldEqual, float64(1))
				So(decode(c)["rank"], ShouldEqual, float64(2))
				So(decode(c)["score"], ShouldEqual, float64(150))
			})

			Convey("And the leaderboard lists them in rank order", func() {
				w := do(mux, http.MethodGet, "/api/leaderboard", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var entries []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 3)
				So(entries[0].Username, ShouldEqual, "bob")
				So(entries[1].Username, ShouldEqual, "carol")
				So(entries[2].Rank, ShouldEqual, 3)
				So(deps.lastLimit, ShouldEqual, 0)
			})
		})

		Convey("When fields are missing or invalid", func() {
			bodies := []string{
				`{"name":"Alice","score":1}`,
				`{"username":"alice","score":1}`,
				`{"username":"alice","name":"Alice"}`,
				`{"username":"alice","name":"Alice","score":-1}`,
				`{"username":"alice","name":"Alice","score":1.5}`,
				`{"username":"alice","name":"Alice","score":"10"}`,
				`not json`,
				``,
			}
			for _, body := range bodies {
				w := do(mux, http.MethodPost, "/api/score", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["success"], ShouldEqual, false)
				So(decode(w)["message"], ShouldNotBeEmpty)
			}
		})

		Convey("When storage is unavailable", func() {
			deps.submitErr = fmt.Errorf("ranking.submit: %w", ranking.ErrStorageUnavailable)
			w := do(mux, http.MethodPost, "/api/score", `{"username":"alice","name":"Alice","score":1}`)

			Convey("Then it answers 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decode(w)["success"], ShouldEqual, false)
			})
		})

		Convey("When the write queue is full", func() {
			deps.submitErr = fmt.Errorf("ranking.submit: %w: %w", ranking.ErrStorageUnavailable, types.ErrUnavailable)
			w := do(mux, http.MethodPost, "/api/score", `{"username":"alice","name":"Alice","score":1}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the transaction fails", func() {
			deps.submitErr = fmt.Errorf("ranking.submit: %w: %w", ranking.ErrSubmitFailed, errors.New("deadlock"))
			w := do(mux, http.MethodPost, "/api/score", `{"username":"alice","name":"Alice","score":1}`)

			Convey("Then it answers 500 without leaking the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "deadlock")
			})
		})

		Convey("When using the wrong method", func() {
			w := do(mux, http.MethodGet, "/api/score", "")

			Convey("Then the API catch-all answers 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, `"code":"not_found"`)
				So(w.Body.String(), ShouldContainSubstring, `"method":"GET"`)
			})
		})
	})
}

func TestLeaderboardEndpoints(t *testing.T) {
	Convey("Given a populated leaderboard", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)
		for i := range 12 {
			_, err := deps.ranking.SubmitScore(context.Background(), fmt.Sprintf("u%02d", i), "U", int64(i*10))
			So(err, ShouldBeNil)
		}

		Convey("Then an explicit limit is passed through", func() {
			w := do(mux, http.MethodGet, "/api/leaderboard?limit=5", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 5)
		})

		Convey("Then a bad limit is rejected", func() {
			for _, q := range []string{"0", "-1", "abc"} {
				w := do(mux, http.MethodGet, "/api/leaderboard?limit="+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("Then top10 returns ten entries", func() {
			w := do(mux, http.MethodGet, "/api/top10", "")
			var entries []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 10)
			So(entries[0].Username, ShouldEqual, "u11")
		})

		Convey("Then a rank lookup finds a known user", func() {
			w := do(mux, http.MethodGet, "/api/rank/u11", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["rank"], ShouldEqual, float64(1))
		})

		Convey("Then a rank lookup for an unknown user is 404", func() {
			w := do(mux, http.MethodGet, "/api/rank/ghost", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSubjectEndpoints(t *testing.T) {
	Convey("Given the subject endpoints", t, func() {
		deps := newMockDependencies()
		deps.subjects = []types.Subject{{ID: 1, Name: "Physics", Class: 7, Progress: 95}}
		mux := newMux(deps)

		Convey("Then a valid class lists subjects", func() {
			w := do(mux, http.MethodGet, "/api/subjects/7", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Physics")
		})

		Convey("Then an invalid class is rejected", func() {
			So(do(mux, http.MethodGet, "/api/subjects/12", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/api/subjects/x", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then progress updates are validated", func() {
			ok := do(mux, http.MethodPost, "/api/subject-progress", `{"name":"Physics","class":7,"progress":80}`)
			So(ok.Code, ShouldEqual, http.StatusOK)
			So(decode(ok)["success"], ShouldEqual, true)

			bad := do(mux, http.MethodPost, "/api/subject-progress", `{"name":"Physics","class":7,"progress":180}`)
			So(bad.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestUserEndpoints(t *testing.T) {
	Convey("Given the account endpoints", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)
		reg := `{"email":"maria@school.ru","password":"secret1","fullName":"Maria K.","classNumber":7}`

		Convey("When a student registers", func() {
			w := do(mux, http.MethodPost, "/api/register", reg)

			Convey("Then the account is created without the password hash", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, `"username":"maria"`)
				So(w.Body.String(), ShouldNotContainSubstring, "password")
			})

			Convey("And a second registration conflicts", func() {
				So(do(mux, http.MethodPost, "/api/register", reg).Code, ShouldEqual, http.StatusConflict)
			})

			Convey("And login works with the right password only", func() {
				good := do(mux, http.MethodPost, "/api/login", `{"email":"maria@school.ru","password":"secret1"}`)
				So(good.Code, ShouldEqual, http.StatusOK)
				So(decode(good)["token"], ShouldEqual, "token-123")

				bad := do(mux, http.MethodPost, "/api/login", `{"email":"maria@school.ru","password":"nope"}`)
				So(bad.Code, ShouldEqual, http.StatusUnauthorized)
			})

			Convey("And the user can be fetched by id", func() {
				So(do(mux, http.MethodGet, "/api/user/1", "").Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodGet, "/api/user/99", "").Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, http.MethodGet, "/api/user/abc", "").Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the registration is incomplete", func() {
			w := do(mux, http.MethodPost, "/api/register", `{"email":"maria@school.ru"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSearchEndpoint(t *testing.T) {
	Convey("Given the search endpoint", t, func() {
		deps := newMockDependencies()
		deps.search = []types.SearchResult{{Type: "student", Title: "Elena V."}}
		mux := newMux(deps)

		Convey("Then short queries return an empty list", func() {
			w := do(mux, http.MethodGet, "/api/search?q=e", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("Then longer queries reach the service", func() {
			w := do(mux, http.MethodGet, "/api/search?q=el", "")
			So(w.Body.String(), ShouldContainSubstring, "Elena V.")
		})
	})
}

func TestHealthEndpoints(t *testing.T) {
	Convey("Given the health endpoints", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("Then /health and /api/health report the database", func() {
			for _, p := range []string{"/health", "/api/health"} {
				w := do(mux, http.MethodGet, p, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["database"], ShouldEqual, "connected")
			}
		})

		Convey("Then a degraded store still answers 200", func() {
			deps.health = types.Health{Status: "degraded", Database: "disconnected", Backend: "postgres", Timestamp: time.Now()}
			w := do(mux, http.MethodGet, "/health", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["database"], ShouldEqual, "disconnected")
		})

		Convey("Then db-check reports table counts", func() {
			w := do(mux, http.MethodGet, "/api/db-check", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"subjects":7`)
		})

		Convey("Then the metrics endpoints serve Prometheus text", func() {
			_ = do(mux, http.MethodGet, "/api/top10", "")
			for _, p := range []string{"/healthz", "/metrics"} {
				w := do(mux, http.MethodGet, p, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "scool_leaderboard_http_requests_total")
			}
		})

		Convey("Then stats come from the provider", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(decode(w)["participants"], ShouldEqual, float64(3))
		})
	})
}

func TestAPINotFound(t *testing.T) {
	Convey("Given an unknown API path", t, func() {
		w := do(newMux(newMockDependencies()), http.MethodGet, "/api/nope", "")

		Convey("Then a JSON 404 lists the endpoints", func() {
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(w.Body.String(), ShouldContainSubstring, "/api/score")
		})
	})
}

func TestRateLimiter(t *testing.T) {
	Convey("Given a limiter allowing a burst of two", t, func() {
		limiter := api.NewRateLimiter(0.001, 2)
		mux := newMux(newMockDependencies(), api.WithRateLimiter(limiter))
		body := `{"username":"alice","name":"Alice","score":1}`

		Convey("Then the third rapid submission is throttled", func() {
			So(do(mux, http.MethodPost, "/api/score", body).Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodPost, "/api/score", body).Code, ShouldEqual, http.StatusOK)
			w := do(mux, http.MethodPost, "/api/score", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Header().Get("Retry-After"), ShouldEqual, "1")
		})

		Convey("Then reads are never throttled", func() {
			for range 5 {
				So(do(mux, http.MethodGet, "/api/leaderboard", "").Code, ShouldEqual, http.StatusOK)
			}
		})

		Convey("Then idle clients are pruned", func() {
			So(limiter.Allow("10.0.0.1"), ShouldBeTrue)
			So(limiter.Len(), ShouldEqual, 1)
			So(limiter.Prune(time.Hour), ShouldEqual, 0)
			So(limiter.Prune(-time.Minute), ShouldEqual, 1)
			So(limiter.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given clients that forge X-Forwarded-For", t, func() {
		body := `{"username":"alice","name":"Alice","score":1}`
		spoofed := func(mux http.Handler, i int) int {
			req := httptest.NewRequest(http.MethodPost, "/api/score", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w.Code
		}

		Convey("When the proxy is not trusted", func() {
			limiter := api.NewRateLimiter(0.001, 1)
			mux := newMux(newMockDependencies(), api.WithRateLimiter(limiter))

			Convey("Then the peer address is throttled regardless of the header", func() {
				So(spoofed(mux, 1), ShouldEqual, http.StatusOK)
				So(spoofed(mux, 2), ShouldEqual, http.StatusTooManyRequests)
				So(limiter.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the proxy is trusted", func() {
			limiter := api.NewRateLimiter(0.001, 1, api.TrustForwardedFor(true))
			mux := newMux(newMockDependencies(), api.WithRateLimiter(limiter))

			Convey("Then each forwarded client gets its own bucket", func() {
				So(spoofed(mux, 1), ShouldEqual, http.StatusOK)
				So(spoofed(mux, 2), ShouldEqual, http.StatusOK)
				So(spoofed(mux, 1), ShouldEqual, http.StatusTooManyRequests)
				So(limiter.Len(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a disabled limiter", t, func() {
		limiter := api.NewRateLimiter(0, 0)
		for range 100 {
			So(limiter.Allow("x"), ShouldBeTrue)
		}
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given the CORS and request-logging chain", t, func() {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(api.RequestID(r.Context())))
		})
		h := api.Chain(inner, api.CORS("https://scool.example"), api.RequestLogger(logger.Get()))

		Convey("Then preflight requests short-circuit with 204", func() {
			w := do(h, http.MethodOptions, "/api/score", "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://scool.example")
		})

		Convey("Then each request gets an id visible to the handler", func() {
			w := do(h, http.MethodGet, "/", "")
			id := w.Header().Get(api.RequestIDHeader)
			So(id, ShouldNotBeEmpty)
			So(w.Body.String(), ShouldEqual, id)
		})

		Convey("Then an incoming id is kept", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})
	})
}

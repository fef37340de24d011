package ynab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"ynabmetrics/internal/core"
	"ynabmetrics/internal/log"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := []Option{
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
		WithRetry(3, time.Millisecond),
		WithLocation(time.UTC),
		WithLogger(log.Discard()),
	}
	return New(Config{BaseURL: srv.URL, Token: "secret"}, append(base, opts...)...)
}

func TestBudgetDefaultsToFirst(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"budgets":[{"id":"old","name":"Old","deleted":true},{"id":"b1","name":"Home"},{"id":"b2","name":"Work"}]}}`))
	}))

	b, err := c.Budget(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, core.Budget{ID: "b1", Name: "Home"}, b)

	b, err = c.Budget(context.Background(), "b2")
	require.NoError(t, err)
	assert.Equal(t, "Work", b.Name)

	_, err = c.Budget(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNoBudget)
}

func TestBudgetNoneFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"budgets":[]}}`))
	}))

	_, err := c.Budget(context.Background(), "")
	require.ErrorIs(t, err, core.ErrNoBudget)
	assert.Equal(t, "No budgets found", err.Error())
}

func TestBudgetAliasSkipsLookup(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	b, err := c.Budget(context.Background(), BudgetLastUsed)
	require.NoError(t, err)
	assert.Equal(t, BudgetLastUsed, b.ID)
	assert.Zero(t, calls.Load())
}

func TestMissingTokenIsCredentialError(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:0"})
	_, err := c.Transactions(context.Background(), "b1")
	require.ErrorIs(t, err, core.ErrCredentialMissing)
	assert.Equal(t, "API token not found", err.Error())
}

func TestTransactionsSkipDeletedAndParseDates(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets/b1/transactions", r.URL.Path)
		w.Write([]byte(`{"data":{"transactions":[
			{"id":"t1","date":"2025-06-03","amount":-12340,"payee_name":"Market","category_id":"c1","category_name":"Groceries","account_id":"a1"},
			{"id":"t2","date":"2025-06-04","amount":-1000,"deleted":true}
		]}}`))
	}))

	txs, err := c.Transactions(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, core.Transaction{
		ID:           "t1",
		Date:         time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		Amount:       -12340,
		CategoryID:   "c1",
		CategoryName: "Groceries",
		PayeeName:    "Market",
		AccountID:    "a1",
	}, txs[0])
}

func TestCategoryGroupsMapGoals(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"category_groups":[
			{"id":"g1","name":"Bills","categories":[
				{"id":"c1","category_group_id":"g1","name":"Rent","budgeted":1500000,"balance":0,"goal_target":1500000},
				{"id":"c2","category_group_id":"g1","name":"Gone","deleted":true},
				{"id":"c3","category_group_id":"g1","name":"Power","budgeted":90000,"balance":12000,"goal_target":null}
			]},
			{"id":"g2","name":"Old","deleted":true,"categories":[]}
		]}}`))
	}))

	groups, err := c.CategoryGroups(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Categories, 2)
	rent := groups[0].Categories[0]
	require.True(t, rent.HasGoal())
	assert.Equal(t, core.Milliunits(1500000), *rent.GoalTarget)
	assert.False(t, groups[0].Categories[1].HasGoal())
	assert.Equal(t, core.Milliunits(12000), groups[0].Categories[1].Balance)
}

func TestAccounts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"accounts":[
			{"id":"a1","name":"Checking","type":"checking","on_budget":true,"closed":false,"balance":250000},
			{"id":"a2","name":"Visa","type":"creditCard","on_budget":true,"closed":true,"balance":-20000}
		]}}`))
	}))

	accounts, err := c.Accounts(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, core.AccountCreditCard, accounts[1].Type)
	assert.True(t, accounts[1].Closed)
}

func TestRetriesTemporaryFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"id":"429","name":"too_many_requests","detail":"Too many requests"}}`))
			return
		}
		w.Write([]byte(`{"data":{"accounts":[]}}`))
	}))

	accounts, err := c.Accounts(context.Background(), "b1")
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPermanentFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"id":"401","name":"unauthorized","detail":"Unauthorized"}}`))
	}))

	_, err := c.Accounts(context.Background(), "b1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Name)
	assert.Equal(t, "ynab: 401 unauthorized: Unauthorized", apiErr.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.Accounts(context.Background(), "b1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Temporary())
	assert.Equal(t, int32(3), calls.Load())
}

type recordingObserver struct {
	endpoints []string
	statuses  []int
}

func (r *recordingObserver) ObserveUpstream(endpoint string, status int, _ time.Duration) {
	r.endpoints = append(r.endpoints, endpoint)
	r.statuses = append(r.statuses, status)
}

func TestObserverSeesEveryRoundTrip(t *testing.T) {
	obs := &recordingObserver{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"accounts":[]}}`))
	}), WithObserver(obs))

	_, err := c.Accounts(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts"}, obs.endpoints)
	assert.Equal(t, []int{http.StatusOK}, obs.statuses)
}

func TestEachAttemptHasDeadline(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), WithHTTPClient(&http.Client{}), WithRequestTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Accounts(context.Background(), "b1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

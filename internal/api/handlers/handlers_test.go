package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/autoledger/internal/domain"
	"github.com/dvloznov/autoledger/internal/extract"
	"github.com/dvloznov/autoledger/internal/jobs"
	"github.com/dvloznov/autoledger/internal/store"
	"github.com/dvloznov/autoledger/internal/taxonomy"
)

type fakeExtractor struct {
	NormalizeFunc func(ctx context.Context, input extract.Input) (extract.Draft, error)
}

func (f *fakeExtractor) Normalize(ctx context.Context, input extract.Input) (extract.Draft, error) {
	return f.NormalizeFunc(ctx, input)
}

type fakePublisher struct {
	PublishExtractFunc func(ctx context.Context, job *jobs.ExtractJob) error
}

func (f *fakePublisher) PublishExtract(ctx context.Context, job *jobs.ExtractJob) error {
	return f.PublishExtractFunc(ctx, job)
}

func (f *fakePublisher) Close() error { return nil }

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTransaction(t *testing.T, s *store.Store, id, date, amount string, txType taxonomy.TransactionType, category taxonomy.Category) domain.Transaction {
	t.Helper()
	tx := domain.Transaction{
		ID:       id,
		Type:     txType,
		Amount:   decimal.RequireFromString(amount),
		Merchant: "测试商户",
		Category: category,
		Date:     date,
	}
	require.NoError(t, s.Append(context.Background(), tx))
	return tx
}

func TestExtractHandler_Extract(t *testing.T) {
	extractor := &fakeExtractor{
		NormalizeFunc: func(ctx context.Context, input extract.Input) (extract.Draft, error) {
			return extract.Draft{
				Type:     taxonomy.Expense,
				Amount:   decimal.RequireFromString("28"),
				Merchant: "星巴克",
				Category: taxonomy.Food,
				Date:     "2024-01-05",
			}, nil
		},
	}
	h := NewExtractHandler(extractor, nil, zerolog.Nop())

	body := strings.NewReader(`{"text": "星巴克 28元"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	rec := httptest.NewRecorder()

	h.Extract(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var draft extract.Draft
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&draft))
	assert.Equal(t, taxonomy.Food, draft.Category)
	assert.Equal(t, "星巴克", draft.Merchant)
	assert.True(t, draft.Amount.Equal(decimal.RequireFromString("28")))
}

func TestExtractHandler_Extract_EmptyInput(t *testing.T) {
	extractor := &fakeExtractor{
		NormalizeFunc: func(ctx context.Context, input extract.Input) (extract.Draft, error) {
			return extract.Draft{}, extract.ErrEmptyInput
		},
	}
	h := NewExtractHandler(extractor, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.Extract(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractHandler_Extract_AIFailure(t *testing.T) {
	extractor := &fakeExtractor{
		NormalizeFunc: func(ctx context.Context, input extract.Input) (extract.Draft, error) {
			return extract.Draft{}, &extract.AIError{Op: "generate", Err: errors.New("quota exceeded")}
		},
	}
	h := NewExtractHandler(extractor, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{"text": "x"}`))
	rec := httptest.NewRecorder()

	h.Extract(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestExtractHandler_Extract_BadImageEncoding(t *testing.T) {
	h := NewExtractHandler(&fakeExtractor{}, nil, zerolog.Nop())

	body := strings.NewReader(`{"image": {"data": "not-base64!!!", "mime_type": "image/png"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	rec := httptest.NewRecorder()

	h.Extract(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractHandler_EnqueueExtract(t *testing.T) {
	var published *jobs.ExtractJob
	publisher := &fakePublisher{
		PublishExtractFunc: func(ctx context.Context, job *jobs.ExtractJob) error {
			job.JobID = "job-123"
			job.Status = jobs.JobStatusPending
			published = job
			return nil
		},
	}
	h := NewExtractHandler(nil, publisher, zerolog.Nop())

	body := strings.NewReader(`{"text": "停车费 15元"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/extract/jobs", body)
	rec := httptest.NewRecorder()

	h.EnqueueExtract(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, published)
	assert.Equal(t, "停车费 15元", published.Text)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "job-123", resp["job_id"])
}

func TestExtractHandler_EnqueueExtract_NoInput(t *testing.T) {
	h := NewExtractHandler(nil, &fakePublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/extract/jobs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.EnqueueExtract(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionsHandler_CreateAndList(t *testing.T) {
	s := testStore(t)
	h := NewTransactionsHandler(s, zerolog.Nop())

	body := strings.NewReader(`{"type": "expense", "amount": 28.5, "merchant": "星巴克", "category": "餐饮美食", "date": "2024-01-05"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Transaction
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, taxonomy.Food, created.Category)

	req = httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	rec = httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var listed []domain.Transaction
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestTransactionsHandler_Create_DefaultsDateToToday(t *testing.T) {
	s := testStore(t)
	h := NewTransactionsHandler(s, zerolog.Nop())

	body := strings.NewReader(`{"type": "income", "amount": 10000, "merchant": "公司", "category": "工资薪金"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Transaction
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.Date)
	_, err := time.Parse(domain.DateLayout, created.Date)
	assert.NoError(t, err)
}

func TestTransactionsHandler_Create_RejectsMismatchedCategory(t *testing.T) {
	s := testStore(t)
	h := NewTransactionsHandler(s, zerolog.Nop())

	// 工资薪金 is an income category, not valid for an expense.
	body := strings.NewReader(`{"type": "expense", "amount": 5, "merchant": "x", "category": "工资薪金", "date": "2024-01-05"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionsHandler_Update(t *testing.T) {
	s := testStore(t)
	h := NewTransactionsHandler(s, zerolog.Nop())
	seedTransaction(t, s, "tx-1", "2024-01-05", "28", taxonomy.Expense, taxonomy.Food)

	body := strings.NewReader(`{"type": "expense", "amount": 30, "merchant": "星巴克", "category": "餐饮美食", "date": "2024-01-05"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/transactions/tx-1", body)
	req.SetPathValue("id", "tx-1")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	got, err := s.Get(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("30")))
}

func TestTransactionsHandler_Update_NotFound(t *testing.T) {
	s := testStore(t)
	h := NewTransactionsHandler(s, zerolog.Nop())

	body := strings.NewReader(`{"type": "expense", "amount": 30, "merchant": "x", "category": "餐饮美食", "date": "2024-01-05"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/transactions/missing", body)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionsHandler_Delete(t *testing.T) {
	s := testStore(t)
	h := NewTransactionsHandler(s, zerolog.Nop())
	seedTransaction(t, s, "tx-1", "2024-01-05", "28", taxonomy.Expense, taxonomy.Food)

	req := httptest.NewRequest(http.MethodDelete, "/api/transactions/tx-1", nil)
	req.SetPathValue("id", "tx-1")
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := s.Get(context.Background(), "tx-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReportsHandler_Summary(t *testing.T) {
	s := testStore(t)
	h := NewReportsHandler(s, zerolog.Nop())
	seedTransaction(t, s, "tx-1", "2024-01-05", "28", taxonomy.Expense, taxonomy.Food)
	seedTransaction(t, s, "tx-2", "2024-03-01", "10000", taxonomy.Income, taxonomy.Salary)

	req := httptest.NewRequest(http.MethodGet, "/api/summary?period=day", nil)
	rec := httptest.NewRecorder()

	h.Summary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Period string `json:"period"`
		Count  int    `json:"count"`
		Groups []struct {
			Key          string  `json:"key"`
			Title        string  `json:"title"`
			IncomeShare  float64 `json:"incomeShare"`
			ExpenseShare float64 `json:"expenseShare"`
		} `json:"groups"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "day", resp.Period)
	require.Equal(t, 2, resp.Count)
	// Descending key order puts March before January.
	assert.Equal(t, "2024-03-01", resp.Groups[0].Key)
	assert.Equal(t, "2024-01-05", resp.Groups[1].Key)
	assert.Greater(t, resp.Groups[0].IncomeShare, 0.99)
	assert.Greater(t, resp.Groups[1].ExpenseShare, 0.99)
}

func TestReportsHandler_Summary_InvalidPeriod(t *testing.T) {
	s := testStore(t)
	h := NewReportsHandler(s, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/summary?period=week", nil)
	rec := httptest.NewRecorder()

	h.Summary(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportsHandler_Stats(t *testing.T) {
	s := testStore(t)
	h := NewReportsHandler(s, zerolog.Nop())
	seedTransaction(t, s, "tx-1", "2024-01-05", "28", taxonomy.Expense, taxonomy.Food)
	seedTransaction(t, s, "tx-2", "2024-01-06", "72", taxonomy.Expense, taxonomy.Transport)
	seedTransaction(t, s, "tx-3", "2024-01-07", "500", taxonomy.Income, taxonomy.Bonus)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	h.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Totals struct {
			TotalIncome  decimal.Decimal `json:"totalIncome"`
			TotalExpense decimal.Decimal `json:"totalExpense"`
			Balance      decimal.Decimal `json:"balance"`
		} `json:"totals"`
		ByCategory []struct {
			Category taxonomy.Category `json:"category"`
			Amount   decimal.Decimal   `json:"amount"`
		} `json:"byCategory"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Totals.TotalExpense.Equal(decimal.RequireFromString("100")))
	assert.True(t, resp.Totals.Balance.Equal(decimal.RequireFromString("400")))
	require.Len(t, resp.ByCategory, 2)
	assert.Equal(t, taxonomy.Transport, resp.ByCategory[0].Category)
}

func TestReportsHandler_Categories(t *testing.T) {
	h := NewReportsHandler(nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	rec := httptest.NewRecorder()

	h.Categories(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Expense []taxonomy.Category `json:"expense"`
		Income  []taxonomy.Category `json:"income"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Expense, 8)
	assert.Len(t, resp.Income, 4)
	assert.Equal(t, taxonomy.Food, resp.Expense[0])
}

func TestBackupHandler_RoundTrip(t *testing.T) {
	s := testStore(t)
	h := NewBackupHandler(s, zerolog.Nop())
	seedTransaction(t, s, "tx-1", "2024-01-05", "28.5", taxonomy.Expense, taxonomy.Food)
	seedTransaction(t, s, "tx-2", "2024-01-06", "10000", taxonomy.Income, taxonomy.Salary)

	req := httptest.NewRequest(http.MethodGet, "/api/backup", nil)
	rec := httptest.NewRecorder()
	h.Export(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "autoledger_backup_")
	exported := rec.Body.Bytes()

	// Wipe and restore through the import endpoint.
	require.NoError(t, s.Clear(context.Background()))

	req = httptest.NewRequest(http.MethodPost, "/api/backup", bytes.NewReader(exported))
	rec = httptest.NewRecorder()
	h.Import(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Imported int `json:"imported"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Imported)

	txs, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tx-2", txs[0].ID)
	assert.Equal(t, "tx-1", txs[1].ID)
}

func TestBackupHandler_Import_RejectsGarbage(t *testing.T) {
	s := testStore(t)
	h := NewBackupHandler(s, zerolog.Nop())
	seedTransaction(t, s, "tx-1", "2024-01-05", "28", taxonomy.Expense, taxonomy.Food)

	req := httptest.NewRequest(http.MethodPost, "/api/backup", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	h.Import(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Existing data survives a failed import.
	txs, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestJobsHandler_GetJob(t *testing.T) {
	memStore := newFakeJobStore()
	memStore.jobs["job-1"] = &jobs.ExtractJob{JobID: "job-1", Status: jobs.JobStatusCompleted}
	h := NewJobsHandler(memStore, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil)
	req.SetPathValue("id", "job-1")
	rec := httptest.NewRecorder()

	h.GetJob(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var job jobs.ExtractJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, jobs.JobStatusCompleted, job.Status)
}

func TestJobsHandler_GetJob_NotFound(t *testing.T) {
	h := NewJobsHandler(newFakeJobStore(), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()

	h.GetJob(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeJobStore struct {
	jobs map[string]*jobs.ExtractJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*jobs.ExtractJob)}
}

func (f *fakeJobStore) SaveJob(ctx context.Context, job *jobs.ExtractJob) error {
	f.jobs[job.JobID] = job
	return nil
}

func (f *fakeJobStore) GetJob(ctx context.Context, jobID string) (*jobs.ExtractJob, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

func (f *fakeJobStore) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ExtractJob, error) {
	out := make([]*jobs.ExtractJob, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

package server

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/tx-signer/internal/flow"
	"github.com/vultisig/tx-signer/internal/pending"
)

var testAccount = ecommon.HexToAddress("0x1111111111111111111111111111111111111111")

// MockWallet implements flow.Connector and flow.Signer. When release is set, WaitMined blocks on it.
type MockWallet struct {
	mu      sync.Mutex
	sent    int
	release chan struct{}
}

func (m *MockWallet) Connect(context.Context) (ecommon.Address, error) {
	return testAccount, nil
}

func (m *MockWallet) Signer(context.Context) (flow.Signer, error) {
	return m, nil
}

func (m *MockWallet) SwitchChain(context.Context, uint64) error {
	return nil
}

func (m *MockWallet) SendTransaction(context.Context, pending.Tx) (ecommon.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return ecommon.BigToHash(big.NewInt(int64(m.sent))), nil
}

func (m *MockWallet) WaitMined(ctx context.Context, _ ecommon.Hash) (*etypes.Receipt, error) {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &etypes.Receipt{Status: etypes.ReceiptStatusSuccessful}, nil
}

func (m *MockWallet) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

func newTestServer(wallet *MockWallet) *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var opener WalletOpener
	if wallet != nil {
		opener = func() flow.Connector { return wallet }
	}
	return NewServer(Config{SessionTTL: time.Hour}, flow.NewRunner(logger, nil, nil), opener, logger)
}

func txQuery(withApprove bool) url.Values {
	q := url.Values{}
	q.Set(pending.ParamSwapTo, "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	q.Set(pending.ParamSwapData, "0x1234")
	if withApprove {
		q.Set(pending.ParamApproveTo, "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
		q.Set(pending.ParamApproveData, "0x095ea7b3")
	}
	return q
}

func do(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func status(t *testing.T, s *Server, id string) string {
	t.Helper()
	code, out := do(t, s, http.MethodGet, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, code)
	return out["status"].(string)
}

func TestPage(t *testing.T) {
	s := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/?"+txQuery(true).Encode(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Confirm Transactions")
	require.Contains(t, body, "Approve")
	require.Contains(t, body, "data-mode=\"testnet\"")
	require.Equal(t, 1, s.store.Len())
}

func TestPageConnectMode(t *testing.T) {
	s := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/?mode=connect", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Connect Wallet")
	require.NotContains(t, rec.Body.String(), "data-mode=")
}

func TestGetSession(t *testing.T) {
	s := newTestServer(nil)
	ps := s.store.Create(txQuery(true))

	code, out := do(t, s, http.MethodGet, "/api/sessions/"+ps.ID, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "idle", out["status"])
	require.Equal(t, true, out["has_transactions"])
	require.Equal(t, true, out["has_approve"])

	steps := out["steps"].([]any)
	require.Len(t, steps, 2)
	require.Equal(t, "Approve", steps[1].(map[string]any)["title"])

	code, out = do(t, s, http.MethodGet, "/api/sessions/missing", "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "session not found", out["error"])
}

func TestSubmitMainnet(t *testing.T) {
	wallet := &MockWallet{}
	s := newTestServer(wallet)
	ps := s.store.Create(txQuery(true))

	code, out := do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/connect", "{}")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, testAccount.Hex(), out["address"])
	require.Equal(t, "0x1111...1111", out["short_address"])

	code, _ = do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/submit", `{"mode":"mainnet"}`)
	require.Equal(t, http.StatusAccepted, code)

	require.Eventually(t, func() bool {
		return status(t, s, ps.ID) == "success"
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 2, wallet.Sent())
	require.Contains(t, ps.State.Logs(), "✅ All transactions complete!")

	code, out = do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/submit", `{"mode":"mainnet"}`)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, flow.ErrAlreadyComplete.Error(), out["error"])
}

func TestSubmitInProgress(t *testing.T) {
	wallet := &MockWallet{release: make(chan struct{})}
	s := newTestServer(wallet)
	ps := s.store.Create(txQuery(false))

	code, _ := do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/connect", "{}")
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/submit", `{"mode":"mainnet"}`)
	require.Equal(t, http.StatusAccepted, code)

	require.Eventually(t, func() bool {
		return status(t, s, ps.ID) == "signing"
	}, 5*time.Second, 10*time.Millisecond)

	code, out := do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/submit", `{"mode":"demo"}`)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, flow.ErrInProgress.Error(), out["error"])

	close(wallet.release)
	require.Eventually(t, func() bool {
		return status(t, s, ps.ID) == "success"
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, wallet.Sent())
}

func TestSubmitPreconditions(t *testing.T) {
	tests := []struct {
		name     string
		wallet   *MockWallet
		query    url.Values
		connect  bool
		body     string
		wantCode int
		wantLog  string
	}{
		{
			name:     "mainnet without wallet",
			query:    txQuery(false),
			body:     `{"mode":"mainnet"}`,
			wantCode: http.StatusBadRequest,
			wantLog:  "Please connect wallet first",
		},
		{
			name:     "testnet without wallet",
			query:    txQuery(false),
			body:     `{"mode":"testnet"}`,
			wantCode: http.StatusBadRequest,
			wantLog:  "Please connect wallet first",
		},
		{
			name:     "demo without wallet",
			query:    txQuery(false),
			body:     `{"mode":"demo"}`,
			wantCode: http.StatusBadRequest,
			wantLog:  "Please connect wallet first",
		},
		{
			name:     "demo without data",
			wallet:   &MockWallet{},
			query:    url.Values{},
			connect:  true,
			body:     `{"mode":"demo"}`,
			wantCode: http.StatusBadRequest,
			wantLog:  "No transaction data",
		},
		{
			name:     "connected without data",
			wallet:   &MockWallet{},
			query:    url.Values{},
			connect:  true,
			body:     `{"mode":"mainnet"}`,
			wantCode: http.StatusBadRequest,
			wantLog:  "No transaction data",
		},
		{
			name:     "unknown mode",
			query:    txQuery(false),
			body:     `{"mode":"fast"}`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.wallet)
			ps := s.store.Create(tt.query)

			if tt.connect {
				code, _ := do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/connect", "{}")
				require.Equal(t, http.StatusOK, code)
			}

			code, out := do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/submit", tt.body)
			require.Equal(t, tt.wantCode, code)
			require.NotEmpty(t, out["error"])
			require.Equal(t, flow.StatusIdle, ps.State.Status())
			if tt.wantLog != "" {
				require.Contains(t, ps.State.Logs(), tt.wantLog)
			}
		})
	}
}

func TestConnectWithoutWallet(t *testing.T) {
	s := newTestServer(nil)
	ps := s.store.Create(txQuery(false))

	code, out := do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/connect", "{}")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, flow.ErrConnectorUnavailable.Error(), out["error"])
	require.Equal(t, []string{"Please install a wallet!"}, ps.State.Logs())
}

func TestSubmitDemoAccepted(t *testing.T) {
	wallet := &MockWallet{}
	s := newTestServer(wallet)
	ps := s.store.Create(txQuery(false))

	code, _ := do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/connect", "{}")
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, s, http.MethodPost, "/api/sessions/"+ps.ID+"/submit", `{"mode":"demo"}`)
	require.Equal(t, http.StatusAccepted, code)

	require.Eventually(t, func() bool {
		logs := ps.State.Logs()
		return len(logs) > 1 && logs[1] == "🔵 DEMO MODE: Simulating transactions..."
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 0, wallet.Sent())
}

func TestHealth(t *testing.T) {
	s := newTestServer(nil)
	code, out := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", out["status"])
}

func TestStoreEvict(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := NewStore(time.Minute)
	store.now = func() time.Time { return now }

	stale := store.Create(url.Values{})
	busy := store.Create(txQuery(false))
	require.NoError(t, busy.State.Begin())

	now = now.Add(2 * time.Minute)
	fresh := store.Create(url.Values{})

	require.Equal(t, 1, store.Evict())

	_, ok := store.Get(stale.ID)
	require.False(t, ok)
	_, ok = store.Get(busy.ID)
	require.True(t, ok)
	_, ok = store.Get(fresh.ID)
	require.True(t, ok)
}

package rpc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"foodcourt/core"
	"foodcourt/core/events"
	"foodcourt/core/journal"
	"foodcourt/core/types"
	"foodcourt/crypto"
	"foodcourt/native/participants"
	"foodcourt/rpc"
	"foodcourt/rpc/client"
	"foodcourt/storage"
)

const testChainID = 42

type harness struct {
	srv    *httptest.Server
	client *client.Client
	owner  *crypto.PrivateKey
	ledger *core.Ledger
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func newHarness(t *testing.T, profile participants.Profile, cfg rpc.ServerConfig) *harness {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	broadcaster := events.NewBroadcaster(64)

	owner := newKey(t)
	ledger, err := core.NewLedger(db, core.Genesis{
		ChainID: testChainID,
		Owner:   owner.PubKey().Address().Bytes20(),
		Profile: profile,
	}, core.Options{Journal: j, Broadcaster: broadcaster})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	server := rpc.NewServer(ledger, j, broadcaster, cfg, nil)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &harness{srv: srv, client: client.New(srv.URL, srv.Client()), owner: owner, ledger: ledger}
}

func TestRegisterAndQueryOverRPC(t *testing.T) {
	h := newHarness(t, participants.ProfileExtended, rpc.ServerConfig{})
	ctx := context.Background()
	customer := newKey(t)
	store := newKey(t)

	receipt, err := h.client.SignAndSend(ctx, customer, testChainID, types.TxTypeRegisterCustomer,
		&types.RegisterCustomerPayload{Tier: uint8(participants.TierGold), Balance: nil})
	if err != nil {
		t.Fatalf("register customer: %v", err)
	}
	if receipt.Height != 1 || len(receipt.Events) != 1 || receipt.Events[0].Type != events.TypeCustomerRegistered {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if _, err := h.client.SignAndSend(ctx, store, testChainID, types.TxTypeRegisterStore, &types.RegisterStorePayload{}); err != nil {
		t.Fatalf("register store: %v", err)
	}

	got, err := h.client.GetCustomer(ctx, customer.PubKey().Address())
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got.Tier != participants.TierGold.String() || got.Balance == nil || *got.Balance != "0" {
		t.Fatalf("unexpected customer %+v", got)
	}
	tier, err := h.client.GetUserTier(ctx, customer.PubKey().Address())
	if err != nil || tier.TierValue != uint8(participants.TierGold) {
		t.Fatalf("unexpected tier %+v err=%v", tier, err)
	}
	storeRes, err := h.client.GetStore(ctx, store.PubKey().Address())
	if err != nil || storeRes.Address != store.PubKey().Address().String() {
		t.Fatalf("unexpected store %+v err=%v", storeRes, err)
	}

	info, err := h.client.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.ChainID != testChainID || info.Height != 2 || info.Profile != "extended" {
		t.Fatalf("unexpected info %+v", info)
	}

	entries, err := h.client.ListEvents(ctx, rpc.ListEventsParams{Type: events.TypeStoreRegistered})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(entries) != 1 || entries[0].Attributes["storeAddress"] != store.PubKey().Address().String() {
		t.Fatalf("unexpected events %+v", entries)
	}
}

func TestRPCErrorCodes(t *testing.T) {
	h := newHarness(t, participants.ProfileBasic, rpc.ServerConfig{})
	ctx := context.Background()
	customer := newKey(t)
	outsider := newKey(t)

	_, err := h.client.GetCustomer(ctx, customer.PubKey().Address())
	if !client.IsCode(err, -32004) || !strings.Contains(err.Error(), "Customer not found") {
		t.Fatalf("expected not found code, got %v", err)
	}

	if _, err := h.client.SignAndSend(ctx, customer, testChainID, types.TxTypeRegisterCustomer,
		&types.RegisterCustomerPayload{Tier: uint8(participants.TierSilver)}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = h.client.SignAndSend(ctx, outsider, testChainID, types.TxTypeDeleteCustomer,
		&types.DeleteCustomerPayload{Customer: customer.PubKey().Address().Bytes20()})
	if !client.IsCode(err, -32001) {
		t.Fatalf("expected unauthorized code, got %v", err)
	}

	_, err = h.client.SignAndSend(ctx, h.owner, testChainID, types.TxTypeDeleteStore,
		&types.DeleteStorePayload{Store: outsider.PubKey().Address().Bytes20()})
	if !client.IsCode(err, -32004) || !strings.Contains(err.Error(), "Store not found") {
		t.Fatalf("expected store not found code, got %v", err)
	}

	_, err = h.client.GetStore(ctx, customer.PubKey().Address())
	if !client.IsCode(err, -32005) {
		t.Fatalf("expected unsupported code on basic profile, got %v", err)
	}

	_, err = h.client.SignAndSend(ctx, customer, testChainID, types.TxTypeRegisterCustomer,
		&types.RegisterCustomerPayload{Tier: 99})
	if !client.IsCode(err, -32602) {
		t.Fatalf("expected invalid params for bad tier, got %v", err)
	}

	tx, err := types.NewTransaction(testChainID, types.TxTypeRegisterStore, 9, &types.RegisterStorePayload{})
	if err != nil {
		t.Fatalf("new tx: %v", err)
	}
	if err := tx.Sign(outsider.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := h.client.SendTransaction(ctx, tx); !client.IsCode(err, -32010) {
		t.Fatalf("expected nonce code, got %v", err)
	}

	var out interface{}
	if err := h.client.Call(ctx, "participants_getCustomer", &out, "not-an-address"); !client.IsCode(err, -32602) {
		t.Fatalf("expected invalid params for bad address, got %v", err)
	}
	if err := h.client.Call(ctx, "participants_bogus", &out); !client.IsCode(err, -32601) {
		t.Fatalf("expected method not found, got %v", err)
	}
}

func TestRPCRejectsMalformedRequests(t *testing.T) {
	h := newHarness(t, participants.ProfileBasic, rpc.ServerConfig{})

	resp, err := http.Post(h.srv.URL, "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	resp, err = http.Get(h.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(h.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", resp.StatusCode)
	}
}

func TestRPCRateLimit(t *testing.T) {
	h := newHarness(t, participants.ProfileBasic, rpc.ServerConfig{RequestsPerSecond: 0.001, Burst: 2})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := h.client.Info(ctx); err != nil {
			t.Fatalf("info %d: %v", i, err)
		}
	}
	if _, err := h.client.Info(ctx); !client.IsCode(err, -32020) {
		t.Fatalf("expected rate limited code, got %v", err)
	}
}

func TestEventStreamDeliversBacklogAndLive(t *testing.T) {
	h := newHarness(t, participants.ProfileFull, rpc.ServerConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := newKey(t)
	if _, err := h.client.SignAndSend(ctx, first, testChainID, types.TxTypeRegisterStore, &types.RegisterStorePayload{}); err != nil {
		t.Fatalf("register store: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws/events?cursor=0"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read backlog: %v", err)
	}
	if !strings.Contains(string(data), events.TypeStoreRegistered) || !strings.Contains(string(data), `"cursor":"1"`) {
		t.Fatalf("unexpected backlog message %s", data)
	}

	second := newKey(t)
	if _, err := h.client.SignAndSend(ctx, second, testChainID, types.TxTypeRegisterCustomer,
		&types.RegisterCustomerPayload{Tier: uint8(participants.TierSilver)}); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("read live: %v", err)
	}
	if !strings.Contains(string(data), events.TypeCustomerRegistered) || !strings.Contains(string(data), second.PubKey().Address().String()) {
		t.Fatalf("unexpected live message %s", data)
	}
}

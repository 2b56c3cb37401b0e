package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pix_checkout/api"
	"pix_checkout/config"
	"pix_checkout/internal/sales"
	"pix_checkout/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type testEnv struct {
	router       *gin.Engine
	asaasServer  *httptest.Server
	salesStorage *sales.LocalStorage
	usersStorage *users.LocalStorage
	paymentSeq   int
}

func newTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		salesStorage: sales.NewLocalStorage(),
		usersStorage: users.NewLocalStorage(),
	}

	// Mock Asaas: create-customer then create-payment, minting sequential
	// payment ids.
	env.asaasServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v3/customers":
			w.Write([]byte(`{"id": "cus_100"}`))
		case "/api/v3/payments":
			env.paymentSeq++
			fmt.Fprintf(w, `{"id": "pay_%d", "customer": "cus_100", "invoiceUrl": "https://pay.example/invoice/%d"}`,
				env.paymentSeq, env.paymentSeq)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(env.asaasServer.Close)

	sponsorID := "sponsor-1"
	env.usersStorage.Put(&users.User{ID: sponsorID, Name: "Upline", CommissionRate: 250})
	env.usersStorage.Put(&users.User{ID: "seller-1", Name: "Seller", CommissionRate: 100, SponsorID: &sponsorID})

	cfg := &config.Config{
		AsaasBaseURL:       env.asaasServer.URL,
		AsaasAPIToken:      "test-token",
		PaymentDescription: "Consultoria",
		SplitWalletID:      "wallet-123",
		SplitFixedValue:    300,
	}

	env.router = gin.New()
	api.InitRoutes(env.router, cfg, api.Deps{
		SalesStorage: env.salesStorage,
		UsersStorage: env.usersStorage,
	}, zaptest.NewLogger(t))

	return env
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(path string, body any) *httptest.ResponseRecorder {
	bodyBytes, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) deliverWebhook(event, paymentID string) *httptest.ResponseRecorder {
	return e.postJSON("/webhooks/asaas", map[string]any{
		"event":   event,
		"payment": map[string]string{"id": paymentID},
	})
}

func TestCheckoutAndReconciliation_FullFlow(t *testing.T) {
	env := newTestEnv(t)

	// 1: buyer submits the checkout form and is redirected to the invoice.
	w := env.postForm("/sellers/seller-1/sales", url.Values{
		"cpf":            {"123.456.789-00"},
		"cliente":        {"Maria Silva"},
		"dataNascimento": {"05-12-1990"},
		"whatsapp":       {"(11) 99999-8888"},
		"email":          {"maria@example.com"},
		"produto":        {"1"},
		"valor":          {"150"},
	})
	assert.Equal(t, http.StatusFound, w.Code, "Expected a redirect to the hosted payment page")
	assert.Equal(t, "https://pay.example/invoice/1", w.Header().Get("Location"))

	// 2: the gateway confirms the payment.
	w = env.deliverWebhook("PAYMENT_CONFIRMED", "pay_1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "success", "response": "sale confirmed"}`, w.Body.String())

	seller, _ := env.usersStorage.Get("seller-1")
	sponsor, _ := env.usersStorage.Get("sponsor-1")
	assert.Equal(t, 100.0, seller.Balance, "Expected the seller credited their own rate")
	assert.Equal(t, 150.0, sponsor.Balance, "Expected the sponsor credited the rate delta")

	// 3: the gateway redelivers the same event; nothing is credited twice.
	w = env.deliverWebhook("PAYMENT_RECEIVED", "pay_1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "success", "response": "already processed"}`, w.Body.String())

	seller, _ = env.usersStorage.Get("seller-1")
	sponsor, _ = env.usersStorage.Get("sponsor-1")
	assert.Equal(t, 100.0, seller.Balance, "Expected no double credit on redelivery")
	assert.Equal(t, 150.0, sponsor.Balance)

	// 4: the dashboard shows the confirmed sale.
	req := httptest.NewRequest(http.MethodGet, "/sellers/seller-1/sales?product=1", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Results  []sales.Sale        `json:"results"`
		Metadata sales.SalesMetadata `json:"metadata"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Results, 1)
	assert.Equal(t, sales.StatusPaymentConfirmed, response.Results[0].Status)
	assert.Equal(t, "12345678900", response.Results[0].CPF)
	assert.Equal(t, "1990-12-05", response.Results[0].BirthDate)
	assert.Equal(t, 1, response.Metadata.Confirmed)
	assert.Equal(t, 150.0, response.Metadata.TotalAmount)
}

func TestWebhook_IgnoresUnrecognizedEvents(t *testing.T) {
	env := newTestEnv(t)

	w := env.deliverWebhook("PAYMENT_OVERDUE", "pay_1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "success", "message": "webhook ignored"}`, w.Body.String())

	seller, _ := env.usersStorage.Get("seller-1")
	assert.Equal(t, 0.0, seller.Balance, "Expected no mutation for unrecognized events")
}

func TestWebhook_IgnoresUnknownPaymentID(t *testing.T) {
	env := newTestEnv(t)

	w := env.deliverWebhook("PAYMENT_CONFIRMED", "pay_unknown")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "success", "message": "webhook ignored"}`, w.Body.String())
}

func TestWebhook_SilentOnMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/asaas", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "Expected 200 even for malformed bodies to avoid redelivery")
}

func TestWebhook_SettlementFailureStillAcknowledged(t *testing.T) {
	env := newTestEnv(t)

	// Sale by a seller the users store has never heard of.
	w := env.postForm("/sellers/seller-ghost/sales", url.Values{
		"cpf":            {"12345678900"},
		"cliente":        {"Maria Silva"},
		"dataNascimento": {"05-12-1990"},
		"whatsapp":       {"11999998888"},
		"produto":        {"1"},
	})
	assert.Equal(t, http.StatusFound, w.Code)

	w = env.deliverWebhook("PAYMENT_CONFIRMED", "pay_1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "error", "response": "sale confirmed, settlement pending"}`, w.Body.String())

	// The status transition is not rolled back; a redelivery does not
	// retry the settlement.
	w = env.deliverWebhook("PAYMENT_CONFIRMED", "pay_1")
	assert.JSONEq(t, `{"status": "success", "response": "already processed"}`, w.Body.String())
}

func TestEbookCheckout_FullFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON("/checkout/ebooks", map[string]any{
		"cpf":     "987.654.321-00",
		"name":    "Joao Souza",
		"email":   "joao@example.com",
		"product": 2,
		"seller":  "seller-1",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID          string `json:"id"`
		PaymentLink string `json:"paymentLink"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "https://pay.example/invoice/1", created.PaymentLink)

	// Confirmation flows through the same reconciler; product 2 settles as
	// a no-op.
	w = env.deliverWebhook("PAYMENT_CONFIRMED", "pay_1")
	assert.JSONEq(t, `{"status": "success", "response": "sale confirmed"}`, w.Body.String())

	seller, _ := env.usersStorage.Get("seller-1")
	assert.Equal(t, 0.0, seller.Balance, "Expected no commission for ebook products")

	req := httptest.NewRequest(http.MethodGet, "/sellers/seller-1/sales", nil)
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)

	var response struct {
		Results []sales.Sale `json:"results"`
	}
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Len(t, response.Results, 1)
	assert.Equal(t, sales.KindEbook, response.Results[0].Kind)
	assert.Equal(t, 19.99, response.Results[0].Amount, "Expected the ebook priced from the product table")
}

func TestCheckoutForm_ValidationFailureRedirectsBack(t *testing.T) {
	env := newTestEnv(t)

	w := env.postForm("/sellers/seller-1/sales", url.Values{
		"cpf": {"12345678900"},
		// cliente, dataNascimento and whatsapp missing
	})
	assert.Equal(t, http.StatusFound, w.Code, "Expected a redirect back with an error message")
	assert.Contains(t, w.Header().Get("Location"), "error=")
	assert.Zero(t, env.paymentSeq, "Expected no gateway call for invalid input")
}

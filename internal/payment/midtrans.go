package payment

import (
	"crypto/sha512"
	"encoding/hex"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// CustomerDetails is the subset of customer information the gateway needs to
// render a checkout page.
type CustomerDetails struct {
	FullName string
	Email    string
}

// Transaction is the gateway's answer to a created transaction: a Snap token
// and the hosted payment page the customer is redirected to.
type Transaction struct {
	Token       string
	RedirectURL string
}

// MidtransService wraps the Midtrans Snap API. It performs no retries; the
// caller decides what a failed call means for its own state.
type MidtransService struct {
	client    snap.Client
	serverKey string
}

func NewMidtransService(serverKey string, production bool) *MidtransService {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var client snap.Client
	client.New(serverKey, env)
	return &MidtransService{
		client:    client,
		serverKey: serverKey,
	}
}

// CreateTransaction registers orderID with the gateway and returns the
// payment token and redirect URL. orderID must never have been used before;
// the gateway rejects reused order ids.
func (s *MidtransService) CreateTransaction(orderID string, amount int64, customer CustomerDetails) (*Transaction, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: customer.FullName,
			Email: customer.Email,
		},
	}

	resp, err := s.client.CreateTransaction(req)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// VerifySignature checks a webhook notification's signature_key:
// sha512(order_id + status_code + gross_amount + server_key). An empty
// configured server key disables verification (local development).
func (s *MidtransService) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	if s.serverKey == "" {
		return true
	}
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + s.serverKey))
	return hex.EncodeToString(sum[:]) == signatureKey
}

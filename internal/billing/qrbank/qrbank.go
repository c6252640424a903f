// Package qrbank talks to the club's QR payment gateway: signed HTTP calls
// for issuing QR bills and a PubNub subscription for settlement pushes.
package qrbank

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	pubnub "github.com/pubnub/go/v7"
	"github.com/shopspring/decimal"

	"club-system/internal/status"
)

type Config struct {
	BaseURL      string `json:"baseUrl"`
	MerchantID   string `json:"merchantId"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	HMACKey      string `json:"hmacKey"`

	PNSubKey    string `json:"pn_subkey"`
	PNSubSecret string `json:"pn_subsecret"`
	PNUUID      string `json:"pn_uuid"`
	PNCipherKey string `json:"pn_cipherKey"`
}

type Gateway struct {
	merchantID string

	sub    *subscribe
	client *Client
}

// payload is the gateway's wire format for a settled transaction.
type payload struct {
	RefID         string          `json:"refNo"`
	BillNumber    string          `json:"billNumber"`
	Ccy           string          `json:"sourceCurrency"`
	Payer         string          `json:"sourceName"`
	AccountNumber string          `json:"sourceAccount"`
	Amount        decimal.Decimal `json:"txnAmount"`
	CreatedAt     string          `json:"txnDateTime"`
}

// New connects to the gateway backend, obtains an access token and opens
// the confirmation subscription.
func New(ctx context.Context, cfg *Config) (*Gateway, error) {
	client := newClient(ctx, &ClientConfig{
		BaseURL:      cfg.BaseURL,
		MerchantID:   cfg.MerchantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		HMACKey:      cfg.HMACKey,
	})

	token, err := client.connect(ctx)
	if err != nil {
		return nil, err
	}
	client.setAccessToken(token)

	// Keep the access token fresh for the life of the process.
	go client.refreshAccessToken(ctx)

	g := &Gateway{
		merchantID: cfg.MerchantID,
		client:     client,
	}

	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PNUUID))
	pnCfg.SubscribeKey = cfg.PNSubKey
	pnCfg.SecretKey = cfg.PNSubSecret
	pnCfg.CipherKey = cfg.PNCipherKey

	sub := &subscribe{
		pn:  pubnub.NewPubNub(pnCfg),
		lis: pubnub.NewListener(),
	}
	go sub.processSubscription(ctx)
	sub.pn.AddListener(sub.lis)
	g.sub = sub

	return g, nil
}

type subscribe struct {
	pn  *pubnub.PubNub
	lis *pubnub.Listener
	ch  chan *status.Confirmation
}

func (s *subscribe) processSubscription(ctx context.Context) {
	listener := s.lis
	for {
		select {
		case st := <-listener.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				log.Println("qrbank: connected to pubnub")

			case pubnub.PNReconnectedCategory:
				log.Println("qrbank: reconnected to pubnub")

			case pubnub.PNDisconnectedCategory:
				log.Println("qrbank: disconnected from pubnub")

			default:
				log.Printf("qrbank: pubnub status category %v", st.Category)
			}

		case message := <-listener.Message:
			raw, ok := message.Message.(string)
			if !ok {
				log.Printf("qrbank: unexpected message type %T", message.Message)
				continue
			}

			var p payload
			dec := json.NewDecoder(strings.NewReader(raw))
			if err := dec.Decode(&p); err != nil {
				log.Println(err)
				continue
			}

			confirmation, err := p.ToDomain()
			if err != nil {
				log.Println(err)
				continue
			}
			if s.ch != nil {
				s.ch <- confirmation
			}

		case <-ctx.Done():
			log.Println("qrbank: close subscribe")
			return
		}
	}
}

func (p *payload) ToDomain() (*status.Confirmation, error) {
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", p.CreatedAt, time.Local)
	if err != nil {
		return nil, err
	}

	return &status.Confirmation{
		RefID:         p.RefID,
		BillNumber:    p.BillNumber,
		Ccy:           p.Ccy,
		Payer:         p.Payer,
		AccountNumber: p.AccountNumber,
		Amount:        p.Amount,
		PaidAt:        ts,
	}, nil
}

// addChannel starts watching the per-bill channel, backdated two minutes so
// a confirmation racing the QR generation is not lost.
func (g *Gateway) addChannel(_ context.Context, billNumber string) {
	channel := fmt.Sprintf("%s_%s", g.merchantID, billNumber)

	tt := time.Now().Add(-2*time.Minute).Unix() * 10000

	g.sub.pn.Subscribe().Channels([]string{channel}).Timetoken(tt).Execute()
}

func (g *Gateway) Unsubscribe(_ context.Context, billNumber string) {
	g.sub.pn.Unsubscribe().Channels([]string{fmt.Sprintf("%s_%s", g.merchantID, billNumber)}).Execute()
}

func (g *Gateway) SetConfirmChannel(ch chan *status.Confirmation) {
	g.sub.ch = ch
}

func (g *Gateway) CheckTransaction(ctx context.Context, billNumber string) (*status.Confirmation, error) {
	return g.client.checkTransaction(ctx, billNumber)
}

func (g *Gateway) GenQRCode(ctx context.Context, f *status.QRForm) (string, error) {
	if f.MerchantID == "" {
		f.MerchantID = g.merchantID
	}
	emvCode, err := g.client.generateQR(ctx, f)
	if err != nil {
		return "", err
	}

	g.addChannel(ctx, f.BillNumber)

	return emvCode, nil
}

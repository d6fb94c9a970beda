// Package quoter implements ILQP quote negotiation: it fans a quote query
// out to a set of connectors over the messaging transport and reduces the
// surviving responses to the single best quote.
package quoter

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/interledger/internal/correlator"
	"github.com/Checker-Finance/interledger/internal/metrics"
	"github.com/Checker-Finance/interledger/internal/packet"
	"github.com/Checker-Finance/interledger/internal/transport"
	"github.com/Checker-Finance/interledger/pkg/ilperr"
	"github.com/Checker-Finance/interledger/pkg/model"
)

// DefaultExpiryDuration is assumed when the winning connector omits a
// source expiry.
const DefaultExpiryDuration = 10 // seconds

// Quoter negotiates payment quotes over a single transport.
type Quoter struct {
	tr     transport.Transport
	corr   *correlator.Correlator
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Quoter bound to tr.
func New(tr transport.Transport, logger *zap.Logger) *Quoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Quoter{
		tr:     tr,
		corr:   correlator.New(tr, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Close releases the quoter's transport subscription.
func (q *Quoter) Close() {
	q.corr.Close()
}

// Quote negotiates the best available quote for req. Destinations under
// the transport's own address prefix short-circuit to a pass-through quote
// with no network traffic.
func (q *Quoter) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	if (req.SourceAmount == "") == (req.DestinationAmount == "") {
		metrics.IncQuote("invalid")
		return nil, ilperr.InvalidArgument(
			"exactly one of source amount (%q) and destination amount (%q) must be set",
			req.SourceAmount, req.DestinationAmount)
	}

	start := q.now()
	defer func() { metrics.QuoteDuration.Observe(time.Since(start).Seconds()) }()

	if err := q.tr.Connect(ctx); err != nil {
		metrics.IncQuote("failed")
		return nil, err
	}

	info := q.tr.Info()
	if strings.HasPrefix(req.DestinationAddress, info.AddressPrefix) {
		q.logger.Debug("quoter.local_delivery",
			zap.String("destination", req.DestinationAddress),
			zap.String("amount", req.Amount()))
		metrics.IncQuote("local")
		return q.localQuote(req), nil
	}

	connectors := req.Connectors
	if len(connectors) == 0 {
		connectors = info.DefaultConnectors
	}

	query := model.QuoteQuery{
		SourceAddress:             q.tr.Account(),
		SourceAmount:              req.SourceAmount,
		DestinationAddress:        req.DestinationAddress,
		DestinationAmount:         req.DestinationAmount,
		DestinationExpiryDuration: req.DestinationExpiryDuration,
		DestinationPrecision:      req.DestinationPrecision,
	}

	q.logger.Info("quoter.fan_out",
		zap.String("destination", req.DestinationAddress),
		zap.String("amount", req.Amount()),
		zap.Strings("connectors", connectors))

	quotes, err := q.gather(ctx, connectors, query, req.Timeout)
	if err != nil {
		metrics.IncQuote("failed")
		return nil, err
	}

	best := quotes[0]
	for _, candidate := range quotes[1:] {
		best = cheaperQuote(best, candidate)
	}

	q.logger.Info("quoter.best_quote",
		zap.String("connector", best.SourceConnectorAccount),
		zap.String("source_amount", best.SourceAmount),
		zap.String("destination_amount", best.DestinationAmount))

	metrics.IncQuote("ok")
	return q.normalize(req, best), nil
}

// QuoteByPacket decodes the destination address and amount from a payment
// packet and negotiates a destination-amount quote for it.
func (q *Quoter) QuoteByPacket(ctx context.Context, raw []byte) (*model.Quote, error) {
	payment, err := packet.Parse(raw)
	if err != nil {
		return nil, err
	}
	return q.Quote(ctx, model.QuoteRequest{
		DestinationAddress: payment.Account,
		DestinationAmount:  payment.Amount,
	})
}

// localQuote builds the pass-through quote for a destination on our own
// ledger: both sides carry the single supplied amount.
func (q *Quoter) localQuote(req model.QuoteRequest) *model.Quote {
	amount := req.Amount()
	expiry := req.DestinationExpiryDuration
	return &model.Quote{
		SourceAmount:         amount,
		DestinationAmount:    amount,
		SourceExpiryDuration: expiry,
		ExpiresAt:            q.now().Add(time.Duration(expiry) * time.Second),
	}
}

// normalize echoes the caller's own amount back on whichever side they
// supplied; a connector's rounding of that side never overrides the
// caller's authoritative input.
func (q *Quoter) normalize(req model.QuoteRequest, best model.QuoteResponse) *model.Quote {
	quote := &model.Quote{
		SourceAmount:         best.SourceAmount,
		DestinationAmount:    best.DestinationAmount,
		ConnectorAccount:     best.SourceConnectorAccount,
		SourceExpiryDuration: best.SourceExpiryDuration,
	}
	if req.SourceAmount != "" {
		quote.SourceAmount = req.SourceAmount
	} else {
		quote.DestinationAmount = req.DestinationAmount
	}
	if quote.SourceExpiryDuration == 0 {
		quote.SourceExpiryDuration = DefaultExpiryDuration
	}
	quote.ExpiresAt = q.now().Add(time.Duration(quote.SourceExpiryDuration) * time.Second)
	return quote
}

// cheaperQuote picks the better of two candidates: the strictly smaller
// source amount wins; on a source tie the strictly larger destination
// amount wins; otherwise the earlier candidate is kept.
func cheaperQuote(a, b model.QuoteResponse) model.QuoteResponse {
	aSource, _ := decimal.NewFromString(a.SourceAmount)
	bSource, _ := decimal.NewFromString(b.SourceAmount)

	switch aSource.Cmp(bSource) {
	case -1:
		return a
	case 1:
		return b
	}

	aDest, _ := decimal.NewFromString(a.DestinationAmount)
	bDest, _ := decimal.NewFromString(b.DestinationAmount)
	if bDest.GreaterThan(aDest) {
		return b
	}
	return a
}

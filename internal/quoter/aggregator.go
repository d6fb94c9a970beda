package quoter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/interledger/internal/metrics"
	"github.com/Checker-Finance/interledger/pkg/ilperr"
	"github.com/Checker-Finance/interledger/pkg/model"
)

// gather issues one correlated quote_request per connector, all in flight
// simultaneously, and waits for every one to settle. Successful responses
// are returned in connector-list order, independent of arrival order, so
// best-quote selection stays deterministic. If every connector fails the
// individual failures are folded into one AggregateQuoteError.
func (q *Quoter) gather(ctx context.Context, connectors []string, query model.QuoteQuery, timeout time.Duration) ([]model.QuoteResponse, error) {
	if len(connectors) == 0 {
		return nil, ilperr.ErrNoConnectors
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal quote query: %w", err)
	}
	prefix := q.tr.Info().AddressPrefix

	responses := make([]*model.QuoteResponse, len(connectors))
	failures := make([]string, len(connectors))

	var wg sync.WaitGroup
	for i, connector := range connectors {
		wg.Add(1)
		go func(i int, connector string) {
			defer wg.Done()

			resp, err := q.getQuote(ctx, prefix, connector, payload, timeout)
			if err != nil {
				metrics.IncConnectorFailure(connector)
				q.logger.Debug("quoter.connector_failed",
					zap.String("connector", connector),
					zap.Error(err))
				failures[i] = connector + ": " + err.Error()
				return
			}
			responses[i] = resp
		}(i, connector)
	}
	wg.Wait()

	quotes := make([]model.QuoteResponse, 0, len(connectors))
	for _, resp := range responses {
		if resp != nil {
			quotes = append(quotes, *resp)
		}
	}
	if len(quotes) == 0 {
		errs := make([]string, 0, len(connectors))
		for _, f := range failures {
			if f != "" {
				errs = append(errs, f)
			}
		}
		return nil, &ilperr.AggregateQuoteError{Failures: errs}
	}
	return quotes, nil
}

// getQuote performs one correlated exchange with a single connector and
// validates the returned amounts.
func (q *Quoter) getQuote(ctx context.Context, prefix, connector string, query json.RawMessage, timeout time.Duration) (*model.QuoteResponse, error) {
	msg := &model.Message{
		Ledger:  prefix,
		Account: connector,
		Data: &model.MessageData{
			Method: model.MethodQuoteRequest,
			Data:   query,
		},
	}

	resp, err := q.corr.Exchange(ctx, msg, model.MethodQuoteResponse, timeout)
	if err != nil {
		return nil, err
	}

	var quote model.QuoteResponse
	if err := json.Unmarshal(resp.Data.Data, &quote); err != nil {
		return nil, fmt.Errorf("malformed quote response: %w", err)
	}
	if _, err := decimal.NewFromString(quote.SourceAmount); err != nil {
		return nil, fmt.Errorf("malformed source amount %q", quote.SourceAmount)
	}
	if _, err := decimal.NewFromString(quote.DestinationAmount); err != nil {
		return nil, fmt.Errorf("malformed destination amount %q", quote.DestinationAmount)
	}
	return &quote, nil
}
